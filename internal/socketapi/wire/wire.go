// Package wire defines the JSON frame shapes exchanged over a SocketAPI
// WebSocket connection. Encoding/decoding only; the transport and the
// JSON codec itself remain the caller's concern.
package wire

import "encoding/json"

// Frame types, as they appear on the wire's "type" field.
const (
	TypeAction       = "action"
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"
	TypeData         = "data"
	TypeError        = "error"
)

// StatusCompleted is the only action status the core currently emits.
const StatusCompleted = "completed"

// Inbound is a client -> server frame, decoded leniently: Data is kept raw
// so the registry/resolver can validate it against the target endpoint's
// schema instead of an assumed shape.
type Inbound struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// DataOrEmpty returns Data, defaulting to an empty JSON object when the
// frame carried no data field.
func (f Inbound) DataOrEmpty() json.RawMessage {
	if len(f.Data) == 0 {
		return json.RawMessage("{}")
	}
	return f.Data
}

// Outbound is a server -> client frame. Fields are tagged omitempty so a
// single struct can render any of the frame shapes below without the
// caller hand-assembling maps.
type Outbound struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Status  string `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// ActionCompleted builds the response frame for a successful action
// invocation. hasData distinguishes "handler returned nothing" (omit the
// field entirely) from "handler returned a zero value" (include it).
func ActionCompleted(channel string, data any, hasData bool) Outbound {
	o := Outbound{Type: TypeAction, Channel: channel, Status: StatusCompleted}
	if hasData {
		o.Data = data
	}
	return o
}

// Subscribed builds the confirmation frame for a successful subscribe.
func Subscribed(channel string) Outbound {
	return Outbound{Type: TypeSubscribed, Channel: channel}
}

// Unsubscribed builds the confirmation frame for an unsubscribe (or a
// no-op unsubscribe of a channel never subscribed to — idempotent).
func Unsubscribed(channel string) Outbound {
	return Outbound{Type: TypeUnsubscribed, Channel: channel}
}

// Data builds a broadcast payload frame delivered to one subscriber.
func Data(channel string, data any) Outbound {
	return Outbound{Type: TypeData, Channel: channel, Data: data}
}

// Error builds an error frame. message must already be the exact string to
// report — callers construct it via apperrors.
func Error(message string) Outbound {
	return Outbound{Type: TypeError, Message: message}
}
