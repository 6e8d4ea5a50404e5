// Package session implements the per-connection session and frame loop:
// frame decoding, classification, dispatch, and the outbound writer. The
// read/write pump structure is a buffered send channel drained by its own
// goroutine, generalized here into a multiplexed action/channel
// dispatcher.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/resolver"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
	"github.com/streamspace-dev/socketapi/internal/socketapi/wire"
)

// State is the session's lifecycle state: OPEN -> CLOSING -> CLOSED.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateClosing:
		return "CLOSING"
	default:
		return "CLOSED"
	}
}

const (
	defaultOutboxSize         = 256
	defaultBackpressureDeadline = 10 * time.Second
	defaultReadTimeout        = 60 * time.Second
	defaultPingInterval       = 30 * time.Second
	defaultWriteTimeout       = 10 * time.Second
)

// Session is a live WebSocket connection plus the state the core keeps for
// it. One goroutine runs Serve (the read loop); a second, started by
// Serve, drains the outbox.
type Session struct {
	id       string
	conn     Conn
	registry *registry.Registry
	engine   *subscription.Engine
	resolver *resolver.Resolver

	outbox chan wire.Outbound
	done   chan struct{}

	state int32 // atomic State

	backpressureDeadline time.Duration
	readTimeout          time.Duration
	pingInterval         time.Duration
	writeTimeout         time.Duration

	onFrameIn      func()
	onFrameOut     func()
	onHandlerFault func()

	log zerolog.Logger
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithOutboxSize overrides the outbox's buffer size (default 256).
func WithOutboxSize(n int) Option {
	return func(s *Session) {
		s.outbox = make(chan wire.Outbound, n)
	}
}

// WithBackpressureDeadline overrides how long Enqueue will wait for a full
// outbox before treating the session as unresponsive and closing it.
func WithBackpressureDeadline(d time.Duration) Option {
	return func(s *Session) { s.backpressureDeadline = d }
}

// WithFrameHooks wires app-level metrics counters: onIn fires once per
// inbound frame read off the connection, onOut once per outbound frame
// successfully written, onFault once per action handler fault. Any of the
// three may be nil.
func WithFrameHooks(onIn, onOut, onFault func()) Option {
	return func(s *Session) {
		s.onFrameIn = onIn
		s.onFrameOut = onOut
		s.onHandlerFault = onFault
	}
}

// New creates a session bound to conn, the shared registry, subscription
// engine, and resolver. Call Serve to run it; Serve blocks until the
// connection closes.
func New(conn Conn, reg *registry.Registry, eng *subscription.Engine, res *resolver.Resolver, opts ...Option) *Session {
	s := &Session{
		id:                   uuid.New().String(),
		conn:                 conn,
		registry:             reg,
		engine:               eng,
		resolver:             res,
		outbox:               make(chan wire.Outbound, defaultOutboxSize),
		done:                 make(chan struct{}),
		backpressureDeadline: defaultBackpressureDeadline,
		readTimeout:          defaultReadTimeout,
		pingInterval:         defaultPingInterval,
		writeTimeout:         defaultWriteTimeout,
		log:                  logging.Session(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session_id", s.id).Logger()
	return s
}

// ID returns the session's process-unique identifier.
func (s *Session) ID() string { return s.id }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return State(atomic.LoadInt32(&s.state)) }

func (s *Session) isClosing() bool { return s.State() != StateOpen }

// Enqueue implements subscription.Subscriber. It queues frame for
// delivery, returning false if the session is CLOSING/CLOSED or if the
// outbox stayed full past the configured backpressure deadline — in the
// latter case the session is forcibly closed.
func (s *Session) Enqueue(frame wire.Outbound) bool {
	if s.isClosing() {
		return false
	}
	select {
	case s.outbox <- frame:
		return true
	case <-s.done:
		return false
	case <-time.After(s.backpressureDeadline):
		s.log.Warn().Msg("outbox full past backpressure deadline, closing unresponsive session")
		s.initiateClose()
		return false
	}
}

// Close begins the CLOSING transition. Safe to call multiple times and
// from any goroutine.
func (s *Session) Close() {
	s.initiateClose()
}

func (s *Session) initiateClose() bool {
	if atomic.CompareAndSwapInt32(&s.state, int32(StateOpen), int32(StateClosing)) {
		close(s.done)
		return true
	}
	return false
}

// Serve runs the session's read loop until the connection closes or ctx is
// cancelled. It starts the writer pump, reads and dispatches frames, and
// on return detaches every subscription this session held.
func (s *Session) Serve(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump()
	}()

	s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
			s.initiateClose()
		case <-s.done:
		}
	}()

	for {
		if s.isClosing() {
			break
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			break
		}
		s.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		s.handleFrame(ctx, data)
	}

	s.initiateClose()
	s.engine.Detach(s)
	s.conn.Close()
	<-writerDone
	atomic.StoreInt32(&s.state, int32(StateClosed))
}

// writePump drains the outbox onto the connection, and sends periodic
// pings to keep an idle connection alive.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.outbox:
			if err := s.writeFrame(frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(pingMessageType, nil); err != nil {
				return
			}
		case <-s.done:
			s.drainOutbox()
			return
		}
	}
}

// drainOutbox makes a best-effort attempt to flush whatever is left in the
// outbox once the session starts closing.
func (s *Session) drainOutbox() {
	for {
		select {
		case frame := <-s.outbox:
			_ = s.writeFrame(frame)
		default:
			return
		}
	}
}

func (s *Session) writeFrame(frame wire.Outbound) error {
	data, err := json.Marshal(frame)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal outbound frame")
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := s.conn.WriteMessage(textMessageType, data); err != nil {
		return err
	}
	if s.onFrameOut != nil {
		s.onFrameOut()
	}
	return nil
}

// handleFrame decodes and dispatches one inbound frame. A failure never
// terminates the session — it is reported as an error frame and the loop
// continues.
func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	if s.onFrameIn != nil {
		s.onFrameIn()
	}

	var in wire.Inbound
	if err := json.Unmarshal(raw, &in); err != nil || in.Type == "" {
		s.Enqueue(wire.Error(apperrors.MalformedFrame("frame is not a JSON object with a type field").Message))
		return
	}

	switch in.Type {
	case wire.TypeAction:
		if in.Channel == "" {
			s.Enqueue(wire.Error(apperrors.MalformedFrame("action frame missing channel").Message))
			return
		}
		s.handleAction(ctx, in)
	case wire.TypeSubscribe:
		if in.Channel == "" {
			s.Enqueue(wire.Error(apperrors.MalformedFrame("subscribe frame missing channel").Message))
			return
		}
		s.handleSubscribe(ctx, in)
	case wire.TypeUnsubscribe:
		if in.Channel == "" {
			s.Enqueue(wire.Error(apperrors.MalformedFrame("unsubscribe frame missing channel").Message))
			return
		}
		s.engine.Unsubscribe(in.Channel, s)
	default:
		s.Enqueue(wire.Error(apperrors.MalformedFrame("unknown frame type " + in.Type).Message))
	}
}

func (s *Session) handleAction(ctx context.Context, in wire.Inbound) {
	desc, ok := s.registry.Action(in.Channel)
	if !ok {
		s.Enqueue(wire.Error(apperrors.UnknownAction(in.Channel).Message))
		return
	}

	fields, err := schema.ObjectFields(in.DataOrEmpty())
	if err != nil {
		s.Enqueue(wire.Error(apperrors.InvalidParameters(desc.Name, err.Error()).Message))
		return
	}

	callCtx := WithSession(ctx, s)
	args, err := s.resolver.Resolve(callCtx, desc.Compiled, fields)
	if err != nil {
		s.Enqueue(wire.Error(messageOf(err)))
		return
	}

	result, err := s.invoke(callCtx, desc, args)
	if err != nil {
		fault := apperrors.HandlerFault(desc.Name, err)
		s.log.Warn().Err(err).Str("action", desc.Name).Msg("action handler fault")
		if s.onHandlerFault != nil {
			s.onHandlerFault()
		}
		s.Enqueue(wire.Error(fault.Message))
		return
	}

	s.Enqueue(wire.ActionCompleted(desc.Name, result, result != nil))
}

func (s *Session) handleSubscribe(ctx context.Context, in wire.Inbound) {
	desc, ok := s.registry.Channel(in.Channel)
	if !ok {
		s.Enqueue(wire.Error(apperrors.UnknownChannel(in.Channel).Message))
		return
	}

	fields, err := schema.ObjectFields(in.DataOrEmpty())
	if err != nil {
		s.Enqueue(wire.Error(apperrors.InvalidParameters(desc.Name, err.Error()).Message))
		return
	}

	callCtx := WithSession(ctx, s)
	if err := s.engine.Subscribe(callCtx, s, desc, fields); err != nil {
		s.Enqueue(wire.Error(messageOf(err)))
		return
	}
}

// invoke runs desc's handler, converting a panic into a handler fault so a
// single misbehaving action never takes the session down.
func (s *Session) invoke(ctx context.Context, desc *registry.Descriptor, args schema.Args) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.New("panic in handler")
		}
	}()
	return desc.Handler(ctx, args)
}

func messageOf(err error) string {
	var se *apperrors.SocketError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

const (
	textMessageType = 1 // matches gorilla/websocket.TextMessage
	pingMessageType = 9 // matches gorilla/websocket.PingMessage
)
