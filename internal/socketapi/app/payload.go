package app

import (
	"encoding/json"

	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
)

// encodeCallPayload turns an arbitrary Go value into the
// map[string]json.RawMessage shape Broadcast/Resolve expect, the same way
// an inbound wire frame's data object is split into fields.
func encodeCallPayload(data any) (map[string]json.RawMessage, error) {
	if data == nil {
		return map[string]json.RawMessage{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return schema.ObjectFields(raw)
}
