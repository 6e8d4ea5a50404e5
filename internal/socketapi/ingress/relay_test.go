package ingress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/resolver"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
)

// These tests exercise the relay envelope-dispatch logic directly, without
// a live Redis/NATS connection — Run itself is an integration point the
// relays' own client libraries are responsible for, not SocketAPI's.

func newRelayHarness(t *testing.T) (*registry.Registry, *subscription.Engine) {
	t.Helper()
	reg := registry.New()
	res := resolver.New()
	eng := subscription.New(res)
	require.NoError(t, reg.Register(&schema.Definition{
		Name:    "ticks",
		Kind:    schema.Channel,
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}))
	return reg, eng
}

func TestRedisRelayDispatchIgnoresMalformedEnvelope(t *testing.T) {
	reg, eng := newRelayHarness(t)
	relay := NewRedisRelay(nil, "", reg, eng)
	assert.NotPanics(t, func() {
		relay.dispatch(context.Background(), []byte("not-json"))
	})
}

func TestRedisRelayDispatchIgnoresUnknownChannel(t *testing.T) {
	reg, eng := newRelayHarness(t)
	relay := NewRedisRelay(nil, "", reg, eng)
	assert.NotPanics(t, func() {
		relay.dispatch(context.Background(), []byte(`{"channel":"missing","data":{}}`))
	})
}

func TestRedisRelayDefaultChannel(t *testing.T) {
	reg, eng := newRelayHarness(t)
	relay := NewRedisRelay(nil, "", reg, eng)
	assert.Equal(t, DefaultRedisChannel, relay.channel)
}

func TestNATSRelayDefaultSubject(t *testing.T) {
	reg, eng := newRelayHarness(t)
	relay := NewNATSRelay(nil, "", reg, eng)
	assert.Equal(t, DefaultNATSSubject, relay.subject)
}

func TestNATSRelayDispatchIgnoresMalformedEnvelope(t *testing.T) {
	reg, eng := newRelayHarness(t)
	relay := NewNATSRelay(nil, "", reg, eng)
	assert.NotPanics(t, func() {
		relay.dispatch(context.Background(), []byte("not-json"))
	})
}
