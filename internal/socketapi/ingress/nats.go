package ingress

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
)

// DefaultNATSSubject is the subject relays listen on when none is
// configured.
const DefaultNATSSubject = "socketapi.broadcast"

// NATSRelay subscribes to a NATS subject and turns every message on it
// into a local Broadcast — an alternative to RedisRelay for deployments
// that already run a NATS cluster for inter-service messaging.
type NATSRelay struct {
	conn     *nats.Conn
	subject  string
	registry *registry.Registry
	engine   *subscription.Engine
	log      zerolog.Logger
	sub      *nats.Subscription
}

// NewNATSRelay builds a relay bound to conn, listening on subject
// (DefaultNATSSubject if empty).
func NewNATSRelay(conn *nats.Conn, subject string, reg *registry.Registry, eng *subscription.Engine) *NATSRelay {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSRelay{
		conn:     conn,
		subject:  subject,
		registry: reg,
		engine:   eng,
		log:      logging.Ingress().With().Str("relay", "nats").Logger(),
	}
}

// Run subscribes to the configured subject and dispatches messages until
// ctx is cancelled.
func (r *NATSRelay) Run(ctx context.Context) error {
	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		r.dispatch(ctx, msg.Data)
	})
	if err != nil {
		return err
	}
	r.sub = sub
	r.log.Info().Str("subject", r.subject).Msg("nats broadcast relay listening")

	<-ctx.Done()
	return sub.Unsubscribe()
}

func (r *NATSRelay) dispatch(ctx context.Context, payload []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn().Err(err).Msg("discarding malformed nats broadcast envelope")
		return
	}

	desc, ok := r.registry.Channel(env.Channel)
	if !ok {
		r.log.Warn().Str("channel", env.Channel).Msg("nats broadcast envelope names unknown channel")
		return
	}

	fields, err := schema.ObjectFields(env.Data)
	if err != nil {
		r.log.Warn().Err(err).Str("channel", env.Channel).Msg("discarding nats broadcast envelope with invalid data")
		return
	}

	r.engine.Broadcast(ctx, desc, fields)
}
