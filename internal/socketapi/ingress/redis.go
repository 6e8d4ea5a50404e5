package ingress

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
)

// DefaultRedisChannel is the Pub/Sub channel name relays subscribe to when
// none is configured.
const DefaultRedisChannel = "socketapi:broadcast"

// RedisRelay subscribes to a Redis Pub/Sub channel and turns every message
// on it into a local Broadcast, so any process attached to the same Redis
// instance can trigger a broadcast on this one without an HTTP round trip.
type RedisRelay struct {
	client   *redis.Client
	channel  string
	registry *registry.Registry
	engine   *subscription.Engine
	log      zerolog.Logger
}

// NewRedisRelay builds a relay that subscribes to channel (DefaultRedisChannel
// if empty) on client.
func NewRedisRelay(client *redis.Client, channel string, reg *registry.Registry, eng *subscription.Engine) *RedisRelay {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisRelay{
		client:   client,
		channel:  channel,
		registry: reg,
		engine:   eng,
		log:      logging.Ingress().With().Str("relay", "redis").Logger(),
	}
}

// Run subscribes and dispatches messages until ctx is cancelled or the
// subscription's channel closes.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	r.log.Info().Str("channel", r.channel).Msg("redis broadcast relay listening")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.dispatch(ctx, []byte(msg.Payload))
		}
	}
}

type relayEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func (r *RedisRelay) dispatch(ctx context.Context, payload []byte) {
	var env relayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.log.Warn().Err(err).Msg("discarding malformed redis broadcast envelope")
		return
	}

	desc, ok := r.registry.Channel(env.Channel)
	if !ok {
		r.log.Warn().Str("channel", env.Channel).Msg("redis broadcast envelope names unknown channel")
		return
	}

	fields, err := schema.ObjectFields(env.Data)
	if err != nil {
		r.log.Warn().Err(err).Str("channel", env.Channel).Msg("discarding redis broadcast envelope with invalid data")
		return
	}

	r.engine.Broadcast(ctx, desc, fields)
}
