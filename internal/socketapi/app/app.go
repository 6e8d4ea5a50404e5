// Package app wires the core SocketAPI components (schema, resolver,
// registry, subscription, session, ingress) into a single deployable unit:
// one struct holding every shared dependency, built once at startup.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/broadcastclient"
	"github.com/streamspace-dev/socketapi/internal/socketapi/ingress"
	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/resolver"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/session"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
)

// App is the assembled SocketAPI application: a registry, a subscription
// engine, and the transports (WebSocket session factory, HTTP/Redis/NATS
// ingress) bound to them.
type App struct {
	cfg      Config
	registry *registry.Registry
	resolver *resolver.Resolver
	engine   *subscription.Engine
	ingress  *ingress.Ingress
	client   *broadcastclient.Client

	redisRelay *ingress.RedisRelay
	natsConn   *nats.Conn
	natsRelay  *ingress.NATSRelay

	counters counters
	log      zerolog.Logger
}

// New assembles an App from cfg. Redis/NATS relays are constructed but not
// started; call Run to start them alongside the HTTP server.
func New(cfg Config) (*App, error) {
	logging.Initialize(cfg.LogLevel, cfg.LogPretty)

	reg := registry.New()
	res := resolver.New()
	eng := subscription.New(res)

	a := &App{
		cfg:      cfg,
		registry: reg,
		resolver: res,
		engine:   eng,
		client:   broadcastclient.New(loopbackHost(cfg.Host), cfg.Port, 5*time.Second),
		log:      logging.Component("app"),
	}
	eng.SetFaultHook(func() { a.counters.handlerFaults.Add(1) })

	a.ingress = ingress.New(reg, eng, ingress.NewAllowList(cfg.BroadcastAllowedHosts))

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redisRelay = ingress.NewRedisRelay(redis.NewClient(opt), cfg.RedisChannel, reg, eng)
	}

	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		a.natsConn = conn
		a.natsRelay = ingress.NewNATSRelay(conn, cfg.NATSSubject, reg, eng)
	}

	return a, nil
}

func loopbackHost(configuredHost string) string {
	if configuredHost == "" || configuredHost == "0.0.0.0" {
		return "127.0.0.1"
	}
	return configuredHost
}

// RegisterAction registers def as an action. def.Kind is forced to
// schema.Action.
func (a *App) RegisterAction(def *schema.Definition) error {
	def.Kind = schema.Action
	return a.registry.Register(def)
}

// RegisterChannel registers def as a channel. def.Kind is forced to
// schema.Channel.
func (a *App) RegisterChannel(def *schema.Definition) error {
	def.Kind = schema.Channel
	return a.registry.Register(def)
}

// IncludeRouter merges another App's registered endpoints into this one.
func (a *App) IncludeRouter(other *App) error {
	return a.registry.IncludeRouter(other.registry)
}

// Describe returns the introspection snapshot of every registered endpoint.
func (a *App) Describe() []registry.EndpointSummary {
	return a.registry.Describe()
}

// Stats returns a snapshot of the app's metrics counters. ActiveSubscriptions
// is computed on demand from the subscription engine rather than tracked as
// a running counter, since the engine already holds the authoritative count
// per channel (subscription.Engine.SubscriberCount).
func (a *App) Stats() Stats {
	s := a.counters.snapshot()
	for _, ep := range a.registry.Describe() {
		if ep.Kind == string(schema.Channel) {
			s.ActiveSubscriptions += int64(a.engine.SubscriberCount(ep.Name))
		}
	}
	return s
}

// Broadcast invokes channel's handler once per current subscriber,
// dispatching in-process if ctx carries a bound session (meaning the
// caller is itself inside a handler invocation) or, failing that, over
// HTTP to this process's own ingress endpoint.
//
// Both kinds of caller use this one method: handlers running inside a
// session (such as an action that broadcasts to a channel) and code paths
// with no session in hand at all (background jobs, cron-style tickers,
// HTTP handlers outside the WebSocket route). The context alone decides
// which path is taken.
func (a *App) Broadcast(ctx context.Context, channel string, data any) error {
	if _, ok := session.FromContext(ctx); ok {
		return a.broadcastInProcess(ctx, channel, data)
	}
	return a.client.Post(ctx, a.ingressPath(), channel, data)
}

func (a *App) broadcastInProcess(ctx context.Context, channel string, data any) error {
	desc, ok := a.registry.Channel(channel)
	if !ok {
		return fmt.Errorf("channel %q is not registered", channel)
	}
	fields, err := encodeCallPayload(data)
	if err != nil {
		return err
	}
	a.engine.Broadcast(ctx, desc, fields)
	return nil
}

// ingressPath is the path the out-of-context broadcast client posts to on
// host:port. It is fixed at /broadcast with no prefix; MountIngress mounts
// the ingress at whatever group and path its caller passes.
func (a *App) ingressPath() string { return "/broadcast" }

// MountWebSocket upgrades connections at path to SocketAPI sessions. conn
// is an adapter constructing a session.Conn from the gin request (e.g. a
// gorilla/websocket.Upgrader.Upgrade call); see cmd/server for a complete
// example.
func (a *App) MountWebSocket(group *gin.RouterGroup, path string, upgrade func(c *gin.Context) (session.Conn, error)) {
	group.GET(path, func(c *gin.Context) {
		conn, err := upgrade(c)
		if err != nil {
			a.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		s := session.New(conn, a.registry, a.engine, a.resolver,
			session.WithFrameHooks(
				func() { a.counters.framesIn.Add(1) },
				func() { a.counters.framesOut.Add(1) },
				func() { a.counters.handlerFaults.Add(1) },
			),
		)

		a.counters.activeSessions.Add(1)
		defer a.counters.activeSessions.Add(-1)

		s.Serve(c.Request.Context())
	})
}

// MountIngress mounts the HTTP broadcast ingress at path on group.
func (a *App) MountIngress(group *gin.RouterGroup, path string) {
	a.ingress.Mount(group, path)
}

// Run starts any configured Redis/NATS broadcast relays and blocks until
// ctx is cancelled. Safe to call with neither configured — it then simply
// waits on ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	active := 0

	if a.redisRelay != nil {
		active++
		go func() { errCh <- a.redisRelay.Run(ctx) }()
	}
	if a.natsRelay != nil {
		active++
		go func() { errCh <- a.natsRelay.Run(ctx) }()
	}

	<-ctx.Done()
	for i := 0; i < active; i++ {
		<-errCh
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	return ctx.Err()
}
