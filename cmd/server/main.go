// Command server is a minimal, complete wiring example: it boots an App,
// registers a couple of demonstration endpoints, and mounts both the
// WebSocket route and the broadcast ingress on a gin engine — environment-
// variable config, log.Fatal on unrecoverable startup errors, graceful
// shutdown on signal.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"reflect"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/app"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	cfg := app.ConfigFromEnv()

	a, err := app.New(cfg)
	if err != nil {
		logging.Log.Fatal().Err(err).Msg("failed to build app")
	}

	registerDemoEndpoints(a)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := a.Run(ctx); err != nil && err != context.Canceled {
			logging.Log.Error().Err(err).Msg("relay run loop exited with error")
		}
	}()

	engine := gin.New()
	engine.Use(gin.Recovery())

	root := engine.Group("/")
	a.MountWebSocket(root, "/ws", func(c *gin.Context) (session.Conn, error) {
		return upgrader.Upgrade(c.Writer, c.Request, nil)
	})
	a.MountIngress(root, "/broadcast")

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"endpoints": a.Describe(), "stats": a.Stats()})
	})

	addr := cfg.Host + ":" + strconv.Itoa(cfg.Port)
	srv := &http.Server{Addr: addr, Handler: engine}

	go func() {
		logging.Log.Info().Str("addr", addr).Msg("socketapi server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Log.Fatal().Err(err).Msg("server exited with error")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// registerDemoEndpoints wires a few toy endpoints so the server is useful
// to poke at immediately: an "echo" action with no state, a "ticks"
// channel any session can subscribe to, and a "tick" action that
// broadcasts to it.
func registerDemoEndpoints(a *app.App) {
	must(a.RegisterAction(&schema.Definition{
		Name: "echo",
		Params: []schema.Param{
			{Name: "message", Kind: schema.Value, Type: reflect.TypeOf("")},
		},
		Handler: func(_ context.Context, args schema.Args) (any, error) {
			return map[string]any{"message": args["message"]}, nil
		},
	}))

	must(a.RegisterChannel(&schema.Definition{
		Name: "ticks",
		Params: []schema.Param{
			{Name: "room", Kind: schema.RequiredOnSubscribe, Type: reflect.TypeOf("")},
		},
		Handler: func(_ context.Context, args schema.Args) (any, error) {
			return map[string]any{"room": args["room"]}, nil
		},
	}))

	must(a.RegisterAction(&schema.Definition{
		Name: "tick",
		Params: []schema.Param{
			{Name: "room", Kind: schema.Value, Type: reflect.TypeOf("")},
		},
		Handler: func(ctx context.Context, args schema.Args) (any, error) {
			err := a.Broadcast(ctx, "ticks", map[string]any{"room": args["room"]})
			return nil, err
		},
	}))
}

func must(err error) {
	if err != nil {
		logging.Log.Fatal().Err(err).Msg("failed to register endpoint")
	}
}

