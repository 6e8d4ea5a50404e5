package ingress

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
)

// Ingress is the HTTP loopback broadcast endpoint. It accepts a
// {channel, data} envelope from an allow-listed peer and triggers a
// Broadcast on the shared subscription engine, exactly as if the channel's
// handler had been called from inside a session.
type Ingress struct {
	registry *registry.Registry
	engine   *subscription.Engine
	allow    *AllowList
	log      zerolog.Logger
}

// New builds an Ingress bound to reg and eng, accepting posts only from
// peers in allow.
func New(reg *registry.Registry, eng *subscription.Engine, allow *AllowList) *Ingress {
	return &Ingress{
		registry: reg,
		engine:   eng,
		allow:    allow,
		log:      logging.Ingress(),
	}
}

type broadcastRequest struct {
	Channel string          `json:"channel" binding:"required"`
	Data    json.RawMessage `json:"data"`
}

// Handler returns the gin handler for the ingress POST route.
//
// Response codes:
//   - 403 if the peer is not allow-listed
//   - 400 if the body is not a well-formed envelope
//   - 404 if the channel is unknown
//   - 200 once the broadcast has run: every subscriber's handler has been
//     invoked and its frame queued or dropped (best-effort per subscriber),
//     so 200 means "queued", not "written to the client"
func (i *Ingress) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.allow.Allowed(c.Request.RemoteAddr) {
			i.log.Warn().Str("remote_addr", c.Request.RemoteAddr).Msg("rejected broadcast post from disallowed peer")
			c.AbortWithError(http.StatusForbidden, apperrors.ForbiddenPeer(c.Request.RemoteAddr))
			return
		}

		var req broadcastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithError(http.StatusBadRequest, apperrors.MalformedFrame(err.Error()))
			return
		}

		desc, ok := i.registry.Channel(req.Channel)
		if !ok {
			c.AbortWithError(http.StatusNotFound, apperrors.UnknownChannel(req.Channel))
			return
		}

		fields, err := schema.ObjectFields(req.Data)
		if err != nil {
			c.AbortWithError(http.StatusBadRequest, apperrors.MalformedFrame(err.Error()))
			return
		}
		i.engine.Broadcast(c.Request.Context(), desc, fields)
		c.Status(http.StatusOK)
	}
}

// Mount registers the ingress handler at path on group.
func (i *Ingress) Mount(group *gin.RouterGroup, path string) {
	group.POST(path, i.Handler())
}
