package ingress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/resolver"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/subscription"
)

func newTestRouter(t *testing.T, allow *AllowList) (*gin.Engine, *registry.Registry, *subscription.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := registry.New()
	res := resolver.New()
	eng := subscription.New(res)

	require.NoError(t, reg.Register(&schema.Definition{
		Name: "ticks",
		Kind: schema.Channel,
		Handler: func(context.Context, schema.Args) (any, error) {
			return map[string]any{"ok": true}, nil
		},
	}))

	ing := New(reg, eng, allow)
	r := gin.New()
	ing.Mount(r.Group("/"), "/broadcast")
	return r, reg, eng
}

func post(r *gin.Engine, remoteAddr, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/broadcast", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIngressRejectsDisallowedPeer(t *testing.T) {
	r, _, _ := newTestRouter(t, NewAllowList([]string{"127.0.0.1"}))
	rec := post(r, "10.0.0.9:1234", `{"channel":"ticks","data":{}}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIngressRejectsMalformedBody(t *testing.T) {
	r, _, _ := newTestRouter(t, NewAllowList([]string{"127.0.0.1"}))
	rec := post(r, "127.0.0.1:1234", `not-json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngressRejectsUnknownChannel(t *testing.T) {
	r, _, _ := newTestRouter(t, NewAllowList([]string{"127.0.0.1"}))
	rec := post(r, "127.0.0.1:1234", `{"channel":"missing","data":{}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngressAcceptsAllowedPeerAndDispatchesBroadcast(t *testing.T) {
	r, _, _ := newTestRouter(t, NewAllowList([]string{"127.0.0.1"}))
	rec := post(r, "127.0.0.1:1234", `{"channel":"ticks","data":{}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
