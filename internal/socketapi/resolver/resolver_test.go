package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
)

func compile(t *testing.T, def *schema.Definition) *schema.Compiled {
	t.Helper()
	c, err := schema.Compile(def)
	require.NoError(t, err)
	return c
}

func TestResolveValueParams(t *testing.T) {
	def := &schema.Definition{
		Name: "echo",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "message", Kind: schema.Value, Type: reflect.TypeOf("")},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	args, err := r.Resolve(context.Background(), compiled, map[string]json.RawMessage{
		"message": json.RawMessage(`"hi"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", args["message"])
}

func TestResolveMissingRequiredValueFails(t *testing.T) {
	def := &schema.Definition{
		Name: "echo",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "message", Kind: schema.Value, Type: reflect.TypeOf("")},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	_, err := r.Resolve(context.Background(), compiled, map[string]json.RawMessage{})
	require.Error(t, err)

	var se *apperrors.SocketError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.CodeInvalidParameters, se.Code)
}

func TestResolveAppliesDefault(t *testing.T) {
	def := &schema.Definition{
		Name: "echo",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "loud", Kind: schema.Value, Type: reflect.TypeOf(false), Default: false, HasDefault: true},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	args, err := r.Resolve(context.Background(), compiled, map[string]json.RawMessage{})
	require.NoError(t, err)
	assert.Equal(t, false, args["loud"])
}

func TestResolveDependencyInvokesNestedHandler(t *testing.T) {
	nested := &schema.Definition{
		Name: "current-user",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "token", Kind: schema.Value, Type: reflect.TypeOf("")},
		},
		Handler: func(_ context.Context, args schema.Args) (any, error) {
			return "user:" + args["token"].(string), nil
		},
	}
	def := &schema.Definition{
		Name: "post-message",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "user", Kind: schema.Dependency, Dependency: nested},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	args, err := r.Resolve(context.Background(), compiled, map[string]json.RawMessage{
		"user": json.RawMessage(`{"token":"abc"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "user:abc", args["user"])
}

func TestResolveDependencyFaultIsWrapped(t *testing.T) {
	nested := &schema.Definition{
		Name: "current-user",
		Kind: schema.Action,
		Handler: func(context.Context, schema.Args) (any, error) {
			return nil, errors.New("token expired")
		},
	}
	def := &schema.Definition{
		Name: "post-message",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "user", Kind: schema.Dependency, Dependency: nested},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	_, err := r.Resolve(context.Background(), compiled, map[string]json.RawMessage{})
	require.Error(t, err)

	var se *apperrors.SocketError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.CodeHandlerFault, se.Code)
}

func TestResolveDependencyHandlerPanicIsRecovered(t *testing.T) {
	nested := &schema.Definition{
		Name: "current-user",
		Kind: schema.Action,
		Handler: func(context.Context, schema.Args) (any, error) {
			panic("kaboom")
		},
	}
	def := &schema.Definition{
		Name: "post-message",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "user", Kind: schema.Dependency, Dependency: nested},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	_, err := r.Resolve(context.Background(), compiled, map[string]json.RawMessage{})
	require.Error(t, err)
}

func TestCaptureSubscribeArgsOnlyCapturesRequiredOnSubscribe(t *testing.T) {
	def := &schema.Definition{
		Name: "ticks",
		Kind: schema.Channel,
		Params: []schema.Param{
			{Name: "room", Kind: schema.RequiredOnSubscribe, Type: reflect.TypeOf("")},
			{Name: "verbose", Kind: schema.Value, Type: reflect.TypeOf(false), Default: false, HasDefault: true},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	bound, err := r.CaptureSubscribeArgs(compiled, map[string]json.RawMessage{
		"room": json.RawMessage(`"lobby"`),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"room": "lobby"}, bound)
}

func TestCaptureSubscribeArgsMissingRequiredFails(t *testing.T) {
	def := &schema.Definition{
		Name: "ticks",
		Kind: schema.Channel,
		Params: []schema.Param{
			{Name: "room", Kind: schema.RequiredOnSubscribe, Type: reflect.TypeOf("")},
		},
		Handler: func(context.Context, schema.Args) (any, error) { return nil, nil },
	}
	compiled := compile(t, def)

	r := New()
	_, err := r.CaptureSubscribeArgs(compiled, map[string]json.RawMessage{})
	assert.Error(t, err)
}
