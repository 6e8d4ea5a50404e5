package registry

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
)

func noopHandler(context.Context, schema.Args) (any, error) { return nil, nil }

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	err := r.Register(&schema.Definition{Name: "echo", Kind: schema.Action, Handler: noopHandler})
	require.NoError(t, err)

	d, ok := r.Action("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", d.Name)

	_, ok = r.Channel("echo")
	assert.False(t, ok, "actions and channels are disjoint name spaces")
}

func TestRegisterRejectsDuplicateNameWithinKind(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&schema.Definition{Name: "echo", Kind: schema.Action, Handler: noopHandler}))

	err := r.Register(&schema.Definition{Name: "echo", Kind: schema.Action, Handler: noopHandler})
	require.Error(t, err)

	var se *apperrors.SocketError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, apperrors.CodeDuplicateName, se.Code)
}

func TestRegisterAllowsSameNameAcrossKinds(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&schema.Definition{Name: "ticks", Kind: schema.Action, Handler: noopHandler}))
	require.NoError(t, r.Register(&schema.Definition{Name: "ticks", Kind: schema.Channel, Handler: noopHandler}))
}

func TestRegisterPropagatesCompileErrors(t *testing.T) {
	r := New()
	err := r.Register(&schema.Definition{
		Name:   "broken",
		Kind:   schema.Action,
		Params: []schema.Param{{Name: "x", Kind: schema.Value}},
		Handler: noopHandler,
	})
	assert.Error(t, err)
}

func TestIncludeRouterMergesDisjointTables(t *testing.T) {
	base := New()
	require.NoError(t, base.Register(&schema.Definition{Name: "echo", Kind: schema.Action, Handler: noopHandler}))

	other := New()
	require.NoError(t, other.Register(&schema.Definition{Name: "ping", Kind: schema.Action, Handler: noopHandler}))
	require.NoError(t, other.Register(&schema.Definition{Name: "ticks", Kind: schema.Channel, Handler: noopHandler}))

	require.NoError(t, base.IncludeRouter(other))

	_, ok := base.Action("echo")
	assert.True(t, ok)
	_, ok = base.Action("ping")
	assert.True(t, ok)
	_, ok = base.Channel("ticks")
	assert.True(t, ok)
}

func TestIncludeRouterFailsAtomicallyOnCollision(t *testing.T) {
	base := New()
	require.NoError(t, base.Register(&schema.Definition{Name: "echo", Kind: schema.Action, Handler: noopHandler}))

	other := New()
	require.NoError(t, other.Register(&schema.Definition{Name: "echo", Kind: schema.Action, Handler: noopHandler}))
	require.NoError(t, other.Register(&schema.Definition{Name: "new-one", Kind: schema.Action, Handler: noopHandler}))

	err := base.IncludeRouter(other)
	require.Error(t, err)

	_, ok := base.Action("new-one")
	assert.False(t, ok, "a colliding merge must not partially apply")
}

func TestDescribeReturnsParamShapes(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&schema.Definition{
		Name: "echo",
		Kind: schema.Action,
		Params: []schema.Param{
			{Name: "message", Kind: schema.Value, Type: reflect.TypeOf("")},
		},
		Handler: noopHandler,
	}))

	summaries := r.Describe()
	require.Len(t, summaries, 1)
	assert.Equal(t, "echo", summaries[0].Name)
	require.Len(t, summaries[0].Params, 1)
	assert.Equal(t, "message", summaries[0].Params[0].Name)
}
