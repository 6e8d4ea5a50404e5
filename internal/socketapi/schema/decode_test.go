package schema

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLeafDirect(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "count", Type: reflect.TypeOf(0)}}
	v, err := DecodeLeaf(p, json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDecodeLeafCoercesStringToNumber(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "count", Type: reflect.TypeOf(0)}}
	v, err := DecodeLeaf(p, json.RawMessage(`"42"`))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDecodeLeafCoercesNumberToString(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "id", Type: reflect.TypeOf("")}}
	v, err := DecodeLeaf(p, json.RawMessage(`7`))
	require.NoError(t, err)
	assert.Equal(t, "7", v)
}

func TestDecodeLeafCoercesStringToBool(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "active", Type: reflect.TypeOf(false)}}
	v, err := DecodeLeaf(p, json.RawMessage(`"true"`))
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestDecodeLeafRejectsUnCoercible(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "count", Type: reflect.TypeOf(0)}}
	_, err := DecodeLeaf(p, json.RawMessage(`"not-a-number"`))
	assert.Error(t, err)
}

func TestDecodeLeafAppliesValidatorTag(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "age", Type: reflect.TypeOf(0), Tag: "gte=0"}}

	_, err := DecodeLeaf(p, json.RawMessage(`5`))
	assert.NoError(t, err)

	_, err = DecodeLeaf(p, json.RawMessage(`-1`))
	assert.Error(t, err)
}

type namedUser struct {
	Name string `validate:"required"`
}

func TestDecodeLeafValidatesStructFields(t *testing.T) {
	p := CompiledParam{Param: Param{Name: "user", Type: reflect.TypeOf(namedUser{})}}

	_, err := DecodeLeaf(p, json.RawMessage(`{"Name":"ada"}`))
	assert.NoError(t, err)

	_, err = DecodeLeaf(p, json.RawMessage(`{"Name":""}`))
	assert.Error(t, err)
}

func TestObjectFields(t *testing.T) {
	t.Run("empty raw message decodes to empty map", func(t *testing.T) {
		fields, err := ObjectFields(nil)
		require.NoError(t, err)
		assert.Empty(t, fields)
	})

	t.Run("splits a JSON object into top-level fields", func(t *testing.T) {
		fields, err := ObjectFields(json.RawMessage(`{"a":1,"b":"x"}`))
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, json.RawMessage(`1`), fields["a"])
		assert.Equal(t, json.RawMessage(`"x"`), fields["b"])
	})

	t.Run("rejects non-object JSON", func(t *testing.T) {
		_, err := ObjectFields(json.RawMessage(`[1,2,3]`))
		assert.Error(t, err)
	})
}
