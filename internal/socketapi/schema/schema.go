// Package schema implements the parameter schema compiler: it introspects
// a handler's declared parameters and produces a compiled, call-time-cheap
// description of how to validate and bind each one.
package schema

import (
	"context"
	"reflect"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
)

// Kind distinguishes the registry's two disjoint name spaces.
type Kind string

const (
	Action  Kind = "action"
	Channel Kind = "channel"
)

// ParamKind classifies a single declared parameter.
type ParamKind string

const (
	// Value is an ordinary leaf parameter, bound from the request payload.
	Value ParamKind = "value"
	// Dependency is a nested sub-endpoint whose result is bound to this
	// parameter; its own parameters live nested under this one's name.
	Dependency ParamKind = "dependency"
	// RequiredOnSubscribe is only meaningful on channel parameters: it
	// must be supplied at subscribe time and is reused on every later
	// broadcast to that subscriber.
	RequiredOnSubscribe ParamKind = "required-on-subscribe"
)

// Args is the resolved argument vector passed to a handler.
type Args map[string]any

// HandlerFunc is the uniform invocation shim every action, channel, and
// dependency handler is adapted to. Returning (nil, nil) means "handler returned nothing" — no data frame /
// no data field is produced for it.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Param describes one declared parameter of an endpoint or dependency.
type Param struct {
	// Name is the key this parameter is bound under in the JSON payload.
	Name string
	Kind ParamKind

	// Type is the Go type value/required-on-subscribe parameters decode
	// into. Unused (nil) for Kind == Dependency.
	Type reflect.Type

	// Tag is a github.com/go-playground/validator/v10 tag string applied
	// to scalar values (e.g. "required,gte=0"). Struct-typed parameters
	// are instead validated via their own field tags.
	Tag string

	Default    any
	HasDefault bool

	// Dependency is the nested raw definition for Kind == Dependency.
	Dependency *Definition
}

// Definition is the raw, pre-compile description of a handler: an action,
// a channel, or a dependency (dependencies are structurally identical but
// are never addressable by name from the wire).
type Definition struct {
	Name            string
	Kind            Kind
	Params          []Param
	DefaultResponse bool
	Handler         HandlerFunc
}

// CompiledParam pairs a Param with its compiled dependency sub-schema, if
// any.
type CompiledParam struct {
	Param
	Nested *Compiled
}

// Compiled is the output of the schema compiler: an ordered parameter list
// ready for the resolver to walk, with cycles already ruled out.
type Compiled struct {
	Def    *Definition
	Params []CompiledParam
}

// Compile builds a Compiled schema from def, recursively compiling nested
// dependency definitions and rejecting cyclic dependency graphs.
func Compile(def *Definition) (*Compiled, error) {
	if def.Handler == nil {
		return nil, &apperrors.SocketError{
			Code:    apperrors.CodeUnregistrable,
			Message: "endpoint " + def.Name + " has no handler",
		}
	}
	return compile(def, map[*Definition]bool{})
}

func compile(def *Definition, stack map[*Definition]bool) (*Compiled, error) {
	if stack[def] {
		return nil, apperrors.CyclicDependency(def.Name)
	}
	stack[def] = true
	defer delete(stack, def)

	compiled := &Compiled{Def: def}
	for _, p := range def.Params {
		cp := CompiledParam{Param: p}
		switch p.Kind {
		case Dependency:
			if p.Dependency == nil {
				return nil, &apperrors.SocketError{
					Code:    apperrors.CodeUnregistrable,
					Message: "parameter " + p.Name + " of " + def.Name + " declared as dependency without a Definition",
				}
			}
			nested, err := compile(p.Dependency, stack)
			if err != nil {
				return nil, err
			}
			cp.Nested = nested
		case Value, RequiredOnSubscribe:
			if p.Type == nil {
				return nil, &apperrors.SocketError{
					Code:    apperrors.CodeUnregistrable,
					Message: "parameter " + p.Name + " of " + def.Name + " has no declared type",
				}
			}
		default:
			return nil, &apperrors.SocketError{
				Code:    apperrors.CodeUnregistrable,
				Message: "parameter " + p.Name + " of " + def.Name + " has unknown kind " + string(p.Kind),
			}
		}
		compiled.Params = append(compiled.Params, cp)
	}
	return compiled, nil
}
