// Package resolver implements the dependency resolver: given a compiled
// schema and a JSON payload, it produces the validated argument vector a
// handler is invoked with, recursively resolving and invoking nested
// dependency handlers.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
)

// Resolver is stateless and re-entrant: the zero value is ready to use,
// and the same Resolver may resolve many calls concurrently.
type Resolver struct{}

// New returns a ready-to-use Resolver.
func New() *Resolver { return &Resolver{} }

// Resolve walks compiled.Params in declared order against payload,
// producing the argument vector the endpoint's handler is invoked with.
// Dependency parameters are resolved recursively and their handlers
// invoked inline — results are never memoized across calls.
func (r *Resolver) Resolve(ctx context.Context, compiled *schema.Compiled, payload map[string]json.RawMessage) (schema.Args, error) {
	args := make(schema.Args, len(compiled.Params))

	for _, p := range compiled.Params {
		raw, present := payload[p.Name]

		switch p.Kind {
		case schema.Value, schema.RequiredOnSubscribe:
			if !present || len(raw) == 0 {
				if p.HasDefault {
					args[p.Name] = p.Default
					continue
				}
				return nil, apperrors.InvalidParameters(compiled.Def.Name,
					fmt.Sprintf("missing required parameter %q", p.Name))
			}
			v, err := schema.DecodeLeaf(p, raw)
			if err != nil {
				return nil, apperrors.InvalidParameters(compiled.Def.Name, err.Error())
			}
			args[p.Name] = v

		case schema.Dependency:
			var nestedObj map[string]json.RawMessage
			if present && len(raw) > 0 {
				fields, err := schema.ObjectFields(raw)
				if err != nil {
					return nil, apperrors.InvalidParameters(compiled.Def.Name,
						fmt.Sprintf("parameter %q must be an object", p.Name))
				}
				nestedObj = fields
			} else {
				nestedObj = map[string]json.RawMessage{}
			}

			nestedArgs, err := r.Resolve(ctx, p.Nested, nestedObj)
			if err != nil {
				return nil, err
			}

			val, err := invoke(ctx, p.Nested.Def.Handler, nestedArgs)
			if err != nil {
				return nil, apperrors.HandlerFault(p.Nested.Def.Name, err)
			}
			args[p.Name] = val
		}
	}

	return args, nil
}

// CaptureSubscribeArgs resolves only the required-on-subscribe parameters
// of compiled against payload, producing the map a subscription record's
// BoundArgs is built from. Value and dependency parameters are left
// untouched — they are resolved fresh on every broadcast.
func (r *Resolver) CaptureSubscribeArgs(compiled *schema.Compiled, payload map[string]json.RawMessage) (map[string]any, error) {
	bound := map[string]any{}
	for _, p := range compiled.Params {
		if p.Kind != schema.RequiredOnSubscribe {
			continue
		}
		raw, present := payload[p.Name]
		if !present || len(raw) == 0 {
			if p.HasDefault {
				bound[p.Name] = p.Default
				continue
			}
			return nil, apperrors.InvalidParameters(compiled.Def.Name,
				fmt.Sprintf("missing required-on-subscribe parameter %q", p.Name))
		}
		v, err := schema.DecodeLeaf(p, raw)
		if err != nil {
			return nil, apperrors.InvalidParameters(compiled.Def.Name, err.Error())
		}
		bound[p.Name] = v
	}
	return bound, nil
}

// invoke runs a handler, converting a panic into a handler-fault error so
// one misbehaving dependency never crashes the process.
func invoke(ctx context.Context, h schema.HandlerFunc, args schema.Args) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, args)
}
