// Package registry implements the endpoint registry: two disjoint name
// spaces, actions and channels, each mapping a name to a compiled handler
// descriptor. Lookup is read-only after startup and safe for
// unsynchronized concurrent reads, matching a build-once-then-read
// pattern for long-lived clients.
package registry

import (
	"sync"

	"github.com/streamspace-dev/socketapi/internal/apperrors"
	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
)

// Descriptor is an endpoint descriptor: immutable once registered,
// borrowed by name by both the session loop and the subscription engine
// for the lifetime of a single call.
type Descriptor struct {
	Name            string
	Kind            schema.Kind
	Compiled        *schema.Compiled
	DefaultResponse bool
	Handler         schema.HandlerFunc
}

// Registry holds the two disjoint name spaces. The zero value is not
// usable; construct with New.
type Registry struct {
	mu       sync.RWMutex
	actions  map[string]*Descriptor
	channels map[string]*Descriptor
	built    bool
}

// New returns an empty, mutable registry. Mutation is expected only during
// the application's startup phase; after that, callers should treat the
// registry as read-only (the mutex exists to make IncludeRouter safe
// during a hot-reload/test scenario, not to support steady-state writes).
func New() *Registry {
	return &Registry{
		actions:  map[string]*Descriptor{},
		channels: map[string]*Descriptor{},
	}
}

// Register compiles def's schema and adds it to the appropriate table.
// A duplicate name within the same kind, a cyclic dependency graph, or an
// unregistrable handler are all fatal registration errors.
func (r *Registry) Register(def *schema.Definition) error {
	compiled, err := schema.Compile(def)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.table(def.Kind)
	if _, exists := table[def.Name]; exists {
		return apperrors.DuplicateName(string(def.Kind), def.Name)
	}

	table[def.Name] = &Descriptor{
		Name:            def.Name,
		Kind:            def.Kind,
		Compiled:        compiled,
		DefaultResponse: def.DefaultResponse,
		Handler:         def.Handler,
	}

	logging.Registry().Info().Str("kind", string(def.Kind)).Str("name", def.Name).Msg("endpoint registered")
	return nil
}

func (r *Registry) table(kind schema.Kind) map[string]*Descriptor {
	if kind == schema.Channel {
		return r.channels
	}
	return r.actions
}

// Lookup finds a descriptor by kind and name. The returned pointer is safe
// to hold onto for the duration of a call; descriptors are never mutated
// post-registration.
func (r *Registry) Lookup(kind schema.Kind, name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.table(kind)[name]
	return d, ok
}

// Action looks up an action descriptor.
func (r *Registry) Action(name string) (*Descriptor, bool) { return r.Lookup(schema.Action, name) }

// Channel looks up a channel descriptor.
func (r *Registry) Channel(name string) (*Descriptor, bool) { return r.Lookup(schema.Channel, name) }

// IncludeRouter merges other's action and channel tables into r. Name
// collisions within a kind are fatal; the merge is all-or-nothing — on
// error, r is left unchanged.
func (r *Registry) IncludeRouter(other *Registry) error {
	other.mu.RLock()
	actions := make(map[string]*Descriptor, len(other.actions))
	for k, v := range other.actions {
		actions[k] = v
	}
	channels := make(map[string]*Descriptor, len(other.channels))
	for k, v := range other.channels {
		channels[k] = v
	}
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for name := range actions {
		if _, exists := r.actions[name]; exists {
			return apperrors.DuplicateName("action", name)
		}
	}
	for name := range channels {
		if _, exists := r.channels[name]; exists {
			return apperrors.DuplicateName("channel", name)
		}
	}

	for name, d := range actions {
		r.actions[name] = d
	}
	for name, d := range channels {
		r.channels[name] = d
	}
	return nil
}

// Describe returns a plain, JSON-marshalable snapshot of every registered
// endpoint's name, kind, and parameter shape, for generated docs / health
// pages.
func (r *Registry) Describe() []EndpointSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EndpointSummary, 0, len(r.actions)+len(r.channels))
	for _, d := range r.actions {
		out = append(out, summarize(d))
	}
	for _, d := range r.channels {
		out = append(out, summarize(d))
	}
	return out
}

// EndpointSummary is the introspection view of one registered endpoint.
type EndpointSummary struct {
	Name            string          `json:"name"`
	Kind            string          `json:"kind"`
	DefaultResponse bool            `json:"defaultResponse,omitempty"`
	Params          []ParamSummary  `json:"params"`
}

// ParamSummary is the introspection view of one parameter.
type ParamSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func summarize(d *Descriptor) EndpointSummary {
	s := EndpointSummary{Name: d.Name, Kind: string(d.Kind), DefaultResponse: d.DefaultResponse}
	for _, p := range d.Compiled.Params {
		s.Params = append(s.Params, ParamSummary{Name: p.Name, Kind: string(p.Kind)})
	}
	return s
}
