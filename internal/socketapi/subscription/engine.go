// Package subscription implements the subscription/broadcast engine:
// per-channel subscriber sets, their subscribe-time bound arguments, and
// fan-out semantics when a channel handler is invoked from anywhere in
// the process.
package subscription

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/streamspace-dev/socketapi/internal/logging"
	"github.com/streamspace-dev/socketapi/internal/socketapi/resolver"
	"github.com/streamspace-dev/socketapi/internal/socketapi/wire"
)

// Subscriber is the engine's view of a session: just enough to enqueue an
// outbound frame and to know whether it's still worth trying. Sessions
// implement this; the engine never otherwise touches session internals.
type Subscriber interface {
	// ID uniquely identifies the subscriber for the lifetime of the
	// connection.
	ID() string
	// Enqueue queues frame on the subscriber's outbox. It returns false
	// if the frame was dropped (session CLOSING/CLOSED, or the outbox
	// stayed full past its backpressure deadline) — the engine treats
	// false as "nothing more to do", never as an error to propagate.
	Enqueue(frame wire.Outbound) bool
}

// Record is a subscription record: the per-(channel, session) state the
// engine owns.
type Record struct {
	BoundArgs map[string]any
	Created   uint64
}

type entry struct {
	sub     Subscriber
	channel string
	record  Record
}

// Engine tracks, per channel, the set of active subscriber sessions and
// fans out invocation results to them.
type Engine struct {
	mu sync.RWMutex
	// order preserves insertion order per channel: a broadcast snapshots
	// this slice, so a subscriber added mid-broadcast is not observed by
	// the in-flight broadcast.
	order map[string][]*entry
	// bySub indexes channel -> subscriberID -> entry for O(1) lookup and
	// in-place resubscribe/unsubscribe.
	bySub map[string]map[string]*entry
	// bySession indexes sessionID -> channel -> entry, so Detach can
	// remove every record for a closing session in one pass.
	bySession map[string]map[string]*entry

	seq       uint64
	resolver  *resolver.Resolver
	log       zerolog.Logger
	faultHook func()
}

// New returns an empty subscription engine.
func New(res *resolver.Resolver) *Engine {
	return &Engine{
		order:     map[string][]*entry{},
		bySub:     map[string]map[string]*entry{},
		bySession: map[string]map[string]*entry{},
		resolver:  res,
		log:       logging.Subscription(),
	}
}

// SetFaultHook wires a callback invoked once per broadcast-time handler
// fault, for the app-level metrics counters. Pass nil to disable.
func (e *Engine) SetFaultHook(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.faultHook = f
}

func (e *Engine) notifyFault() {
	e.mu.RLock()
	hook := e.faultHook
	e.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

// SubscriberCount returns the number of active subscriptions on channel.
// Exposed for tests and for the introspection/metrics surface.
func (e *Engine) SubscriberCount(channel string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.order[channel])
}
