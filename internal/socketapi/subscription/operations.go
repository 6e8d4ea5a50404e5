package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streamspace-dev/socketapi/internal/socketapi/registry"
	"github.com/streamspace-dev/socketapi/internal/socketapi/schema"
	"github.com/streamspace-dev/socketapi/internal/socketapi/wire"
)

// Subscribe registers sub for desc's channel, binding its required-on-
// subscribe parameters from payload. A second subscribe to the same
// channel replaces the previous record's BoundArgs in place — the
// subscription count stays at one.
//
// On success, a "subscribed" frame is enqueued. If desc.DefaultResponse is
// set, the channel handler is invoked immediately afterward and the result
// delivered only to sub (a subscribe-time self-prime; other subscribers
// are not notified). A handler fault during that self-prime is logged and
// dropped — the subscription itself remains intact.
func (e *Engine) Subscribe(ctx context.Context, sub Subscriber, desc *registry.Descriptor, payload map[string]json.RawMessage) error {
	bound, err := e.resolver.CaptureSubscribeArgs(desc.Compiled, payload)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.seq++
	seq := e.seq

	if ent, exists := e.bySub[desc.Name][sub.ID()]; exists {
		ent.record = Record{BoundArgs: bound, Created: ent.record.Created}
	} else {
		ent := &entry{sub: sub, channel: desc.Name, record: Record{BoundArgs: bound, Created: seq}}
		e.order[desc.Name] = append(e.order[desc.Name], ent)
		if e.bySub[desc.Name] == nil {
			e.bySub[desc.Name] = map[string]*entry{}
		}
		e.bySub[desc.Name][sub.ID()] = ent
		if e.bySession[sub.ID()] == nil {
			e.bySession[sub.ID()] = map[string]*entry{}
		}
		e.bySession[sub.ID()][desc.Name] = ent
	}
	e.mu.Unlock()

	sub.Enqueue(wire.Subscribed(desc.Name))

	if desc.DefaultResponse {
		e.deliverOne(ctx, sub, desc, payload, bound)
	}
	return nil
}

// Unsubscribe removes sub's subscription record for channel, if any, and
// always enqueues an "unsubscribed" frame — idempotent.
func (e *Engine) Unsubscribe(channel string, sub Subscriber) {
	e.mu.Lock()
	e.removeLocked(channel, sub.ID())
	e.mu.Unlock()
	sub.Enqueue(wire.Unsubscribed(channel))
}

// Detach removes every subscription record for sub without emitting any
// frames — the session is closing, there is nothing to notify.
func (e *Engine) Detach(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for channel := range e.bySession[sub.ID()] {
		e.removeLocked(channel, sub.ID())
	}
	delete(e.bySession, sub.ID())
}

// removeLocked must be called with e.mu held for writing.
func (e *Engine) removeLocked(channel, subID string) {
	subs := e.bySub[channel]
	if subs == nil {
		return
	}
	ent, ok := subs[subID]
	if !ok {
		return
	}
	delete(subs, subID)
	if len(subs) == 0 {
		delete(e.bySub, channel)
	}

	order := e.order[channel]
	for i, e2 := range order {
		if e2 == ent {
			e.order[channel] = append(order[:i], order[i+1:]...)
			break
		}
	}
	if len(e.order[channel]) == 0 {
		delete(e.order, channel)
	}

	if bySession := e.bySession[subID]; bySession != nil {
		delete(bySession, channel)
	}
}

// Broadcast invokes desc's handler once per current subscriber of its
// channel, merging callPayload over each subscriber's BoundArgs, and
// queues the result as a "data" frame on that subscriber's outbox. The
// subscriber set is snapshotted before fan-out begins: a
// subscribe/unsubscribe racing the broadcast is not observed by it.
//
// Broadcast blocks until every subscriber's handler invocation and enqueue
// attempt has completed; per-subscriber invocations run concurrently.
func (e *Engine) Broadcast(ctx context.Context, desc *registry.Descriptor, callPayload map[string]json.RawMessage) {
	e.mu.RLock()
	snapshot := make([]*entry, len(e.order[desc.Name]))
	copy(snapshot, e.order[desc.Name])
	e.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ent := range snapshot {
		ent := ent
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.deliverOne(ctx, ent.sub, desc, callPayload, ent.record.BoundArgs)
		}()
	}
	wg.Wait()
}

// deliverOne resolves and invokes desc's handler for a single subscriber
// and enqueues the result, if any. Errors are logged and the frame is
// dropped for that subscriber only — they never propagate to the caller.
func (e *Engine) deliverOne(ctx context.Context, sub Subscriber, desc *registry.Descriptor, callPayload map[string]json.RawMessage, bound map[string]any) {
	effective, err := overlay(bound, callPayload)
	if err != nil {
		e.log.Error().Err(err).Str("channel", desc.Name).Str("session", sub.ID()).Msg("failed to build effective broadcast payload")
		return
	}

	args, err := e.resolver.Resolve(ctx, desc.Compiled, effective)
	if err != nil {
		e.log.Warn().Err(err).Str("channel", desc.Name).Str("session", sub.ID()).Msg("broadcast argument resolution failed")
		e.notifyFault()
		return
	}

	result, err := invokeHandler(ctx, desc.Handler, args)
	if err != nil {
		e.log.Warn().Err(err).Str("channel", desc.Name).Str("session", sub.ID()).Msg("channel handler fault during broadcast")
		e.notifyFault()
		return
	}
	if result == nil {
		return
	}

	sub.Enqueue(wire.Data(desc.Name, result))
}

// overlay constructs the effective argument payload for one subscriber's
// broadcast: bound values (already validated at subscribe time) re-
// marshaled to JSON, overlaid by the call's own payload.
func overlay(bound map[string]any, call map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	merged := make(map[string]json.RawMessage, len(bound)+len(call))
	for k, v := range bound {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = b
	}
	for k, v := range call {
		merged[k] = v
	}
	return merged, nil
}

func invokeHandler(ctx context.Context, h schema.HandlerFunc, args schema.Args) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{rec}
		}
	}()
	return h(ctx, args)
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic in handler: %v", p.v) }
