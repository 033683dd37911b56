// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package observe provides a small synchronous property-change notifier.
//
// A Notifier maps property names to subscriber lists. Publishing an Event
// invokes every matching listener synchronously on the publishing goroutine,
// in subscription order. Listeners that need to do real work should hand the
// event off to their own goroutine or channel; a slow listener stalls the
// publisher.
package observe

import (
	"sync"
)

// =============================================================================
// EVENTS AND LISTENERS
// =============================================================================

// Event describes a single property mutation.
type Event struct {
	// Property is the name of the property that changed.
	Property string

	// Old is the value before the change.
	Old any

	// New is the value after the change.
	New any
}

// Listener receives property-change events. Listeners run synchronously on
// the goroutine that performed the mutation and must return quickly.
type Listener func(Event)

// =============================================================================
// NOTIFIER
// =============================================================================

type subscriber struct {
	id       uint64
	property string // empty means all properties
	fn       Listener
}

// Notifier is a registry of property-change listeners. The zero value is not
// usable; create one with New. A nil *Notifier is safe to publish to and to
// close, which lets owners allocate it lazily on first subscription.
type Notifier struct {
	mu     sync.RWMutex
	subs   []*subscriber
	nextID uint64
	closed bool
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers a listener for a single named property.
// The returned subscription cancels delivery when its Cancel method is called.
func (n *Notifier) Subscribe(property string, fn Listener) *Subscription {
	return n.add(property, fn)
}

// SubscribeAll registers a listener for every property.
func (n *Notifier) SubscribeAll(fn Listener) *Subscription {
	return n.add("", fn)
}

func (n *Notifier) add(property string, fn Listener) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || fn == nil {
		// Closed notifier: hand back an inert subscription so callers
		// don't need a nil check.
		return &Subscription{}
	}

	n.nextID++
	sub := &subscriber{id: n.nextID, property: property, fn: fn}
	n.subs = append(n.subs, sub)

	return &Subscription{notifier: n, id: sub.id}
}

// Publish delivers an event to every listener subscribed to the event's
// property and to every all-property listener, in subscription order, on the
// calling goroutine. Publishing to a nil or closed notifier is a no-op.
func (n *Notifier) Publish(ev Event) {
	if n == nil {
		return
	}

	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	// Snapshot so listeners can subscribe or cancel without deadlocking.
	targets := make([]Listener, 0, len(n.subs))
	for _, sub := range n.subs {
		if sub.property == "" || sub.property == ev.Property {
			targets = append(targets, sub.fn)
		}
	}
	n.mu.RUnlock()

	for _, fn := range targets {
		fn(ev)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	if n == nil {
		return 0
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close drops all subscriptions and rejects further ones. Safe to call more
// than once, and safe on a nil notifier.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subs = nil
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.subs {
		if sub.id == id {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscription is a handle to a registered listener.
type Subscription struct {
	notifier *Notifier
	id       uint64
	once     sync.Once
}

// Cancel removes the listener from its notifier. Idempotent. Events already
// being delivered on another goroutine may still arrive once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.notifier != nil {
			s.notifier.remove(s.id)
			s.notifier = nil
		}
	})
}
