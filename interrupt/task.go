// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interrupt

import (
	"github.com/jeranaias/interruptible/observe"
)

// =============================================================================
// CONTROLLABLE TASK CONTRACT
// =============================================================================

// Property names published by a Runner. Subscribe to these through Watch.
const (
	// PropState is published whenever the requested state changes.
	PropState = "state"

	// PropRealState is published whenever the observed state changes.
	PropRealState = "realState"

	// PropPercentCompleted is published whenever the task reports progress.
	PropPercentCompleted = "percentCompleted"
)

// Task is the control surface every interruptible task exposes. The concrete
// implementation in this package is Runner; workload types like
// download.Task satisfy it by embedding one.
//
// Control methods (Cancel, Pause, Resume, Destroy) are cheap, non-blocking
// and safe to call from any goroutine, concurrently with the task's own
// goroutine and with each other. Getters never block.
type Task interface {
	// Cancel requests cancellation. If the task goroutine is blocked in a
	// pause it is woken so it can observe the cancel. Idempotent.
	Cancel()

	// Pause requests that the task block at its next checkpoint. Ignored
	// once a cancel has been requested: cancel dominates pause.
	Pause()

	// Resume undoes a pause (waking the blocked task goroutine) or, after
	// a cancel, moves the task back to NotRunning so it can be run again.
	// No effect from NotRunning or Running.
	Resume()

	// Destroy releases resources held beyond the state machine, such as
	// listener registrations. Safe to call multiple times. It does not
	// touch the state machine.
	Destroy()

	// State returns the requested state: the most recent controller
	// directive.
	State() State

	// RealState returns the observed state: what the task's own goroutine
	// has actually reached. It lags State until the next checkpoint runs.
	RealState() State

	// PercentCompleted returns the task's progress in [0, 100].
	PercentCompleted() float64

	// Err returns the failure stored by the last run, or nil. Cancellation
	// is not a failure and is never reported here.
	Err() error

	// Name returns a short name for the task.
	Name() string

	// Description returns a human-readable description of the task.
	Description() string

	// Watch subscribes a listener to one named property (PropState,
	// PropRealState or PropPercentCompleted). Listeners run synchronously
	// on the mutating goroutine while the task's lock is held: they must
	// return quickly, and must not call control methods on the same task.
	Watch(property string, fn observe.Listener) *observe.Subscription

	// WatchAll subscribes a listener to every property. Same delivery
	// rules as Watch.
	WatchAll(fn observe.Listener) *observe.Subscription
}
