// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interrupt

// =============================================================================
// TASK STATE
// =============================================================================

// State represents the lifecycle state of an interruptible task.
//
// A task tracks two State values at once: the requested state, set
// synchronously by controller calls (Cancel, Pause, Resume), and the
// observed state, set only by the task's own goroutine when it reaches a
// checkpoint. The observed state lags the requested state by at most one
// checkpoint interval.
type State int32

const (
	// NotRunning is the initial state, and the state after a task
	// completes normally.
	NotRunning State = iota

	// Running indicates the work callback is executing or about to execute.
	Running

	// Paused indicates a pause was requested. The task goroutine may keep
	// running until it reaches its next checkpoint.
	Paused

	// Canceled indicates a cancellation was requested. A task that stops
	// because of a cancel stays Canceled until Resume moves it back to
	// NotRunning; a task that finishes normally moves to NotRunning.
	Canceled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case NotRunning:
		return "NotRunning"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}
