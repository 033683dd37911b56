// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interrupt

import "errors"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrCanceled is the control-flow signal returned by Checkpoint when a
	// cancel request has been observed. It is not a real failure: work
	// callbacks must return it unchanged, and Run swallows it at the top.
	//
	// Never wrap a Checkpoint call in a broad error-handling block that
	// discards this value, or cancellation will stop working for the task.
	ErrCanceled = errors.New("task canceled")

	// ErrAlreadyRunning is returned by Run when the runner already has an
	// owner goroutine executing its work callback.
	ErrAlreadyRunning = errors.New("task already running")
)
