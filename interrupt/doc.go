// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package interrupt provides cooperative pause, resume and cancel for
// long-running background tasks.
//
// A task is a Work callback that periodically yields control by calling
// Checkpoint. Controller goroutines call Cancel, Pause and Resume; the task
// observes the request and honors it at its next checkpoint. The task runs
// on its own goroutine, so its responsiveness is bounded only by how often
// it checkpoints.
//
// # Key Types
//
//   - State: task state enumeration (NotRunning, Running, Paused, Canceled)
//   - Task: the control capability every interruptible task exposes
//   - Runner: the engine owning the state machine and checkpoint protocol
//   - Work: the unit-of-work callback
//
// # Usage
//
// Create and start a task:
//
//	r := interrupt.NewRunner("crunch", "crunches numbers", func(task *interrupt.Runner) error {
//		for i := 0; i <= 100; i++ {
//			step()
//			task.SetPercentCompleted(float64(i))
//			if err := task.Checkpoint(); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
//	go r.Run()
//
// Control it from anywhere:
//
//	r.Pause()
//	r.Resume()
//	r.Cancel()
//
// Observe it without polling:
//
//	r.Watch(interrupt.PropPercentCompleted, func(ev observe.Event) {
//		updates <- ev.New.(float64)
//	})
//
// The error returned by Checkpoint must travel unchanged up to the Work
// callback's return value. Code between a checkpoint and the top of the
// callback must not discard errors wholesale, or cancellation stops working.
package interrupt
