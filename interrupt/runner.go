// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package interrupt

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jeranaias/interruptible/observe"
)

// =============================================================================
// WORK CALLBACK
// =============================================================================

// Work is the unit of work a Runner executes. It runs on whatever goroutine
// the caller hands to Run, and it must call task.Checkpoint periodically so
// pause and cancel requests get observed. Any error returned by Checkpoint
// must be propagated unchanged up to the caller's return.
type Work func(task *Runner) error

// =============================================================================
// RUNNER
// =============================================================================

// Runner executes a Work callback with cooperative pause, resume and cancel.
//
// Exactly one goroutine (the owner) runs the work callback at a time; any
// number of controller goroutines may call Cancel, Pause, Resume, Destroy
// and the getters concurrently. The only place the owner goroutine blocks is
// inside Checkpoint while a pause is in effect.
//
// Runner keeps two state fields. The requested state is the most recent
// controller directive and changes synchronously inside the control calls.
// The observed state is what the owner goroutine has actually reached, and
// only Run and Checkpoint move it. A controller that needs to know whether a
// pause has taken effect yet must read RealState, not State.
type Runner struct {
	id          string
	name        string
	description string

	work    Work
	cleanup func()
	destroy func()

	// mu guards all state transitions and pairs with cond for the pause
	// block/wake protocol. The state fields themselves are atomics so
	// getters stay lock-free.
	mu   sync.Mutex
	cond *sync.Cond

	requested atomic.Int32
	observed  atomic.Int32
	percent   atomic.Uint64 // Float64bits

	workErr     atomic.Pointer[error]
	active      atomic.Bool
	notifier    atomic.Pointer[observe.Notifier]
	destroyOnce sync.Once
}

var _ Task = (*Runner)(nil)

// NewRunner creates a runner in NotRunning/NotRunning for the given work
// callback. The name is used in log messages and defaults to "task" when
// empty.
func NewRunner(name, description string, work Work) *Runner {
	if name == "" {
		name = "task"
	}
	r := &Runner{
		id:          uuid.New().String(),
		name:        name,
		description: description,
		work:        work,
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// SetCleanup installs a hook that runs exactly once after the work callback
// returns, whatever the outcome. The hook is where a task closes files,
// connections and other resources it opened. A panic inside the hook is
// recovered and logged so it can never mask the work's own result.
// Must be set before Run.
func (r *Runner) SetCleanup(fn func()) {
	r.cleanup = fn
}

// SetDestroy installs a hook invoked by Destroy. Must be set before Run.
func (r *Runner) SetDestroy(fn func()) {
	r.destroy = fn
}

// =============================================================================
// CONTROLLER OPERATIONS
// =============================================================================

// Cancel requests cancellation. The requested state moves to Canceled from
// any state; if the owner goroutine is parked in a pause wait it is woken so
// it can observe the cancel. Idempotent.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := State(r.requested.Load())
	if prev == Canceled {
		return
	}

	r.setRequestedLocked(Canceled)

	if prev == Paused {
		r.cond.Broadcast()
	}
}

// Pause requests that the task block at its next checkpoint. A pause that
// arrives after a cancel is ignored: letting it through would quietly undo
// the pending cancellation. Idempotent.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch State(r.requested.Load()) {
	case Canceled, Paused:
		return
	}

	r.setRequestedLocked(Paused)
}

// Resume wakes a paused task, or moves a canceled task back to NotRunning so
// it can be run again. No effect from NotRunning or Running.
func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch State(r.requested.Load()) {
	case Paused:
		r.setRequestedLocked(Running)
		r.cond.Broadcast()
	case Canceled:
		r.setRequestedLocked(NotRunning)
	}
}

// Destroy tears down the notifier and invokes the destroy hook, if any.
// Safe to call multiple times; does not touch the state machine.
func (r *Runner) Destroy() {
	r.destroyOnce.Do(func() {
		r.notifier.Load().Close()

		if r.destroy != nil {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("WARNING: destroy hook for task %s panicked: %v", r.name, rec)
				}
			}()
			r.destroy()
		}
	})
}

// =============================================================================
// GETTERS
// =============================================================================

// ID returns the unique identifier assigned to this runner.
func (r *Runner) ID() string { return r.id }

// Name returns the task name.
func (r *Runner) Name() string { return r.name }

// Description returns the task description.
func (r *Runner) Description() string { return r.description }

// State returns the requested state: the most recent controller directive.
func (r *Runner) State() State { return State(r.requested.Load()) }

// RealState returns the observed state: what the owner goroutine has
// actually reached. It lags State until the next checkpoint runs.
func (r *Runner) RealState() State { return State(r.observed.Load()) }

// PercentCompleted returns the current progress in [0, 100].
func (r *Runner) PercentCompleted() float64 {
	return math.Float64frombits(r.percent.Load())
}

// Err returns the failure stored by the most recent run, or nil. A canceled
// run stores nothing: cancellation is not a failure.
func (r *Runner) Err() error {
	if p := r.workErr.Load(); p != nil {
		return *p
	}
	return nil
}

// setErr stores the failure of the current run.
func (r *Runner) setErr(err error) {
	r.workErr.Store(&err)
}

// =============================================================================
// OBSERVATION
// =============================================================================

// Watch subscribes a listener to one named property. See Task.Watch for the
// delivery rules.
func (r *Runner) Watch(property string, fn observe.Listener) *observe.Subscription {
	return r.events().Subscribe(property, fn)
}

// WatchAll subscribes a listener to every property.
func (r *Runner) WatchAll(fn observe.Listener) *observe.Subscription {
	return r.events().SubscribeAll(fn)
}

// events returns the notifier, creating it on first use.
func (r *Runner) events() *observe.Notifier {
	if n := r.notifier.Load(); n != nil {
		return n
	}
	n := observe.New()
	if r.notifier.CompareAndSwap(nil, n) {
		return n
	}
	return r.notifier.Load()
}

// =============================================================================
// OWNER-GOROUTINE OPERATIONS
// =============================================================================

// SetPercentCompleted records progress, clamped to [0, 100], and notifies
// percentCompleted watchers. Only the owner goroutine may call it.
func (r *Runner) SetPercentCompleted(percent float64) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old := math.Float64frombits(r.percent.Load())
	r.percent.Store(math.Float64bits(percent))
	r.notifier.Load().Publish(observe.Event{Property: PropPercentCompleted, Old: old, New: percent})
}

// Checkpoint is the single suspension point of a task. The work callback
// calls it periodically; it returns nil when execution should continue and
// ErrCanceled when the task must unwind because of a cancel request.
//
// While a pause is requested the calling goroutine blocks here until a
// Resume or Cancel wakes it. The cancel test runs unconditionally after the
// pause wait, not in an else branch: a cancel that lands while the task is
// parked must be observed on the way out, without the task ever reporting
// Running in between.
func (r *Runner) Checkpoint() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-test after every wake: the condition may have changed again
	// between the Broadcast and this goroutine reacquiring the lock.
	for State(r.requested.Load()) == Paused {
		r.setObservedLocked(Paused)
		r.cond.Wait()
	}

	if State(r.requested.Load()) == Canceled {
		r.setObservedLocked(Canceled)
		return ErrCanceled
	}

	if State(r.requested.Load()) == Running && State(r.observed.Load()) != Running {
		r.setObservedLocked(Running)
	}

	return nil
}

// Run executes the work callback on the calling goroutine. Callers normally
// invoke it as `go r.Run()` and drive the task through the control methods.
//
// Run returns nil when the work completes normally or is canceled, and the
// work's failure otherwise; the failure is also retrievable through Err by
// controller goroutines. A second concurrent Run returns ErrAlreadyRunning
// without touching the state machine.
func (r *Runner) Run() error {
	if !r.active.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.active.Store(false)

	r.mu.Lock()
	r.setErr(nil)
	if State(r.requested.Load()) == NotRunning {
		r.setRequestedLocked(Running)
		r.setObservedLocked(Running)
	}
	r.mu.Unlock()

	err := r.runWork()

	if errors.Is(err, ErrCanceled) {
		// The intended termination path for a cancel. Both state fields
		// stay Canceled until the controller calls Resume.
		return nil
	}

	r.mu.Lock()
	r.setErr(err)
	if State(r.requested.Load()) == Running {
		r.setRequestedLocked(NotRunning)
	}
	if State(r.observed.Load()) == Running {
		r.setObservedLocked(NotRunning)
	}
	r.mu.Unlock()

	return err
}

// runWork runs the initial checkpoint and the work callback, converting a
// panic into a stored failure. The cleanup hook is deferred first so it runs
// exactly once on every exit path.
func (r *Runner) runWork() (err error) {
	defer r.runCleanup()
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok && errors.Is(e, ErrCanceled) {
				err = e
				return
			}
			err = fmt.Errorf("task %s panicked: %v", r.name, rec)
		}
	}()

	// Catches a cancel that arrived before the owner goroutine started.
	if err := r.Checkpoint(); err != nil {
		return err
	}

	if r.work == nil {
		return nil
	}
	return r.work(r)
}

// runCleanup invokes the cleanup hook with a no-throw contract: whatever the
// hook does, the work's own outcome survives.
func (r *Runner) runCleanup() {
	if r.cleanup == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("WARNING: cleanup for task %s panicked: %v", r.name, rec)
		}
	}()
	r.cleanup()
}

// =============================================================================
// INTERNAL STATE TRANSITIONS
// =============================================================================

// setRequestedLocked moves the requested state and notifies watchers.
// Must be called with mu held.
func (r *Runner) setRequestedLocked(to State) {
	old := State(r.requested.Swap(int32(to)))
	if old == to {
		return
	}
	r.notifier.Load().Publish(observe.Event{Property: PropState, Old: old, New: to})
}

// setObservedLocked moves the observed state and notifies watchers.
// Must be called with mu held; only Run and Checkpoint call it.
func (r *Runner) setObservedLocked(to State) {
	old := State(r.observed.Swap(int32(to)))
	if old == to {
		return
	}
	r.notifier.Load().Publish(observe.Event{Property: PropRealState, Old: old, New: to})
}
