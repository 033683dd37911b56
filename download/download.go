// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package download provides an interruptible HTTP download task.
//
// A download.Task fetches a URL to a local file, reporting progress through
// the runner's percentCompleted property and checkpointing between chunks so
// pause and cancel requests take effect mid-transfer. The body streams into
// a temp file that is committed to the destination only on success; a
// canceled or failed transfer leaves nothing behind.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/jeranaias/interruptible/internal/util"
	"github.com/jeranaias/interruptible/interrupt"
)

// chunkSize is how many bytes are copied between checkpoints.
const chunkSize = 32 * 1024

// =============================================================================
// DOWNLOAD TASK
// =============================================================================

// Task downloads a URL to a file under cooperative interruption control.
// It embeds an interrupt.Runner, so the full control surface (Cancel, Pause,
// Resume, Watch, ...) is available on it directly.
type Task struct {
	*interrupt.Runner

	url  string
	dest string

	client  *http.Client
	limiter *rate.Limiter

	// httpCancel aborts the in-flight request so a cancel does not have to
	// wait out a stalled read. Stored by the owner goroutine at the start
	// of each run, read by controller goroutines in Cancel.
	httpCancel atomic.Pointer[context.CancelFunc]

	// open resources, released by the cleanup hook (owner goroutine only)
	body io.ReadCloser
	file *os.File
}

var _ interrupt.Task = (*Task)(nil)

// Option configures a download task.
type Option func(*Task)

// WithClient sets the HTTP client used for the transfer.
func WithClient(client *http.Client) Option {
	return func(t *Task) { t.client = client }
}

// WithRateLimit throttles the transfer to roughly bytesPerSec.
func WithRateLimit(bytesPerSec int) Option {
	return func(t *Task) {
		t.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), chunkSize)
	}
}

// New creates a download task fetching url into dest.
func New(url, dest string, opts ...Option) *Task {
	t := &Task{
		url:    url,
		dest:   dest,
		client: &http.Client{Timeout: 0},
	}
	for _, opt := range opts {
		opt(t)
	}

	name := filepath.Base(dest)
	t.Runner = interrupt.NewRunner(name, fmt.Sprintf("download %s to %s", url, dest), t.execute)
	t.Runner.SetCleanup(t.release)
	return t
}

// Cancel requests cancellation and then aborts the in-flight HTTP request,
// so a transfer stalled in a slow read unwinds promptly instead of waiting
// for the next chunk boundary. The request must die after the state flips to
// Canceled: the owner goroutine classifies a dead request by checkpointing.
func (t *Task) Cancel() {
	t.Runner.Cancel()
	if cancel := t.httpCancel.Load(); cancel != nil {
		(*cancel)()
	}
}

// =============================================================================
// WORK CALLBACK
// =============================================================================

// execute is the task's work callback.
func (t *Task) execute(run *interrupt.Runner) error {
	ctx, cancel := context.WithCancel(context.Background())
	t.httpCancel.Store(&cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if cerr := run.Checkpoint(); cerr != nil {
			// The request died because Cancel killed its context.
			return cerr
		}
		return fmt.Errorf("request failed: %w", err)
	}
	t.body = resp.Body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s fetching %s", resp.Status, t.url)
	}
	contentLength := resp.ContentLength

	if err := run.Checkpoint(); err != nil {
		return err
	}

	dir := filepath.Dir(t.dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	f, err := os.CreateTemp(dir, ".part-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	t.file = f

	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if t.limiter != nil {
				if lerr := t.limiter.WaitN(ctx, n); lerr != nil {
					if cerr := run.Checkpoint(); cerr != nil {
						return cerr
					}
					return fmt.Errorf("rate limit wait failed: %w", lerr)
				}
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write chunk: %w", werr)
			}
			written += int64(n)
			if contentLength > 0 {
				run.SetPercentCompleted(100 * float64(written) / float64(contentLength))
			}
		}

		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if cerr := run.Checkpoint(); cerr != nil {
				// Read aborted by Cancel killing the request context.
				return cerr
			}
			return fmt.Errorf("failed to read body: %w", rerr)
		}

		if err := run.Checkpoint(); err != nil {
			return err
		}
	}

	if contentLength > 0 && written != contentLength {
		return fmt.Errorf("short body: got %d of %d bytes", written, contentLength)
	}
	run.SetPercentCompleted(100)

	t.file = nil // committed below, not released by cleanup
	if err := util.CommitFile(f, t.dest); err != nil {
		t.file = f
		return err
	}
	return nil
}

// release is the cleanup hook: it closes whatever the run left open and
// removes an uncommitted partial file. It runs exactly once per run, on
// every exit path.
func (t *Task) release() {
	if t.body != nil {
		t.body.Close()
		t.body = nil
	}
	if t.file != nil {
		name := t.file.Name()
		t.file.Close()
		os.Remove(name)
		t.file = nil
	}
	if cancel := t.httpCancel.Swap(nil); cancel != nil {
		(*cancel)()
	}
}

// Dest reports the destination path.
func (t *Task) Dest() string { return t.dest }

// URL reports the source URL.
func (t *Task) URL() string { return t.url }
