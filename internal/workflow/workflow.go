// Package workflow runs pipelines in the background. Each Workflow owns a
// bounded FIFO queue and a single worker, so messages are processed one at
// a time in submission order while Submit returns immediately.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonathan/job-ingest/internal/pipeline"
)

// DefaultQueueSize is used when New is given a non-positive size.
const DefaultQueueSize = 16

var (
	// ErrQueueFull is returned by Submit when the queue has no room.
	ErrQueueFull = errors.New("workflow queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("workflow is stopped")
)

// Runner is what a workflow drives. Both *pipeline.Pipeline and
// *ingestion.Router satisfy it.
type Runner[I, O any] interface {
	Name() string
	RunWith(ctx context.Context, in I, rc pipeline.RunContext) pipeline.Result[O]
}

// Accepted acknowledges a submitted message before it is processed.
type Accepted struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	Message  string `json:"message"`
}

type message[I any] struct {
	in I
	rc pipeline.RunContext
}

// Workflow processes submitted inputs sequentially on one goroutine.
type Workflow[I, O any] struct {
	name   string
	runner Runner[I, O]
	queue  chan message[I]

	// OnSuccess and OnFailure run on the worker goroutine after each
	// message. Set them before Start.
	OnSuccess func(rc pipeline.RunContext, res pipeline.Result[O])
	OnFailure func(rc pipeline.RunContext, res pipeline.Result[O])

	mu      sync.Mutex
	stopped bool
	start   sync.Once
	done    chan struct{}
}

// New creates a workflow named name around runner.
func New[I, O any](name string, runner Runner[I, O], queueSize int) *Workflow[I, O] {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Workflow[I, O]{
		name:   name,
		runner: runner,
		queue:  make(chan message[I], queueSize),
		done:   make(chan struct{}),
	}
}

// Name returns the workflow name.
func (w *Workflow[I, O]) Name() string { return w.name }

// Pending returns the number of queued messages not yet picked up.
func (w *Workflow[I, O]) Pending() int { return len(w.queue) }

// Start launches the worker. Cancelling ctx does not interrupt a message
// already being processed; use Stop to shut down.
func (w *Workflow[I, O]) Start(ctx context.Context) {
	w.start.Do(func() {
		go w.work(context.WithoutCancel(ctx))
	})
}

// Submit enqueues in on behalf of profileID without waiting for it to run.
func (w *Workflow[I, O]) Submit(in I, profileID string) (Accepted, error) {
	rc := pipeline.NewRunContext(profileID).WithMetadata("workflow", w.name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return Accepted{}, ErrStopped
	}
	select {
	case w.queue <- message[I]{in: in, rc: rc}:
	default:
		slog.Warn("workflow queue full, rejecting message", "workflow", w.name, "capacity", cap(w.queue))
		return Accepted{}, ErrQueueFull
	}

	slog.Info("workflow message accepted", "workflow", w.name, "run_id", rc.RunID, "profile_id", rc.ProfileID)
	return Accepted{
		RunID:    rc.RunID,
		Workflow: w.name,
		Message:  fmt.Sprintf("%s accepted; processing in background", w.name),
	}, nil
}

// Stop rejects further submissions and waits for queued messages to
// finish. It returns ctx.Err() if ctx ends first. A workflow that was
// never started is started so its queue drains.
func (w *Workflow[I, O]) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	w.Start(ctx)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Workflow[I, O]) work(ctx context.Context) {
	defer close(w.done)
	slog.Debug("workflow worker started", "workflow", w.name)
	for msg := range w.queue {
		w.process(ctx, msg)
	}
	slog.Debug("workflow worker stopped", "workflow", w.name)
}

func (w *Workflow[I, O]) process(ctx context.Context, msg message[I]) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workflow hook panicked", "workflow", w.name, "run_id", msg.rc.RunID, "panic", r)
		}
	}()

	res := w.runner.RunWith(ctx, msg.in, msg.rc)
	if res.Err != nil {
		slog.Error("workflow run failed", "workflow", w.name, "run_id", res.RunID,
			"duration_ms", res.DurationMs, "error_kind", res.Err.Kind, "error", res.Err.Error())
		if w.OnFailure != nil {
			w.OnFailure(msg.rc, res)
		}
		return
	}
	slog.Info("workflow run completed", "workflow", w.name, "run_id", res.RunID, "duration_ms", res.DurationMs)
	if w.OnSuccess != nil {
		w.OnSuccess(msg.rc, res)
	}
}
