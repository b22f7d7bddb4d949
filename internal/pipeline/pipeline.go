package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Result is the terminal outcome of a pipeline run. Exactly one of Output
// or Err is meaningful.
type Result[O any] struct {
	RunID      string
	DurationMs int64
	Output     O
	Err        *StepError
}

// OK reports whether the run succeeded.
func (r Result[O]) OK() bool { return r.Err == nil }

// Pipeline is a named root step.
type Pipeline[I, O any] struct {
	name string
	root Step[I, O]
}

// New creates a pipeline around an already composed step.
func New[I, O any](name string, root Step[I, O]) *Pipeline[I, O] {
	return &Pipeline[I, O]{name: name, root: root}
}

// Name returns the pipeline name.
func (p *Pipeline[I, O]) Name() string { return p.name }

// Execute lets a pipeline be nested inside another as a step.
func (p *Pipeline[I, O]) Execute(ctx context.Context, in I, rc RunContext) (O, error) {
	out, err := Run(ctx, p.root, in, rc)
	if err != nil {
		return out, err
	}
	return out, nil
}

// Run starts a fresh run on behalf of profileID.
func (p *Pipeline[I, O]) Run(ctx context.Context, in I, profileID string) Result[O] {
	return p.RunWith(ctx, in, NewRunContext(profileID))
}

// RunWith runs the pipeline under an existing run context.
func (p *Pipeline[I, O]) RunWith(ctx context.Context, in I, rc RunContext) Result[O] {
	start := time.Now()
	out, err := Run(ctx, Step[I, O](p), in, rc)
	res := Result[O]{
		RunID:      rc.RunID,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		res.Err = err
		slog.Info("pipeline failed", "pipeline", p.name, "run_id", rc.RunID,
			"duration_ms", res.DurationMs, "error_kind", err.Kind)
		return res
	}
	res.Output = out
	slog.Info("pipeline completed", "pipeline", p.name, "run_id", rc.RunID, "duration_ms", res.DurationMs)
	return res
}
