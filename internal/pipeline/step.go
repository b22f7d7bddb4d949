// Package pipeline provides a small composable step framework: typed steps,
// sequential composition, and named pipelines that never leak panics or
// unclassified errors to their callers.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Step is a named unit of work from I to O.
type Step[I, O any] interface {
	Name() string
	Execute(ctx context.Context, in I, rc RunContext) (O, error)
}

// StepFunc adapts a function to the Step interface.
type StepFunc[I, O any] struct {
	name string
	fn   func(ctx context.Context, in I, rc RunContext) (O, error)
}

// NewStep builds a Step from a name and function.
func NewStep[I, O any](name string, fn func(ctx context.Context, in I, rc RunContext) (O, error)) *StepFunc[I, O] {
	return &StepFunc[I, O]{name: name, fn: fn}
}

// Name returns the step name.
func (s *StepFunc[I, O]) Name() string { return s.name }

// Execute calls the wrapped function.
func (s *StepFunc[I, O]) Execute(ctx context.Context, in I, rc RunContext) (O, error) {
	return s.fn(ctx, in, rc)
}

// Run executes a step with timing and logging. Panics and unclassified
// errors come back as a *StepError of kind Unexpected.
func Run[I, O any](ctx context.Context, step Step[I, O], in I, rc RunContext) (out O, serr *StepError) {
	name := step.Name()
	start := time.Now()
	logger := slog.Default().With("run_id", rc.RunID, "profile_id", rc.ProfileID, "step", name)
	logger.Debug("step started")

	defer func() {
		if r := recover(); r != nil {
			var zero O
			out = zero
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("panic: %v", r)
			}
			serr = Unexpected(name, "step panicked", cause)
		}
		elapsed := time.Since(start).Milliseconds()
		if serr != nil {
			logger.Warn("step failed", "duration_ms", elapsed, "error_kind", serr.Kind, "error", serr.Error())
			return
		}
		logger.Debug("step completed", "duration_ms", elapsed)
	}()

	result, err := step.Execute(ctx, in, rc)
	if err != nil {
		var zero O
		return zero, AsStepError(name, err)
	}
	return result, nil
}

type chained[I, M, O any] struct {
	first  Step[I, M]
	second Step[M, O]
}

// AndThen composes two steps; second only runs if first succeeds.
func AndThen[I, M, O any](first Step[I, M], second Step[M, O]) Step[I, O] {
	return &chained[I, M, O]{first: first, second: second}
}

func (c *chained[I, M, O]) Name() string {
	return c.first.Name() + " -> " + c.second.Name()
}

func (c *chained[I, M, O]) Execute(ctx context.Context, in I, rc RunContext) (O, error) {
	mid, err := Run(ctx, c.first, in, rc)
	if err != nil {
		var zero O
		return zero, err
	}
	out, err := Run(ctx, c.second, mid, rc)
	if err != nil {
		var zero O
		return zero, err
	}
	return out, nil
}

type branch[I, O any] struct {
	name      string
	cond      func(I) bool
	then      Step[I, O]
	otherwise Step[I, O]
}

// Branch runs then when cond holds for the input and otherwise when it
// does not. Only the chosen step executes.
func Branch[I, O any](name string, cond func(I) bool, then, otherwise Step[I, O]) Step[I, O] {
	return &branch[I, O]{name: name, cond: cond, then: then, otherwise: otherwise}
}

func (b *branch[I, O]) Name() string { return b.name }

func (b *branch[I, O]) Execute(ctx context.Context, in I, rc RunContext) (O, error) {
	next := b.otherwise
	if b.cond(in) {
		next = b.then
	}
	out, err := Run(ctx, next, in, rc)
	if err != nil {
		var zero O
		return zero, err
	}
	return out, nil
}
