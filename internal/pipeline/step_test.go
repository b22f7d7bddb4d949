package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func double() Step[int, int] {
	return NewStep("double", func(_ context.Context, in int, _ RunContext) (int, error) {
		return in * 2, nil
	})
}

func toString() Step[int, string] {
	return NewStep("to-string", func(_ context.Context, in int, _ RunContext) (string, error) {
		return strings.Repeat("x", in), nil
	})
}

func TestRun_Success(t *testing.T) {
	out, err := Run(context.Background(), double(), 21, NewRunContext("p1"))
	require.Nil(t, err)
	assert.Equal(t, 42, out)
}

func TestRun_PanicBecomesUnexpected(t *testing.T) {
	boom := NewStep("boom", func(_ context.Context, _ int, _ RunContext) (int, error) {
		panic("kaboom")
	})

	out, err := Run(context.Background(), Step[int, int](boom), 1, NewRunContext("p1"))
	require.NotNil(t, err)
	assert.Equal(t, KindUnexpected, err.Kind)
	assert.Equal(t, "boom", err.StepName)
	require.Error(t, err.Cause)
	assert.Contains(t, err.Cause.Error(), "kaboom")
	assert.Zero(t, out)
}

func TestRun_PanicWithErrorKeepsCause(t *testing.T) {
	sentinel := errors.New("sentinel")
	boom := NewStep("boom", func(_ context.Context, _ int, _ RunContext) (int, error) {
		panic(sentinel)
	})

	_, err := Run(context.Background(), Step[int, int](boom), 1, NewRunContext("p1"))
	require.NotNil(t, err)
	assert.ErrorIs(t, err, sentinel)
}

func TestRun_PlainErrorWrappedAsUnexpected(t *testing.T) {
	failing := NewStep("failing", func(_ context.Context, _ int, _ RunContext) (int, error) {
		return 0, errors.New("plain")
	})

	_, err := Run(context.Background(), Step[int, int](failing), 1, NewRunContext("p1"))
	require.NotNil(t, err)
	assert.Equal(t, KindUnexpected, err.Kind)
	assert.EqualError(t, err.Cause, "plain")
}

func TestRun_StepErrorPassesThrough(t *testing.T) {
	failing := NewStep("load", func(_ context.Context, _ int, _ RunContext) (int, error) {
		return 0, Load("load", "insert failed", nil)
	})

	_, err := Run(context.Background(), Step[int, int](failing), 1, NewRunContext("p1"))
	require.NotNil(t, err)
	assert.Equal(t, KindLoad, err.Kind)
	assert.Equal(t, "insert failed", err.Message)
}

func TestAndThen(t *testing.T) {
	chain := AndThen(double(), toString())
	assert.Equal(t, "double -> to-string", chain.Name())

	out, err := Run(context.Background(), chain, 2, NewRunContext("p1"))
	require.Nil(t, err)
	assert.Equal(t, "xxxx", out)
}

func TestAndThen_ShortCircuits(t *testing.T) {
	called := false
	first := NewStep("first", func(_ context.Context, _ int, _ RunContext) (int, error) {
		return 0, Validation("first", "bad input", nil)
	})
	second := NewStep("second", func(_ context.Context, in int, _ RunContext) (int, error) {
		called = true
		return in, nil
	})

	_, err := Run(context.Background(), AndThen[int, int, int](first, second), 1, NewRunContext("p1"))
	require.NotNil(t, err)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "first", err.StepName)
	assert.False(t, called)
}

func TestPipeline_Run(t *testing.T) {
	p := New("demo", AndThen(double(), toString()))

	res := p.Run(context.Background(), 3, "")
	require.True(t, res.OK())
	assert.Equal(t, "xxxxxx", res.Output)
	assert.NotEmpty(t, res.RunID)
	assert.GreaterOrEqual(t, res.DurationMs, int64(0))
}

func TestPipeline_RunNeverPanics(t *testing.T) {
	boom := NewStep("boom", func(_ context.Context, _ int, _ RunContext) (int, error) {
		var m map[string]int
		m["x"] = 1
		return 0, nil
	})
	p := New[int, int]("explodes", boom)

	var res Result[int]
	assert.NotPanics(t, func() {
		res = p.Run(context.Background(), 1, "user-1")
	})
	require.NotNil(t, res.Err)
	assert.Equal(t, KindUnexpected, res.Err.Kind)
	assert.Error(t, res.Err.Cause)
}

func TestStepError_Is(t *testing.T) {
	err := Network("fetch", "timeout", nil)
	assert.ErrorIs(t, err, &StepError{Kind: KindNetwork})
	assert.NotErrorIs(t, err, &StepError{Kind: KindLoad})
}

func TestAsStepError(t *testing.T) {
	assert.Nil(t, AsStepError("x", nil))

	orig := NotFound("lookup", "missing", nil)
	assert.Same(t, orig, AsStepError("other", orig))

	wrapped := AsStepError("x", errors.New("raw"))
	assert.Equal(t, KindUnexpected, wrapped.Kind)
	assert.Equal(t, "x", wrapped.StepName)
}

func TestBranch(t *testing.T) {
	var ran []string
	tag := func(name string, delta int) Step[int, int] {
		return NewStep(name, func(_ context.Context, in int, _ RunContext) (int, error) {
			ran = append(ran, name)
			return in + delta, nil
		})
	}
	b := Branch("route", func(in int) bool { return in > 0 }, tag("positive", 1), tag("other", -1))
	assert.Equal(t, "route", b.Name())

	out, err := Run(context.Background(), b, 5, NewRunContext(""))
	require.Nil(t, err)
	assert.Equal(t, 6, out)

	out, err = Run(context.Background(), b, -5, NewRunContext(""))
	require.Nil(t, err)
	assert.Equal(t, -6, out)
	assert.Equal(t, []string{"positive", "other"}, ran)
}

func TestBranch_PropagatesError(t *testing.T) {
	fail := NewStep("fail", func(_ context.Context, _ int, _ RunContext) (int, error) {
		return 0, NotFound("fail", "missing", nil)
	})
	b := Branch[int, int]("route", func(int) bool { return true }, fail, double())
	_, err := Run(context.Background(), b, 1, NewRunContext(""))
	require.NotNil(t, err)
	assert.Equal(t, KindNotFound, err.Kind)
	assert.Equal(t, "fail", err.StepName)
}
