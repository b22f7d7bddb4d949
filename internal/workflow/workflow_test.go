package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-ingest/internal/pipeline"
)

// echoRunner records inputs and fails on negative ones.
type echoRunner struct {
	mu   sync.Mutex
	seen []int
	gate chan struct{}
}

func (r *echoRunner) Name() string { return "echo" }

func (r *echoRunner) RunWith(_ context.Context, in int, rc pipeline.RunContext) pipeline.Result[int] {
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	r.seen = append(r.seen, in)
	r.mu.Unlock()
	if in < 0 {
		return pipeline.Result[int]{RunID: rc.RunID, Err: pipeline.Validation("echo", "negative input", nil)}
	}
	return pipeline.Result[int]{RunID: rc.RunID, Output: in * 2}
}

func (r *echoRunner) inputs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seen...)
}

func TestWorkflow_ProcessesInOrder(t *testing.T) {
	runner := &echoRunner{}
	wf := New[int, int]("echo", runner, 8)

	var mu sync.Mutex
	var outputs []int
	var failures []string
	wf.OnSuccess = func(_ pipeline.RunContext, res pipeline.Result[int]) {
		mu.Lock()
		outputs = append(outputs, res.Output)
		mu.Unlock()
	}
	wf.OnFailure = func(rc pipeline.RunContext, res pipeline.Result[int]) {
		mu.Lock()
		failures = append(failures, res.RunID)
		mu.Unlock()
		assert.Equal(t, rc.RunID, res.RunID)
	}
	wf.Start(context.Background())

	var accepted []Accepted
	for _, in := range []int{1, 2, -3, 4} {
		ack, err := wf.Submit(in, "user-1")
		require.NoError(t, err)
		accepted = append(accepted, ack)
	}
	assert.Equal(t, "echo", accepted[0].Workflow)
	assert.NotEmpty(t, accepted[0].RunID)
	assert.NotEqual(t, accepted[0].RunID, accepted[1].RunID)
	assert.Contains(t, accepted[0].Message, "accepted")

	require.NoError(t, wf.Stop(context.Background()))

	assert.Equal(t, []int{1, 2, -3, 4}, runner.inputs())
	assert.Equal(t, []int{2, 4, 8}, outputs)
	assert.Equal(t, []string{accepted[2].RunID}, failures)
}

func TestWorkflow_QueueFull(t *testing.T) {
	wf := New[int, int]("echo", &echoRunner{}, 1)

	_, err := wf.Submit(1, "")
	require.NoError(t, err)
	_, err = wf.Submit(2, "")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, wf.Pending())
}

func TestWorkflow_StopDrainsAndRejects(t *testing.T) {
	runner := &echoRunner{}
	wf := New[int, int]("echo", runner, 4)

	_, err := wf.Submit(1, "")
	require.NoError(t, err)
	_, err = wf.Submit(2, "")
	require.NoError(t, err)

	require.NoError(t, wf.Stop(context.Background()))
	assert.Equal(t, []int{1, 2}, runner.inputs())

	_, err = wf.Submit(3, "")
	assert.ErrorIs(t, err, ErrStopped)
	require.NoError(t, wf.Stop(context.Background()))
}

func TestWorkflow_StopTimesOut(t *testing.T) {
	runner := &echoRunner{gate: make(chan struct{})}
	wf := New[int, int]("echo", runner, 4)
	wf.Start(context.Background())
	_, err := wf.Submit(1, "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = wf.Stop(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(runner.gate)
	require.NoError(t, wf.Stop(context.Background()))
	assert.Equal(t, []int{1}, runner.inputs())
}

func TestWorkflow_CancelledStartContextDoesNotAbortWork(t *testing.T) {
	runner := &echoRunner{}
	wf := New[int, int]("echo", runner, 4)
	ctx, cancel := context.WithCancel(context.Background())
	wf.Start(ctx)
	cancel()

	_, err := wf.Submit(5, "")
	require.NoError(t, err)
	require.NoError(t, wf.Stop(context.Background()))
	assert.Equal(t, []int{5}, runner.inputs())
}

func TestWorkflow_HookPanicIsContained(t *testing.T) {
	runner := &echoRunner{}
	wf := New[int, int]("echo", runner, 4)
	wf.OnSuccess = func(pipeline.RunContext, pipeline.Result[int]) { panic("hook") }
	wf.Start(context.Background())

	_, err := wf.Submit(1, "")
	require.NoError(t, err)
	_, err = wf.Submit(2, "")
	require.NoError(t, err)
	require.NoError(t, wf.Stop(context.Background()))
	assert.Equal(t, []int{1, 2}, runner.inputs())
}
