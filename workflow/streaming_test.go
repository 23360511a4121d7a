package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stepflow/internal/testutil"
	"github.com/hupe1980/stepflow/workflow"
)

const streamTimeout = 5 * time.Second

type runOutcome struct {
	res *workflow.Result
	err error
}

func runAsync(ctx context.Context, wf *workflow.Workflow, optFns ...func(o *workflow.RunOptions)) <-chan runOutcome {
	out := make(chan runOutcome, 1)
	go func() {
		res, err := wf.Run(ctx, optFns...)
		out <- runOutcome{res: res, err: err}
	}()
	return out
}

func await(t *testing.T, ch <-chan runOutcome) runOutcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(streamTimeout):
		t.Fatal("run did not finish")
		return runOutcome{}
	}
}

func TestStreamEvents(t *testing.T) {
	ctx := context.Background()
	wf := testutil.Streaming(t)

	done := runAsync(ctx, wf)

	events, err := wf.StreamEvents(ctx)
	require.NoError(t, err)

	got := testutil.Collect(t, events, streamTimeout)
	assert.Equal(t, testutil.Words(), testutil.Msgs(got))

	o := await(t, done)
	require.NoError(t, o.err)
	assert.Equal(t, "done", o.res.Result)
}

func TestStreamEvents_AfterRunFinished(t *testing.T) {
	ctx := context.Background()
	wf := testutil.Streaming(t)

	_, err := wf.Run(ctx)
	require.NoError(t, err)

	events, err := wf.StreamEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutil.Words(), testutil.Msgs(testutil.Collect(t, events, streamTimeout)))

	// each implicit run is streamed at most once
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = wf.StreamEvents(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamEvents_TooManyRuns(t *testing.T) {
	ctx := context.Background()
	gate := testutil.NewGate()
	wf := testutil.Gated(t, gate)

	r1 := runAsync(ctx, wf)
	r2 := runAsync(ctx, wf)

	require.Eventually(t, func() bool { return wf.Running() == 2 }, streamTimeout, 5*time.Millisecond)

	_, err := wf.StreamEvents(ctx)
	assert.ErrorIs(t, err, workflow.ErrAmbiguousStream)
	assert.EqualError(t, err, "this workflow has multiple concurrent runs in progress and cannot stream events")

	gate.Open()
	require.NoError(t, await(t, r1).err)
	require.NoError(t, await(t, r2).err)
}

func TestStreamEvents_TaskRaised(t *testing.T) {
	ctx := context.Background()
	wf := testutil.Failing(t)

	done := runAsync(ctx, wf)

	events, err := wf.StreamEvents(ctx)
	require.NoError(t, err)

	// the event written before the failure is still delivered
	got := testutil.Collect(t, events, streamTimeout)
	assert.Equal(t, []string{"test"}, testutil.Msgs(got))

	o := await(t, done)
	assert.ErrorIs(t, o.err, testutil.ErrBoom)
}

func TestStreamEvents_MultipleSequentialStreams(t *testing.T) {
	ctx := context.Background()
	wf := testutil.Streaming(t)

	for i := 0; i < 2; i++ {
		done := runAsync(ctx, wf)

		events, err := wf.StreamEvents(ctx)
		require.NoError(t, err)
		assert.Len(t, testutil.Collect(t, events, streamTimeout), len(testutil.Words()))

		require.NoError(t, await(t, done).err)
	}
}

func TestStreamEvents_WaitCanceled(t *testing.T) {
	wf := testutil.Streaming(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := wf.StreamEvents(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamRun(t *testing.T) {
	wf := testutil.Streaming(t)

	events, errs := wf.StreamRun(context.Background())
	got := testutil.Collect(t, events, streamTimeout)

	require.Len(t, got, len(testutil.Words())+1)
	assert.Equal(t, testutil.Words(), testutil.Msgs(got))

	res, ok := got[len(got)-1].(*workflow.Result)
	require.True(t, ok)
	assert.Equal(t, "done", res.Result)

	_, open := <-errs
	assert.False(t, open)
}

func TestStreamRun_Failure(t *testing.T) {
	wf := testutil.Failing(t)

	events, errs := wf.StreamRun(context.Background())
	got := testutil.Collect(t, events, streamTimeout)
	assert.Equal(t, []string{"test"}, testutil.Msgs(got))

	err := <-errs
	assert.ErrorIs(t, err, testutil.ErrBoom)
}

func TestStreamRun_SimultaneousStreams(t *testing.T) {
	ctx := context.Background()
	wf := testutil.Streaming(t)

	events1, errs1 := wf.StreamRun(ctx)
	events2, errs2 := wf.StreamRun(ctx)

	got1 := testutil.Collect(t, events1, streamTimeout)
	got2 := testutil.Collect(t, events2, streamTimeout)

	assert.Len(t, got1, len(testutil.Words())+1)
	assert.Len(t, got2, len(testutil.Words())+1)
	assert.NoError(t, <-errs1)
	assert.NoError(t, <-errs2)
}

func TestStreamRun_NestedStreams(t *testing.T) {
	ctx := context.Background()
	wf := testutil.Streaming(t)
	expected := len(testutil.Words()) + 1

	outer, outerErrs := wf.StreamRun(ctx)

	outerCount, innerCount := 0, 0
	for range outer {
		outerCount++

		inner, innerErrs := wf.StreamRun(ctx)
		innerCount += len(testutil.Collect(t, inner, streamTimeout))
		require.NoError(t, <-innerErrs)
	}
	require.NoError(t, <-outerErrs)

	assert.Equal(t, expected, outerCount)
	assert.Equal(t, expected*expected, innerCount)
}

func TestStreamRun_ResumeStreams(t *testing.T) {
	ctx := context.Background()
	wf := newCounterWorkflow(t)

	got := testutil.Collect(t, first(wf.StreamRun(ctx)), streamTimeout)
	require.Len(t, got, 2)
	res, ok := got[1].(*workflow.Result)
	require.True(t, ok)

	got = testutil.Collect(t, first(wf.StreamRun(ctx, workflow.WithContext(res.Ctx))), streamTimeout)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"hello!"}, testutil.Msgs(got))

	n, err := workflow.GetAs[int](res.Ctx, "cur_count")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func first(events <-chan workflow.Event, _ <-chan error) <-chan workflow.Event {
	return events
}

func TestStreamRun_IdleConsumerDoesNotBlockRun(t *testing.T) {
	wf := testutil.Streaming(t, func(o *workflow.Options) {
		o.Config.StreamBufferSize = 1
	})

	completed := make(chan any, 1)
	wf.Callbacks().RegisterCallback(workflow.NewFunctionCallback(workflow.CallbackRunCompleted,
		func(_ context.Context, cc *workflow.CallbackContext) error {
			completed <- cc.Result
			return nil
		},
	))

	ctx, cancel := context.WithCancel(context.Background())
	events, errs := wf.StreamRun(ctx)

	select {
	case result := <-completed:
		assert.Equal(t, "done", result)
	case <-time.After(streamTimeout):
		t.Fatal("run blocked on an idle stream consumer")
	}

	// cancelling releases the forwarder and closes both channels
	cancel()
	_ = testutil.Collect(t, events, streamTimeout)
	for range errs {
	}
}
