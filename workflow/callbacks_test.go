package workflow_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stepflow/internal/testutil"
	"github.com/hupe1980/stepflow/logging"
	"github.com/hupe1980/stepflow/workflow"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(t workflow.CallbackType) workflow.Callback {
	return workflow.NewFunctionCallback(t, func(_ context.Context, cc *workflow.CallbackContext) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		entry := string(t)
		if cc.Step != "" {
			entry += ":" + cc.Step
		}
		r.calls = append(r.calls, entry)
		return nil
	})
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestCallbacks_Lifecycle(t *testing.T) {
	rec := &recorder{}
	cm := workflow.NewCallbackManager()
	for _, ct := range []workflow.CallbackType{
		workflow.CallbackRunStarted,
		workflow.CallbackBeforeStep,
		workflow.CallbackAfterStep,
		workflow.CallbackRunCompleted,
		workflow.CallbackRunFailed,
	} {
		cm.RegisterCallback(rec.record(ct))
	}

	wf := newChainWorkflowWith(t, func(o *workflow.Options) { o.Callbacks = cm })
	_, err := wf.Run(context.Background(), workflow.WithInput("input", "x"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"on_run_started",
		"before_step:first", "after_step:first",
		"before_step:second", "after_step:second",
		"before_step:last", "after_step:last",
		"on_run_completed",
	}, rec.snapshot())
}

func TestCallbacks_BeforeStepErrorFailsRun(t *testing.T) {
	errDenied := errors.New("denied")

	wf := newChainWorkflowWith(t)
	wf.Callbacks().RegisterCallback(workflow.NewFunctionCallback(workflow.CallbackBeforeStep,
		func(_ context.Context, cc *workflow.CallbackContext) error {
			if cc.Step == "second" {
				return errDenied
			}
			return nil
		},
	))

	var failed error
	wf.Callbacks().RegisterCallback(workflow.NewFunctionCallback(workflow.CallbackRunFailed,
		func(_ context.Context, cc *workflow.CallbackContext) error {
			failed = cc.Err
			return nil
		},
	))

	_, err := wf.Run(context.Background(), workflow.WithInput("input", "x"))
	assert.ErrorIs(t, err, errDenied)
	assert.ErrorIs(t, failed, errDenied)
}

func TestCallbacks_StreamEventAndResult(t *testing.T) {
	var (
		mu     sync.Mutex
		events []workflow.Event
		result any
	)

	wf := testutil.Streaming(t)
	wf.Callbacks().RegisterCallback(workflow.NewFunctionCallback(workflow.CallbackStreamEvent,
		func(_ context.Context, cc *workflow.CallbackContext) error {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, cc.Event)
			return nil
		},
	))
	wf.Callbacks().RegisterCallback(workflow.NewFunctionCallback(workflow.CallbackRunCompleted,
		func(_ context.Context, cc *workflow.CallbackContext) error {
			result = cc.Result
			return errors.New("ignored")
		},
	))

	res, err := wf.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", res.Result)
	assert.Equal(t, "done", result)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, events, len(testutil.Words()))
}

func TestLoggingCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LogLevelInfo,
		Format: "text",
		Output: &buf,
	})

	wf := testutil.Failing(t)
	wf.Callbacks().RegisterCallback(workflow.NewLoggingCallback(workflow.CallbackAfterStep, logger))
	wf.Callbacks().RegisterCallback(workflow.NewLoggingCallback(workflow.CallbackRunFailed, logger))

	_, err := wf.Run(context.Background())
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=after_step")
	assert.Contains(t, out, "msg=on_run_failed")
	assert.Contains(t, out, "workflow=failing")
	assert.Contains(t, out, "step=fail")
	assert.Contains(t, out, "error=boom")
}

func TestBasicMetrics(t *testing.T) {
	m := &workflow.BasicMetrics{}

	ok := testutil.Streaming(t)
	m.Register(ok.Callbacks())

	failing := testutil.Failing(t)
	m.Register(failing.Callbacks())

	for i := 0; i < 2; i++ {
		_, err := ok.Run(context.Background())
		require.NoError(t, err)
	}
	_, err := failing.Run(context.Background())
	require.Error(t, err)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.RunsStarted)
	assert.Equal(t, int64(2), snap.RunsCompleted)
	assert.Equal(t, int64(1), snap.RunsFailed)
	assert.Equal(t, int64(0), snap.RunsInFlight)
	assert.Equal(t, int64(2), snap.StepsCompleted)
	assert.Equal(t, int64(1), snap.StepsFailed)
	assert.Equal(t, int64(2*len(testutil.Words())+1), snap.StreamEvents)
}

func newChainWorkflowWith(t *testing.T, optFns ...func(o *workflow.Options)) *workflow.Workflow {
	t.Helper()

	wf, err := workflow.New("chain", newChainWorkflow(t).Steps(), optFns...)
	require.NoError(t, err)
	return wf
}
