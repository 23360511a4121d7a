package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/stepflow/logging"
)

// RunOptions configures a single run.
type RunOptions struct {
	// Context resumes a previous run's state. A fresh Context is created
	// when nil.
	Context *Context

	// Input becomes StartEvent.Input when StartEvent is nil.
	Input map[string]any

	// StartEvent overrides the event the run is seeded with.
	StartEvent Event
}

// WithContext binds the run to c, resuming its stored state.
func WithContext(c *Context) func(o *RunOptions) {
	return func(o *RunOptions) { o.Context = c }
}

// WithInput adds a key to the start event input.
func WithInput(key string, value any) func(o *RunOptions) {
	return func(o *RunOptions) {
		if o.Input == nil {
			o.Input = map[string]any{}
		}
		o.Input[key] = value
	}
}

// WithStartEvent seeds the run with ev instead of a StartEvent.
func WithStartEvent(ev Event) func(o *RunOptions) {
	return func(o *RunOptions) { o.StartEvent = ev }
}

// Result is the handle of a completed run: the stop event payload and the
// Context the run was bound to, ready to be passed to a later run.
type Result struct {
	RunID  string
	Result any
	Ctx    *Context
}

// runState is the per-run plumbing bound to a Context while the run is in
// flight.
type runState struct {
	id     string
	wf     *Workflow
	ctx    *Context
	stream *Stream
	inbox  chan Event
	done   chan struct{}

	// halted is cancelled when the run ends; steps still waiting for a
	// worker slot give up instead of starting.
	halted context.Context
}

func (w *Workflow) newRunState(wc *Context) *runState {
	return &runState{
		id:     uuid.NewString(),
		wf:     w,
		ctx:    wc,
		stream: NewStream(),
		inbox:  make(chan Event, 16),
		done:   make(chan struct{}),
	}
}

func (rs *runState) publish(ev Event) {
	rs.stream.Write(ev)

	if err := rs.wf.callbacks.ExecuteCallbacks(context.Background(), CallbackStreamEvent, rs.callbackContext("", ev)); err != nil {
		rs.wf.logger.Warn("stream event callback failed", logging.RunID(rs.id), logging.Error(err))
	}
}

func (rs *runState) send(ev Event) error {
	select {
	case <-rs.done:
		return ErrNoActiveRun
	default:
	}

	select {
	case rs.inbox <- ev:
		return nil
	case <-rs.done:
		return ErrNoActiveRun
	}
}

func (rs *runState) callbackContext(step string, ev Event) *CallbackContext {
	return &CallbackContext{
		Workflow: rs.wf.name,
		RunID:    rs.id,
		Context:  rs.ctx,
		Step:     step,
		Event:    ev,
	}
}

// stepResult reports one finished step. sem is the worker slot the step
// still holds; the loop frees it only when dispatch continues.
type stepResult struct {
	step     *Step
	event    Event
	err      error
	duration time.Duration
	sem      *semaphore.Weighted
}

// Run executes the workflow to completion and returns its Result. The first
// error returned by a step is returned unchanged and ends the run.
func (w *Workflow) Run(ctx context.Context, optFns ...func(o *RunOptions)) (*Result, error) {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	implicit := opts.Context == nil
	if implicit {
		opts.Context = NewContext()
	}

	rs := w.newRunState(opts.Context)

	if implicit {
		tr := w.track(rs)
		defer w.untrack(tr)
	}

	return w.execute(ctx, rs, w.startEvent(opts))
}

func (w *Workflow) startEvent(opts RunOptions) Event {
	if opts.StartEvent != nil {
		return opts.StartEvent
	}
	return StartEvent{Input: opts.Input}
}

// execute drives the dispatch loop of one run. It owns the event queue;
// steps run in their own goroutines and report on results.
func (w *Workflow) execute(ctx context.Context, rs *runState, start Event) (res *Result, err error) {
	wc := rs.ctx
	if err := wc.bind(rs); err != nil {
		close(rs.done)
		rs.stream.Close()
		w.logger.Warn("run rejected", logging.Workflow(w.name), logging.RunID(rs.id), logging.Error(err))
		return nil, err
	}

	halted, halt := context.WithCancel(ctx)
	rs.halted = halted

	w.logger.Debug("run started", logging.Workflow(w.name), logging.RunID(rs.id), logging.ContextID(wc.ID()))
	if cbErr := w.callbacks.ExecuteCallbacks(ctx, CallbackRunStarted, rs.callbackContext("", start)); cbErr != nil {
		w.logger.Warn("run started callback failed", logging.RunID(rs.id), logging.Error(cbErr))
	}

	startedAt := time.Now()

	defer func() {
		close(rs.done)
		halt()
		rs.stream.Close()
		wc.unbind(rs)
		w.finish(ctx, rs, res, err, time.Since(startedAt))
	}()

	var timeout <-chan time.Time
	if w.config.Timeout > 0 {
		timer := time.NewTimer(w.config.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	results := make(chan stepResult)
	sems := make(map[*Step]*semaphore.Weighted)
	queue := []Event{start}

	for {
		for len(queue) > 0 {
			ev := queue[0]
			queue = queue[1:]

			if v, ok := stopResult(ev); ok {
				return &Result{RunID: rs.id, Result: v, Ctx: wc}, nil
			}

			if err := w.dispatch(ctx, rs, ev, results, sems); err != nil {
				return nil, err
			}
		}

		select {
		case r := <-results:
			if r.err != nil {
				w.logger.Error("step failed",
					logging.Workflow(w.name), logging.RunID(rs.id), logging.Step(r.step.Name), logging.Error(r.err))
				return nil, r.err
			}
			if v, ok := stopResult(r.event); ok {
				return &Result{RunID: rs.id, Result: v, Ctx: wc}, nil
			}
			if r.sem != nil {
				r.sem.Release(1)
			}
			if r.event != nil {
				queue = append(queue, r.event)
			}
		case ev := <-rs.inbox:
			if v, ok := stopResult(ev); ok {
				return &Result{RunID: rs.id, Result: v, Ctx: wc}, nil
			}
			if ev != nil {
				queue = append(queue, ev)
			}
		case <-timeout:
			return nil, fmt.Errorf("%w after %s", ErrTimeout, w.config.Timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// dispatch launches every step accepting ev. A dependency that cannot be
// resolved aborts the run before any of the matching steps start.
func (w *Workflow) dispatch(
	ctx context.Context,
	rs *runState,
	ev Event,
	results chan<- stepResult,
	sems map[*Step]*semaphore.Weighted,
) error {
	steps := w.reg.match(ev)
	if len(steps) == 0 {
		w.logger.Warn("no step accepts event", logging.RunID(rs.id), logging.EventType(TypeName(ev)))
		return nil
	}

	bindings := make([]map[string]Service, len(steps))
	for i, s := range steps {
		bound, err := w.services.resolve(s.Services)
		if err != nil {
			return fmt.Errorf("step %s: %w", s.Name, err)
		}
		bindings[i] = bound
	}

	for i, s := range steps {
		var sem *semaphore.Weighted
		if s.NumWorkers > 0 {
			sem = sems[s]
			if sem == nil {
				sem = semaphore.NewWeighted(int64(s.NumWorkers))
				sems[s] = sem
			}
		}

		go w.runStep(withBindings(ctx, bindings[i]), rs, s, ev, sem, results)
	}

	return nil
}

func (w *Workflow) runStep(
	ctx context.Context,
	rs *runState,
	s *Step,
	ev Event,
	sem *semaphore.Weighted,
	results chan<- stepResult,
) {
	deliver := func(r stepResult) {
		select {
		case results <- r:
		case <-rs.done:
			// run already finished; the outcome is fixed
		}
	}

	if sem != nil {
		if err := sem.Acquire(rs.halted, 1); err != nil {
			deliver(stepResult{step: s, err: err})
			return
		}
	}

	// slots are released by the loop, never after a stop, so a run that
	// has ended starts no further step bodies
	select {
	case <-rs.done:
		return
	default:
	}

	cbCtx := rs.callbackContext(s.Name, ev)
	if err := w.callbacks.ExecuteCallbacks(ctx, CallbackBeforeStep, cbCtx); err != nil {
		deliver(stepResult{step: s, err: err, sem: sem})
		return
	}

	startedAt := time.Now()
	out, err := invokeStep(ctx, s, rs.ctx, ev)
	d := time.Since(startedAt)

	after := rs.callbackContext(s.Name, out)
	after.Err = err
	after.Duration = d
	if cbErr := w.callbacks.ExecuteCallbacks(ctx, CallbackAfterStep, after); cbErr != nil {
		w.logger.Warn("after step callback failed", logging.RunID(rs.id), logging.Step(s.Name), logging.Error(cbErr))
	}

	deliver(stepResult{step: s, event: out, err: err, duration: d, sem: sem})
}

func invokeStep(ctx context.Context, s *Step, wc *Context, ev Event) (out Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &StepPanicError{Step: s.Name, Value: r}
		}
	}()
	return s.handler(ctx, wc, ev)
}

func (w *Workflow) finish(ctx context.Context, rs *runState, res *Result, err error, d time.Duration) {
	cbCtx := rs.callbackContext("", nil)
	cbCtx.Duration = d

	if err != nil {
		cbCtx.Err = err
		if cbErr := w.callbacks.ExecuteCallbacks(ctx, CallbackRunFailed, cbCtx); cbErr != nil {
			w.logger.Warn("run failed callback failed", logging.RunID(rs.id), logging.Error(cbErr))
		}
		w.logger.Debug("run failed", logging.Workflow(w.name), logging.RunID(rs.id), logging.Error(err))
		return
	}

	cbCtx.Result = res.Result
	if cbErr := w.callbacks.ExecuteCallbacks(ctx, CallbackRunCompleted, cbCtx); cbErr != nil {
		w.logger.Warn("run completed callback failed", logging.RunID(rs.id), logging.Error(cbErr))
	}
	w.logger.Debug("run completed", logging.Workflow(w.name), logging.RunID(rs.id))
}
