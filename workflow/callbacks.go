package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/stepflow/logging"
)

// CallbackType defines the lifecycle points where callbacks are executed.
//
// Callbacks hook into the dispatch loop without modifying it:
//   - BeforeStep/AfterStep: around every step execution
//   - RunStarted/RunCompleted/RunFailed: around a whole run
//   - StreamEvent: for every event written to a run's stream
//
// Only a BeforeStep callback can change the outcome of a run: its error
// fails the step. Errors of all other callbacks are logged and ignored.
type CallbackType string

const (
	// CallbackBeforeStep is triggered before a step body runs.
	CallbackBeforeStep CallbackType = "before_step"

	// CallbackAfterStep is triggered after a step body returns, for both
	// successes and failures.
	CallbackAfterStep CallbackType = "after_step"

	// CallbackRunStarted is triggered once the run is bound to its Context.
	CallbackRunStarted CallbackType = "on_run_started"

	// CallbackRunCompleted is triggered when a stop event ends the run.
	CallbackRunCompleted CallbackType = "on_run_completed"

	// CallbackRunFailed is triggered when a run ends with an error.
	CallbackRunFailed CallbackType = "on_run_failed"

	// CallbackStreamEvent is triggered for each event written to a stream.
	CallbackStreamEvent CallbackType = "on_stream_event"
)

// CallbackContext carries what a callback may inspect. Fields that do not
// apply to a callback type are left zero.
type CallbackContext struct {
	Workflow string
	RunID    string
	Context  *Context
	Step     string
	Event    Event
	Err      error
	Result   any
	Duration time.Duration
}

// Callback defines the interface for lifecycle hooks. Implementations run
// synchronously on the engine's goroutines and must be fast and safe for
// concurrent use.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
//	cb := workflow.NewFunctionCallback(workflow.CallbackBeforeStep,
//	    func(ctx context.Context, cc *workflow.CallbackContext) error {
//	        log.Printf("starting step %s", cc.Step)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager stores callbacks per type and executes them in
// registration order, stopping at the first error. It is safe for
// concurrent registration and execution.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all callbacks registered for callbackType.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := cm.callbacks[callbackType]
	cm.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes a structured log entry for one callback type.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a logging callback. A nil logger discards.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle point with its identifiers.
func (c *LoggingCallback) Execute(_ context.Context, cc *CallbackContext) error {
	args := []any{logging.Workflow(cc.Workflow), logging.RunID(cc.RunID)}
	if cc.Step != "" {
		args = append(args, logging.Step(cc.Step))
	}
	if cc.Event != nil {
		args = append(args, logging.EventType(TypeName(cc.Event)))
	}
	if cc.Duration > 0 {
		args = append(args, "duration", cc.Duration)
	}

	if cc.Err != nil {
		c.logger.Error(string(c.callbackType), append(args, logging.Error(cc.Err))...)
		return nil
	}
	c.logger.Info(string(c.callbackType), args...)
	return nil
}
