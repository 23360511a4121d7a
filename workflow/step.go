package workflow

import (
	"context"
	"fmt"
	"reflect"
)

// Handler is the type-erased form of a step body. A nil returned event is a
// dead end in the graph.
type Handler func(ctx context.Context, wc *Context, ev Event) (Event, error)

// ServiceSlot declares a named dependency of a step. Default stands in when
// no service with Name is registered on the workflow; it is built once, when
// the step is declared, and shared by every dispatch.
type ServiceSlot struct {
	Name    string
	Default Service
}

// StepOptions configures a step declaration.
type StepOptions struct {
	// Produces lists sample values of the event types the step may return.
	// Only their types matter; they feed definition validation.
	Produces []Event

	// Services lists the named dependencies resolved before each dispatch.
	Services []ServiceSlot

	// NumWorkers bounds concurrent executions of this step within one run.
	// Zero means unbounded.
	NumWorkers int
}

// Step is the static descriptor of one unit of work: the event type it
// accepts, the types it may produce and its dependency slots. Steps are
// stateless and may be shared by several workflows.
type Step struct {
	Name       string
	Accepts    reflect.Type
	Produces   []reflect.Type
	Services   []ServiceSlot
	NumWorkers int

	handler Handler
}

// NewStep declares a step accepting events of type E.
//
//	multiply := workflow.NewStep("multiply",
//	    func(ctx context.Context, wc *workflow.Context, ev NumGenerated) (workflow.Event, error) {
//	        return workflow.StopEvent{Result: ev.Num * 2}, nil
//	    },
//	    workflow.WithProduces(workflow.StopEvent{}),
//	)
func NewStep[E any](
	name string,
	fn func(ctx context.Context, wc *Context, ev E) (Event, error),
	optFns ...func(o *StepOptions),
) *Step {
	opts := StepOptions{}
	for _, f := range optFns {
		f(&opts)
	}

	produces := make([]reflect.Type, 0, len(opts.Produces))
	for _, p := range opts.Produces {
		if p == nil {
			continue
		}
		produces = append(produces, reflect.TypeOf(p))
	}

	return &Step{
		Name:       name,
		Accepts:    reflect.TypeFor[E](),
		Produces:   produces,
		Services:   append([]ServiceSlot(nil), opts.Services...),
		NumWorkers: opts.NumWorkers,
		handler: func(ctx context.Context, wc *Context, ev Event) (Event, error) {
			typed, ok := ev.(E)
			if !ok {
				return nil, fmt.Errorf("step %s: unexpected event type %s", name, TypeName(ev))
			}
			return fn(ctx, wc, typed)
		},
	}
}

// WithProduces declares the event types a step may return.
func WithProduces(evs ...Event) func(o *StepOptions) {
	return func(o *StepOptions) { o.Produces = append(o.Produces, evs...) }
}

// WithService declares a named dependency with an optional default.
func WithService(name string, def Service) func(o *StepOptions) {
	return func(o *StepOptions) {
		o.Services = append(o.Services, ServiceSlot{Name: name, Default: def})
	}
}

// WithNumWorkers bounds concurrent executions of the step within a run.
func WithNumWorkers(n int) func(o *StepOptions) {
	return func(o *StepOptions) { o.NumWorkers = n }
}
