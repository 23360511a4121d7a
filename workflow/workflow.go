package workflow

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/hupe1980/stepflow/logging"
)

// Config defines tuning parameters of a workflow's runs.
type Config struct {
	// Timeout bounds a run from start to stop event. Zero disables it; a
	// run whose steps never produce a stop event then waits for the
	// caller's context.
	Timeout time.Duration

	// StreamBufferSize sets the buffer of channels handed to stream
	// consumers. Stream writers never block regardless of this value.
	StreamBufferSize int

	// DisableValidation skips the definition checks performed by New.
	DisableValidation bool
}

// DefaultConfig provides the configuration used when none is supplied.
var DefaultConfig = Config{
	Timeout:          0,
	StreamBufferSize: 64,
}

// Options configures a Workflow using the functional options pattern.
//
//	wf, err := workflow.New("dummy", steps, func(o *workflow.Options) {
//	    o.Config.Timeout = 10 * time.Second
//	    o.Logger = logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	})
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger

	// Callbacks receives lifecycle hooks. A fresh manager is created when nil.
	Callbacks *CallbackManager

	// Services holds named dependencies. A fresh manager is created when nil.
	Services *ServiceManager

	// StartEvent is a sample of the event runs are seeded with when
	// RunOptions does not override it. Defaults to StartEvent{}.
	StartEvent Event
}

// Workflow is an immutable set of steps plus the named services they may
// depend on. The same Workflow can run any number of times, concurrently;
// every run gets its own Context.
type Workflow struct {
	name      string
	reg       *registry
	config    Config
	logger    logging.Logger
	callbacks *CallbackManager
	services  *ServiceManager
	startType reflect.Type

	// implicit run tracking for StreamEvents
	trackMu      sync.Mutex
	tracked      []*trackedRun
	trackChanged chan struct{}
}

// New builds a workflow from steps. The event-type registry is resolved
// once here and the definition is validated unless disabled.
func New(name string, steps []*Step, optFns ...func(o *Options)) (*Workflow, error) {
	opts := Options{
		Config:     DefaultConfig,
		Logger:     logging.NoOpLogger{},
		StartEvent: StartEvent{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.Services == nil {
		opts.Services = NewServiceManager()
	}
	if opts.StartEvent == nil {
		opts.StartEvent = StartEvent{}
	}

	reg := newRegistry(append([]*Step(nil), steps...))
	startType := reflect.TypeOf(opts.StartEvent)

	if !opts.Config.DisableValidation {
		if err := validate(reg, startType); err != nil {
			return nil, fmt.Errorf("workflow %s: %w", name, err)
		}
	}

	return &Workflow{
		name:         name,
		reg:          reg,
		config:       opts.Config,
		logger:       opts.Logger,
		callbacks:    opts.Callbacks,
		services:     opts.Services,
		startType:    startType,
		trackChanged: make(chan struct{}),
	}, nil
}

// MustNew is like New but panics on an invalid definition. It suits
// package-level declarations such as service defaults.
func MustNew(name string, steps []*Step, optFns ...func(o *Options)) *Workflow {
	w, err := New(name, steps, optFns...)
	if err != nil {
		panic(err)
	}
	return w
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Steps returns the step descriptors in declaration order.
func (w *Workflow) Steps() []*Step {
	return append([]*Step(nil), w.reg.steps...)
}

// Services returns the manager consulted when resolving step dependencies.
func (w *Workflow) Services() *ServiceManager { return w.services }

// Callbacks returns the lifecycle hook manager.
func (w *Workflow) Callbacks() *CallbackManager { return w.callbacks }

// AddWorkflows registers named services in bulk. It must be called before
// the runs that should observe them start.
func (w *Workflow) AddWorkflows(services map[string]Service) {
	w.services.AddAll(services)
}
