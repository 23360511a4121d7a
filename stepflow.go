// Package stepflow provides a high-level façade over the workflow kernel
// enabling rapid construction of event-driven workflows that share logging,
// lifecycle callbacks, named services and a snapshot store. Most applications
// interact with this package by:
//  1. Creating a Stepflow via New() (optionally overriding the in-memory store)
//  2. Defining workflows from steps; each is registered as a named service
//  3. Running them synchronously (Run), streamed (Stream) or resumed from a
//     persisted context (Resume)
//
// The façade delegates orchestration to workflow.Workflow. Programs needing
// finer control use the workflow package directly.
package stepflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/stepflow/logging"
	"github.com/hupe1980/stepflow/store"
	"github.com/hupe1980/stepflow/workflow"
)

// Re-exported kernel types.
type (
	Event      = workflow.Event
	StartEvent = workflow.StartEvent
	StopEvent  = workflow.StopEvent
	DataEvent  = workflow.DataEvent
	Step       = workflow.Step
	Context    = workflow.Context
	Result     = workflow.Result
	Workflow   = workflow.Workflow
	RunOptions = workflow.RunOptions
)

// Options configures the Stepflow instance.
type Options struct {
	// Config is applied to every defined workflow.
	Config workflow.Config

	// Snapshots persists contexts between runs. Defaults to store.NewMemory().
	Snapshots store.SnapshotStore

	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// Stepflow aggregates workflows sharing services, callbacks and a snapshot store.
type Stepflow struct {
	opts      Options
	services  *workflow.ServiceManager
	callbacks *workflow.CallbackManager

	mu        sync.RWMutex
	workflows map[string]*workflow.Workflow
}

// New creates a Stepflow instance with optional overrides.
func New(optFns ...func(o *Options)) *Stepflow {
	opts := Options{
		Config:    workflow.DefaultConfig,
		Snapshots: store.NewMemory(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Stepflow{
		opts:      opts,
		services:  workflow.NewServiceManager(),
		callbacks: workflow.NewCallbackManager(),
		workflows: make(map[string]*workflow.Workflow),
	}
}

// Define builds a workflow from steps and registers it under name, both for
// Run/Stream and as a service other workflows' steps can depend on.
func (s *Stepflow) Define(name string, steps []*workflow.Step, optFns ...func(o *workflow.Options)) (*workflow.Workflow, error) {
	wf, err := workflow.New(name, steps, append([]func(o *workflow.Options){
		func(o *workflow.Options) {
			o.Config = s.opts.Config
			o.Logger = s.opts.Logger
			o.Callbacks = s.callbacks
			o.Services = s.services
		},
	}, optFns...)...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.workflows[name] = wf
	s.mu.Unlock()

	s.services.Add(name, wf)
	return wf, nil
}

// Workflow returns the workflow defined under name.
func (s *Stepflow) Workflow(name string) (*workflow.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[name]
	return wf, ok
}

// Callbacks returns the lifecycle hooks shared by all defined workflows.
func (s *Stepflow) Callbacks() *workflow.CallbackManager { return s.callbacks }

// Services returns the service manager shared by all defined workflows.
func (s *Stepflow) Services() *workflow.ServiceManager { return s.services }

// Run executes the named workflow and persists the resulting context under
// its ID. Stored values must be gob encodable.
func (s *Stepflow) Run(ctx context.Context, name string, optFns ...func(o *workflow.RunOptions)) (*workflow.Result, error) {
	wf, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	res, err := wf.Run(ctx, optFns...)
	if err != nil {
		return nil, err
	}

	if err := workflow.SaveContext(ctx, s.opts.Snapshots, res.Ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Resume runs the named workflow on the context persisted under contextID.
func (s *Stepflow) Resume(ctx context.Context, name, contextID string, optFns ...func(o *workflow.RunOptions)) (*workflow.Result, error) {
	wc, err := workflow.LoadContext(ctx, s.opts.Snapshots, contextID)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, name, append(optFns, workflow.WithContext(wc))...)
}

// Stream starts the named workflow and returns its stream channels. See
// workflow.Workflow.StreamRun for the delivery contract.
func (s *Stepflow) Stream(ctx context.Context, name string, optFns ...func(o *workflow.RunOptions)) (<-chan workflow.Event, <-chan error, error) {
	wf, err := s.lookup(name)
	if err != nil {
		return nil, nil, err
	}
	eventsCh, errorsCh := wf.StreamRun(ctx, optFns...)
	return eventsCh, errorsCh, nil
}

// StreamSync is a synchronous helper that drains the stream channels and
// returns the written events plus the final result.
func (s *Stepflow) StreamSync(ctx context.Context, name string, optFns ...func(o *workflow.RunOptions)) ([]workflow.Event, *workflow.Result, error) {
	eventsCh, errorsCh, err := s.Stream(ctx, name, optFns...)
	if err != nil {
		return nil, nil, err
	}

	var (
		events []workflow.Event
		result *workflow.Result
	)
	for {
		select {
		case <-ctx.Done():
			return events, nil, ctx.Err()

		case ev, ok := <-eventsCh:
			if !ok {
				if err := <-errorsCh; err != nil {
					return events, nil, err
				}
				return events, result, nil
			}
			if res, isResult := ev.(*workflow.Result); isResult {
				result = res
				continue
			}
			events = append(events, ev)
		}
	}
}

func (s *Stepflow) lookup(name string) (*workflow.Workflow, error) {
	wf, ok := s.Workflow(name)
	if !ok {
		return nil, fmt.Errorf("workflow %s not defined", name)
	}
	return wf, nil
}
