// Package workflow implements the event-driven orchestration kernel of stepflow.
//
// A Workflow is a set of steps. Each step accepts one event type and returns
// another; the engine wires steps into an implicit graph keyed by event type,
// runs them concurrently as events become available and ends the run when a
// StopEvent is produced.
//
// # Core Responsibilities
//
// Dispatch:
//   - Event-type registry resolved once in New, validated unless disabled
//   - One goroutine per scheduled step, bounded per step by NumWorkers
//   - First step error ends the run and is returned unchanged
//   - Optional run timeout via Config.Timeout
//
// Run state:
//   - Context: string keyed store shared by the steps of a run
//   - Resumption by passing a previous Result.Ctx to the next run
//   - Snapshots through Context.Snapshot and the store package
//
// Streaming:
//   - Context.WriteEventToStream appends to the run's stream without blocking
//   - StreamEvents follows the single implicit run of a workflow
//   - StreamRun streams an isolated run, ending with its *Result
//
// Services:
//   - Steps declare named dependencies with optional defaults
//   - Registered services override defaults at dispatch time
//   - Any *Workflow is a Service, so workflows nest
//
// # Example
//
//	type NumGenerated struct{ Num int }
//
//	generate := workflow.NewStep("generate",
//	    func(ctx context.Context, wc *workflow.Context, ev workflow.StartEvent) (workflow.Event, error) {
//	        return NumGenerated{Num: 21}, nil
//	    },
//	    workflow.WithProduces(NumGenerated{}),
//	)
//	double := workflow.NewStep("double",
//	    func(ctx context.Context, wc *workflow.Context, ev NumGenerated) (workflow.Event, error) {
//	        return workflow.StopEvent{Result: ev.Num * 2}, nil
//	    },
//	    workflow.WithProduces(workflow.StopEvent{}),
//	)
//
//	wf, err := workflow.New("double", []*workflow.Step{generate, double})
//	if err != nil {
//	    return err
//	}
//	res, err := wf.Run(ctx) // res.Result == 42
//
// # Callbacks
//
// A CallbackManager receives lifecycle hooks (before/after step, run
// started/completed/failed, stream events). BasicMetrics and LoggingCallback
// are ready-made callback sets.
package workflow
