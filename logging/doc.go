// Package logging provides a minimal logging interface and adapters for stepflow.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// the workflow engine uses for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - slog.Attr helpers for the identifiers the engine logs (run, step, event)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	wf, err := workflow.New("pipeline", steps, func(o *workflow.Options) {
//	    o.Logger = logger
//	})
//
// The interface is kept minimal to avoid vendor lock-in while supporting
// structured key/value logging where available.
package logging
