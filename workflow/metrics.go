package workflow

import (
	"context"
	"sync/atomic"
	"time"
)

// BasicMetrics collects run and step counters through callbacks.
//
//	m := &workflow.BasicMetrics{}
//	m.Register(wf.Callbacks())
type BasicMetrics struct {
	runsStarted       atomic.Int64
	runsCompleted     atomic.Int64
	runsFailed        atomic.Int64
	stepsCompleted    atomic.Int64
	stepsFailed       atomic.Int64
	streamEvents      atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsCompleted int64
	RunsFailed    int64
	RunsInFlight  int64

	StepsCompleted  int64
	StepsFailed     int64
	StreamEvents    int64
	AvgStepDuration time.Duration
}

// Register installs the counting callbacks on cm.
func (m *BasicMetrics) Register(cm *CallbackManager) {
	count := func(t CallbackType, fn func(cc *CallbackContext)) {
		cm.RegisterCallback(NewFunctionCallback(t, func(_ context.Context, cc *CallbackContext) error {
			fn(cc)
			return nil
		}))
	}

	count(CallbackRunStarted, func(*CallbackContext) { m.runsStarted.Add(1) })
	count(CallbackRunCompleted, func(*CallbackContext) { m.runsCompleted.Add(1) })
	count(CallbackRunFailed, func(*CallbackContext) { m.runsFailed.Add(1) })
	count(CallbackStreamEvent, func(*CallbackContext) { m.streamEvents.Add(1) })
	count(CallbackAfterStep, func(cc *CallbackContext) {
		// only successful steps feed the average duration
		if cc.Err != nil {
			m.stepsFailed.Add(1)
			return
		}
		m.stepsCompleted.Add(1)
		m.totalStepDuration.Add(cc.Duration.Nanoseconds())
	})
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	completed := m.runsCompleted.Load()
	failed := m.runsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsCompleted:   completed,
		RunsFailed:      failed,
		RunsInFlight:    started - completed - failed,
		StepsCompleted:  steps,
		StepsFailed:     m.stepsFailed.Load(),
		StreamEvents:    m.streamEvents.Load(),
		AvgStepDuration: avg,
	}
}
