package testutil

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stepflow/workflow"
)

// Text is the sentence streamed word by word by Streaming.
const Text = "Paul Graham is a British-American computer scientist, entrepreneur, vc, and writer."

// Words returns Text split on spaces.
func Words() []string { return strings.Split(Text, " ") }

// ErrBoom is the failure raised by Failing.
var ErrBoom = errors.New("boom")

// Streaming returns a workflow with one step that writes a DataEvent for every
// word of Text to the stream and stops with "done".
func Streaming(t testing.TB, optFns ...func(o *workflow.Options)) *workflow.Workflow {
	t.Helper()

	stream := workflow.NewStep("stream",
		func(_ context.Context, wc *workflow.Context, _ workflow.StartEvent) (workflow.Event, error) {
			for _, w := range Words() {
				wc.WriteEventToStream(NewEventBuilder().Msg(w).Build())
			}
			return workflow.StopEvent{Result: "done"}, nil
		},
		workflow.WithProduces(workflow.StopEvent{}),
	)

	wf, err := workflow.New("streaming", []*workflow.Step{stream}, optFns...)
	require.NoError(t, err)
	return wf
}

// Failing returns a workflow whose only step writes one stream event and
// then fails with ErrBoom.
func Failing(t testing.TB) *workflow.Workflow {
	t.Helper()

	fail := workflow.NewStep("fail",
		func(_ context.Context, wc *workflow.Context, _ workflow.StartEvent) (workflow.Event, error) {
			wc.WriteEventToStream(NewEventBuilder().Msg("test").Build())
			return nil, ErrBoom
		},
		workflow.WithProduces(workflow.StopEvent{}),
	)

	wf, err := workflow.New("failing", []*workflow.Step{fail})
	require.NoError(t, err)
	return wf
}

// Gate blocks steps until it is opened.
type Gate struct {
	ch chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate { return &Gate{ch: make(chan struct{})} }

// Open releases every current and future waiter. Call it once.
func (g *Gate) Open() { close(g.ch) }

// Wait blocks until the gate opens or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Gated returns a workflow whose only step waits on g before stopping with
// "released".
func Gated(t testing.TB, g *Gate) *workflow.Workflow {
	t.Helper()

	wait := workflow.NewStep("wait",
		func(ctx context.Context, wc *workflow.Context, _ workflow.StartEvent) (workflow.Event, error) {
			wc.WriteEventToStream(NewEventBuilder().Msg("waiting").Build())
			if err := g.Wait(ctx); err != nil {
				return nil, err
			}
			return workflow.StopEvent{Result: "released"}, nil
		},
		workflow.WithProduces(workflow.StopEvent{}),
	)

	wf, err := workflow.New("gated", []*workflow.Step{wait})
	require.NoError(t, err)
	return wf
}

// Collect drains events until the channel closes, failing the test after
// timeout.
func Collect(t testing.TB, events <-chan workflow.Event, timeout time.Duration) []workflow.Event {
	t.Helper()

	deadline := time.After(timeout)
	var out []workflow.Event
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-deadline:
			t.Fatalf("stream did not close within %s (got %d events)", timeout, len(out))
			return out
		}
	}
}

// Msgs extracts the "msg" payload of every DataEvent in evs.
func Msgs(evs []workflow.Event) []string {
	var out []string
	for _, ev := range evs {
		if de, ok := ev.(workflow.DataEvent); ok {
			if m, ok := de.Get("msg"); ok {
				out = append(out, m.(string))
			}
		}
	}
	return out
}
