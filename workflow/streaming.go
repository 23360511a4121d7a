package workflow

import "context"

// trackedRun is an implicit run (one started by Run without a Context)
// visible to StreamEvents.
type trackedRun struct {
	stream  *Stream
	done    bool
	claimed bool
}

func (w *Workflow) track(rs *runState) *trackedRun {
	w.trackMu.Lock()
	defer w.trackMu.Unlock()

	tr := &trackedRun{stream: rs.stream}
	w.tracked = append(w.tracked, tr)
	w.pruneLocked()
	w.notifyLocked()
	return tr
}

func (w *Workflow) untrack(tr *trackedRun) {
	w.trackMu.Lock()
	defer w.trackMu.Unlock()

	tr.done = true
	w.pruneLocked()
	w.notifyLocked()
}

// pruneLocked keeps in-flight runs plus the newest finished run nobody has
// streamed yet, so a consumer arriving late can still drain it.
func (w *Workflow) pruneLocked() {
	kept := w.tracked[:0]
	last := len(w.tracked) - 1
	for i, tr := range w.tracked {
		if !tr.done || (i == last && !tr.claimed) {
			kept = append(kept, tr)
		}
	}
	for i := len(kept); i < len(w.tracked); i++ {
		w.tracked[i] = nil
	}
	w.tracked = kept
}

func (w *Workflow) notifyLocked() {
	close(w.trackChanged)
	w.trackChanged = make(chan struct{})
}

// Running returns the number of implicit runs currently in flight.
func (w *Workflow) Running() int {
	w.trackMu.Lock()
	defer w.trackMu.Unlock()

	n := 0
	for _, tr := range w.tracked {
		if !tr.done {
			n++
		}
	}
	return n
}

// StreamEvents streams the events written by the single implicit run of
// this workflow, waiting for one to start if necessary. Each implicit run
// can be streamed once. With two or more implicit runs in flight the target
// is ambiguous and ErrAmbiguousStream is returned; use StreamRun to stream
// concurrent runs independently.
//
//	go func() { _, err := wf.Run(ctx); errCh <- err }()
//
//	events, err := wf.StreamEvents(ctx)
//	if err != nil {
//	    return err
//	}
//	for ev := range events {
//	    handle(ev)
//	}
//
// The channel closes once the run completes or fails; the run's error is
// reported only to the caller of Run.
func (w *Workflow) StreamEvents(ctx context.Context) (<-chan Event, error) {
	for {
		w.trackMu.Lock()

		inFlight := 0
		var pick *trackedRun
		for _, tr := range w.tracked {
			if !tr.done {
				inFlight++
			}
			if !tr.claimed && (pick == nil || pick.done) {
				pick = tr
			}
		}

		if inFlight > 1 {
			w.trackMu.Unlock()
			return nil, ErrAmbiguousStream
		}

		if pick != nil {
			pick.claimed = true
			w.pruneLocked()
			w.trackMu.Unlock()
			return pick.stream.Events(ctx, w.config.StreamBufferSize), nil
		}

		wait := w.trackChanged
		w.trackMu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// StreamRun starts a run bound to its own Context (or the one supplied via
// WithContext) and streams it. Every event the run writes is delivered in
// order, followed on success by the run's *Result as the final element.
// On failure the events channel closes after the last written event and
// the error is sent on the error channel. Both channels are closed when the
// run is over.
//
// Streams returned by StreamRun are isolated from each other, so any number
// of them may run concurrently on the same Workflow.
//
// The run does not wait for the consumer: it completes even if nobody reads
// the events channel. A consumer that stops reading must still cancel ctx to
// release the forwarding goroutine, which also cancels the run if it has not
// finished yet.
func (w *Workflow) StreamRun(ctx context.Context, optFns ...func(o *RunOptions)) (<-chan Event, <-chan error) {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Context == nil {
		opts.Context = NewContext()
	}

	rs := w.newRunState(opts.Context)
	start := w.startEvent(opts)

	eventsCh := make(chan Event, w.config.StreamBufferSize)
	errorsCh := make(chan error, 1)

	type outcome struct {
		res *Result
		err error
	}
	doneCh := make(chan outcome, 1)

	go func() {
		res, err := w.execute(ctx, rs, start)
		doneCh <- outcome{res: res, err: err}
	}()

	go func() {
		defer func() {
			close(eventsCh)
			close(errorsCh)
		}()

		for ev := range rs.stream.Events(ctx, 0) {
			select {
			case eventsCh <- ev:
			case <-ctx.Done():
			}
		}

		out := <-doneCh
		if out.err != nil {
			errorsCh <- out.err
			return
		}

		select {
		case eventsCh <- out.res:
		case <-ctx.Done():
		}
	}()

	return eventsCh, errorsCh
}
