package workflow

import (
	"context"
	"sync"
)

// Stream is the event log a single run writes through Context.WriteEventToStream.
// Writes append to an unbounded buffer and never block. Every reader sees the
// full log from the first event, in write order, followed by the end of
// stream once Close is called.
type Stream struct {
	mu      sync.Mutex
	events  []Event
	closed  bool
	changed chan struct{} // closed and replaced on every write
	done    chan struct{}
}

// NewStream returns an open, empty stream.
func NewStream() *Stream {
	return &Stream{
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Write appends ev. Writes after Close are dropped.
func (s *Stream) Write(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.events = append(s.events, ev)
	close(s.changed)
	s.changed = make(chan struct{})
}

// Close marks the end of the stream. Safe to call multiple times.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.changed)
	close(s.done)
}

// Done returns a channel closed once the stream has ended.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Len returns the number of events written so far.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a channel replaying the stream from its first event. The
// channel is closed after the last event of a closed stream, or as soon as
// ctx is done. A reader that stops receiving must cancel ctx to release the
// forwarding goroutine.
func (s *Stream) Events(ctx context.Context, bufferSize int) <-chan Event {
	if bufferSize < 0 {
		bufferSize = 0
	}

	out := make(chan Event, bufferSize)

	go func() {
		defer close(out)

		for i := 0; ; {
			s.mu.Lock()
			if i < len(s.events) {
				ev := s.events[i]
				i++
				s.mu.Unlock()

				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				continue
			}

			if s.closed {
				s.mu.Unlock()
				return
			}

			wait := s.changed
			s.mu.Unlock()

			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
