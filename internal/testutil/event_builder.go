package testutil

import "github.com/hupe1980/stepflow/workflow"

// EventBuilder provides a fluent helper for constructing data events in tests.
// Example:
//
//	ev := NewEventBuilder().Msg("hello").Set("n", 1).Build()
type EventBuilder struct {
	data map[string]any
}

// NewEventBuilder creates a builder with an empty payload.
func NewEventBuilder() *EventBuilder { return &EventBuilder{data: map[string]any{}} }

// Msg sets the "msg" key, the payload convention of stream messages (chainable).
func (b *EventBuilder) Msg(m string) *EventBuilder { return b.Set("msg", m) }

// Set sets or overwrites a payload key (chainable).
func (b *EventBuilder) Set(key string, val any) *EventBuilder {
	b.data[key] = val
	return b
}

// Build returns the event. The builder can be reused; the payload is copied.
func (b *EventBuilder) Build() workflow.DataEvent {
	cp := make(map[string]any, len(b.data))
	for k, v := range b.data {
		cp[k] = v
	}
	return workflow.DataEvent{Data: cp}
}

// ContextBuilder helps construct pre-populated contexts for resume tests.
// Example:
//
//	wc := NewContextBuilder().Set("cur_count", 1).Build()
type ContextBuilder struct {
	state map[string]any
}

// NewContextBuilder creates a builder for an empty context.
func NewContextBuilder() *ContextBuilder {
	return &ContextBuilder{state: map[string]any{}}
}

// Set sets or overwrites a store key (chainable).
func (b *ContextBuilder) Set(key string, val any) *ContextBuilder {
	b.state[key] = val
	return b
}

// Build finalizes and returns a fresh context holding the configured keys.
func (b *ContextBuilder) Build() *workflow.Context {
	wc := workflow.NewContext()
	for k, v := range b.state {
		wc.Set(k, v)
	}
	return wc
}
