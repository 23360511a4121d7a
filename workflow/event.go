package workflow

import "reflect"

// Event is any immutable message passed between steps. Its concrete Go type
// is the dispatch key: a step accepting T receives every event whose dynamic
// type is exactly T.
type Event any

// StartEvent seeds every run unless RunOptions.StartEvent overrides it.
type StartEvent struct {
	Input map[string]any
}

// Get returns a value from the run input.
func (e StartEvent) Get(key string) (any, bool) {
	v, ok := e.Input[key]
	return v, ok
}

// StopEvent ends a run. Result becomes Result.Result of the run.
type StopEvent struct {
	Result any
}

// DataEvent is a schemaless event, mostly useful for stream messages.
type DataEvent struct {
	Data map[string]any
}

// NewDataEvent builds a DataEvent from alternating key/value pairs.
// A trailing key without a value is ignored.
func NewDataEvent(kv ...any) DataEvent {
	data := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		data[k] = kv[i+1]
	}
	return DataEvent{Data: data}
}

// Get returns a value from the payload.
func (e DataEvent) Get(key string) (any, bool) {
	v, ok := e.Data[key]
	return v, ok
}

// Has reports whether key is present in the payload.
func (e DataEvent) Has(key string) bool {
	_, ok := e.Data[key]
	return ok
}

var (
	startEventType = reflect.TypeOf(StartEvent{})
	stopEventType  = reflect.TypeOf(StopEvent{})
)

// TypeOf returns the dispatch key of ev.
func TypeOf(ev Event) reflect.Type {
	return reflect.TypeOf(ev)
}

// TypeName returns a printable name for the dispatch key of ev.
func TypeName(ev Event) string {
	if ev == nil {
		return "<nil>"
	}
	return reflect.TypeOf(ev).String()
}

// stopResult reports whether ev marks the end of a run and extracts its
// payload. Both StopEvent and *StopEvent are accepted.
func stopResult(ev Event) (any, bool) {
	switch s := ev.(type) {
	case StopEvent:
		return s.Result, true
	case *StopEvent:
		if s == nil {
			return nil, true
		}
		return s.Result, true
	}
	return nil, false
}

func isStopType(t reflect.Type) bool {
	return t == stopEventType || t == reflect.PointerTo(stopEventType)
}
