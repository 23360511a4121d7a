package workflow

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Context is the run-scoped state shared by all steps of a run: a string
// keyed store, the sink of the run's event stream and the handle used to
// inject events into the running dispatch loop.
//
// A Context returned in a Result can be passed to a later run to resume from
// the same state. It is bound to at most one run at a time; starting a run on
// a Context whose previous run is still in flight fails with ErrContextInUse.
//
// Single Get and Set calls are safe for concurrent use; a Get followed by a
// Set is not atomic, so steps fanning out over the same keys must coordinate
// themselves.
type Context struct {
	id string

	mu   sync.RWMutex
	data map[string]any

	runMu sync.Mutex
	run   *runState
}

// NewContext returns an empty context with a fresh id.
func NewContext() *Context {
	return &Context{
		id:   uuid.NewString(),
		data: make(map[string]any),
	}
}

// ID returns the context identifier. It survives Snapshot/RestoreContext.
func (c *Context) ID() string { return c.id }

// Get returns the value stored under key. When the key is absent the first
// default is returned; without a default Get fails with ErrKeyNotFound.
func (c *Context) Get(key string, def ...any) (any, error) {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()

	if ok {
		return v, nil
	}
	if len(def) > 0 {
		return def[0], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// Set stores value under key, replacing any previous value.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Keys returns the stored keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetAs is the typed form of Context.Get. A stored value of another type
// fails with a type error rather than ErrKeyNotFound.
func GetAs[T any](c *Context, key string, def ...T) (T, error) {
	var zero T

	var v any
	var err error
	if len(def) > 0 {
		v, err = c.Get(key, def[0])
	} else {
		v, err = c.Get(key)
	}
	if err != nil {
		return zero, err
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("key %s holds %T, not %T", key, v, zero)
	}
	return t, nil
}

// WriteEventToStream appends ev to the stream of the run bound to this
// context. It never blocks; without a bound run the event is dropped.
func (c *Context) WriteEventToStream(ev Event) {
	if rs := c.current(); rs != nil {
		rs.publish(ev)
	}
}

// SendEvent injects ev into the dispatch loop of the bound run, as if a step
// had returned it.
func (c *Context) SendEvent(ev Event) error {
	rs := c.current()
	if rs == nil {
		return ErrNoActiveRun
	}
	return rs.send(ev)
}

// Stream returns the stream of the bound run, or nil.
func (c *Context) Stream() *Stream {
	if rs := c.current(); rs != nil {
		return rs.stream
	}
	return nil
}

func (c *Context) current() *runState {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	return c.run
}

// bind attaches rs. A context serves one run at a time.
func (c *Context) bind(rs *runState) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.run != nil {
		return fmt.Errorf("%w: %s", ErrContextInUse, c.id)
	}
	c.run = rs
	return nil
}

// unbind detaches rs unless a later run has already replaced it.
func (c *Context) unbind(rs *runState) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.run == rs {
		c.run = nil
	}
}

type contextSnapshot struct {
	ID   string
	Data map[string]any
}

// Snapshot encodes the context id and store with encoding/gob. Values of
// user-defined types must be registered with gob.Register beforehand.
func (c *Context) Snapshot() ([]byte, error) {
	c.mu.RLock()
	snap := contextSnapshot{ID: c.id, Data: make(map[string]any, len(c.data))}
	for k, v := range c.data {
		snap.Data[k] = v
	}
	c.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
		return nil, fmt.Errorf("failed to encode context %s: %w", c.id, err)
	}
	return buf.Bytes(), nil
}

// RestoreContext rebuilds a context from Snapshot output.
func RestoreContext(data []byte) (*Context, error) {
	var snap contextSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode context snapshot: %w", err)
	}

	c := &Context{id: snap.ID, data: snap.Data}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	if c.data == nil {
		c.data = make(map[string]any)
	}
	return c, nil
}
