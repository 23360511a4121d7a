package workflow

import "reflect"

// registry maps an event type to the steps accepting it, in declaration
// order. It is built once per workflow and read-only afterwards.
type registry struct {
	steps  []*Step
	byType map[reflect.Type][]*Step
}

func newRegistry(steps []*Step) *registry {
	r := &registry{
		steps:  steps,
		byType: make(map[reflect.Type][]*Step),
	}
	for _, s := range steps {
		r.byType[s.Accepts] = append(r.byType[s.Accepts], s)
	}
	return r
}

// match returns the steps accepting the dynamic type of ev.
func (r *registry) match(ev Event) []*Step {
	if ev == nil {
		return nil
	}
	return r.byType[reflect.TypeOf(ev)]
}

func (r *registry) accepts(t reflect.Type) bool {
	return len(r.byType[t]) > 0
}
