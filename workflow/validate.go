package workflow

import "reflect"

// validate checks the static wiring of a step set. startType is the type of
// the event runs are seeded with by default.
func validate(r *registry, startType reflect.Type) error {
	if len(r.steps) == 0 {
		return validationErrorf("workflow has no steps")
	}

	names := make(map[string]struct{}, len(r.steps))
	allDeclare := true
	producesStop := false

	for _, s := range r.steps {
		if s.Name == "" {
			return validationErrorf("step accepting %s has no name", s.Accepts)
		}
		if _, dup := names[s.Name]; dup {
			return validationErrorf("duplicate step name %q", s.Name)
		}
		names[s.Name] = struct{}{}

		if s.Accepts == nil || s.Accepts.Kind() == reflect.Interface {
			return validationErrorf("step %q must accept a concrete event type", s.Name)
		}
		if s.NumWorkers < 0 {
			return validationErrorf("step %q has negative NumWorkers", s.Name)
		}
		for _, slot := range s.Services {
			if slot.Name == "" {
				return validationErrorf("step %q declares an unnamed service", s.Name)
			}
		}

		if len(s.Produces) == 0 {
			allDeclare = false
		}
		for _, p := range s.Produces {
			if isStopType(p) {
				producesStop = true
				continue
			}
			if !r.accepts(p) {
				return validationErrorf("step %q produces %s which no step accepts", s.Name, p)
			}
		}
	}

	if !r.accepts(startType) {
		return validationErrorf("no step accepts the start event %s", startType)
	}
	if allDeclare && !producesStop {
		return validationErrorf("no step produces a stop event")
	}
	return nil
}
