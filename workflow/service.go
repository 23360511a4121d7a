package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Service is a workflow usable as a named dependency of another workflow's
// steps. *Workflow implements it; invoking a service is a complete nested
// run with its own Context.
type Service interface {
	Run(ctx context.Context, optFns ...func(o *RunOptions)) (*Result, error)
}

// ServiceManager maps service names to instances. It is populated before a
// run starts and read during dispatch.
type ServiceManager struct {
	mu       sync.RWMutex
	services map[string]Service
}

// NewServiceManager returns an empty manager.
func NewServiceManager() *ServiceManager {
	return &ServiceManager{services: make(map[string]Service)}
}

// Add registers svc under name, replacing any previous registration.
func (m *ServiceManager) Add(name string, svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[name] = svc
}

// AddAll registers every entry of services.
func (m *ServiceManager) AddAll(services map[string]Service) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, svc := range services {
		m.services[name] = svc
	}
}

// Get returns the instance registered under name.
func (m *ServiceManager) Get(name string) (Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	svc, ok := m.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// Names returns the registered names in sorted order.
func (m *ServiceManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.services))
	for n := range m.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// resolve binds every slot to its registered instance, falling back to the
// slot default.
func (m *ServiceManager) resolve(slots []ServiceSlot) (map[string]Service, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	bound := make(map[string]Service, len(slots))
	for _, slot := range slots {
		svc, err := m.Get(slot.Name)
		if err != nil {
			if slot.Default == nil {
				return nil, err
			}
			svc = slot.Default
		}
		bound[slot.Name] = svc
	}
	return bound, nil
}

type bindingsKey struct{}

// withBindings replaces any bindings inherited from an enclosing step, so a
// nested run only sees what its own steps declare.
func withBindings(ctx context.Context, bound map[string]Service) context.Context {
	if bound == nil {
		bound = map[string]Service{}
	}
	return context.WithValue(ctx, bindingsKey{}, bound)
}

// ResolveService returns the service bound to name for the executing step.
// Only names the step declared through WithService are bound.
func ResolveService(ctx context.Context, name string) (Service, error) {
	bound, _ := ctx.Value(bindingsKey{}).(map[string]Service)
	svc, ok := bound[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	return svc, nil
}

// ServiceAs is the typed form of ResolveService.
func ServiceAs[T Service](ctx context.Context, name string) (T, error) {
	var zero T

	svc, err := ResolveService(ctx, name)
	if err != nil {
		return zero, err
	}

	t, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %s is %T, not %T", name, svc, zero)
	}
	return t, nil
}
