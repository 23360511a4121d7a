package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type (
	validA struct{}
	validB struct{}
)

func stopStep(name string) *Step {
	return NewStep(name, func(context.Context, *Context, validA) (Event, error) {
		return StopEvent{}, nil
	}, WithProduces(StopEvent{}))
}

func startStep(name string, produces ...Event) *Step {
	return NewStep(name, func(context.Context, *Context, StartEvent) (Event, error) {
		return validA{}, nil
	}, WithProduces(produces...))
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name  string
		steps []*Step
	}{
		{
			name:  "no steps",
			steps: nil,
		},
		{
			name:  "unnamed step",
			steps: []*Step{startStep("", validA{}), stopStep("stop")},
		},
		{
			name:  "duplicate names",
			steps: []*Step{startStep("dup", validA{}), stopStep("dup")},
		},
		{
			name: "interface event type",
			steps: []*Step{
				startStep("start", validA{}),
				stopStep("stop"),
				NewStep("any", func(context.Context, *Context, Event) (Event, error) { return nil, nil }),
			},
		},
		{
			name:  "produced type not accepted",
			steps: []*Step{startStep("start", validA{}, validB{}), stopStep("stop")},
		},
		{
			name:  "start event not accepted",
			steps: []*Step{stopStep("stop")},
		},
		{
			name: "no stop producer",
			steps: []*Step{
				startStep("start", validA{}),
				NewStep("loop", func(context.Context, *Context, validA) (Event, error) {
					return validA{}, nil
				}, WithProduces(validA{})),
			},
		},
		{
			name: "negative workers",
			steps: []*Step{
				NewStep("start", func(context.Context, *Context, StartEvent) (Event, error) {
					return StopEvent{}, nil
				}, WithNumWorkers(-1)),
			},
		},
		{
			name: "unnamed service",
			steps: []*Step{
				NewStep("start", func(context.Context, *Context, StartEvent) (Event, error) {
					return StopEvent{}, nil
				}, WithService("", nil)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("invalid", tt.steps)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNew_ValidDefinitions(t *testing.T) {
	_, err := New("valid", []*Step{startStep("start", validA{}), stopStep("stop")})
	assert.NoError(t, err)

	// undeclared outputs skip the stop producer check
	_, err = New("undeclared", []*Step{
		NewStep("start", func(context.Context, *Context, StartEvent) (Event, error) {
			return StopEvent{}, nil
		}),
	})
	assert.NoError(t, err)

	_, err = New("custom-start", []*Step{stopStep("stop")}, func(o *Options) {
		o.StartEvent = validA{}
	})
	assert.NoError(t, err)
}

func TestNew_DisableValidation(t *testing.T) {
	_, err := New("unchecked", []*Step{stopStep("stop")}, func(o *Options) {
		o.Config.DisableValidation = true
	})
	assert.NoError(t, err)

	assert.Panics(t, func() { MustNew("invalid", nil) })
}

func TestRegistry_MatchInDeclarationOrder(t *testing.T) {
	s1 := stopStep("first")
	s2 := stopStep("second")
	r := newRegistry([]*Step{s1, s2, startStep("start", validA{})})

	assert.Equal(t, []*Step{s1, s2}, r.match(validA{}))
	assert.Empty(t, r.match(validB{}))
	assert.Empty(t, r.match(nil))
	assert.Empty(t, r.match(&validA{}))
}
