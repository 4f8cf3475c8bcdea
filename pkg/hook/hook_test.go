package hook

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Order(t *testing.T) {
	var got []string
	record := func(name string) func(context.Context, Event) error {
		return func(context.Context, Event) error {
			got = append(got, name)
			return nil
		}
	}

	r := NewRegistry(
		WithPriority(10, record("late")),
		Func(record("first-zero")),
		WithPriority(-5, record("early")),
		Func(record("second-zero")),
		nil,
	)

	assert.Equal(t, 4, r.Len())

	Dispatch(context.Background(), r.Hooks(), ChunkEvent{})
	assert.Equal(t, []string{"early", "first-zero", "second-zero", "late"}, got)
}

func TestDispatch_ErrorDoesNotStopLaterHooks(t *testing.T) {
	called := false
	hooks := []Hook{
		Func(func(context.Context, Event) error { return errors.New("boom") }),
		Func(func(context.Context, Event) error {
			called = true
			return nil
		}),
	}

	Dispatch(context.Background(), hooks, ErrorEvent{Err: errors.New("x")})
	assert.True(t, called)
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	assert.Nil(t, r.Hooks())
	assert.Zero(t, r.Len())
}

func TestEventNames(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{PreCallEvent{}, "pre_call"},
		{PostCallEvent{}, "post_call"},
		{ErrorEvent{}, "error"},
		{ChunkEvent{}, "chunk"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ev.EventName())
	}
}
