package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/a2abridge/pkg/message"
)

func TestSink_FirstResultWins(t *testing.T) {
	s := NewSink()
	first := message.NewText(message.RoleAssistant, "first")

	require.NoError(t, s.Success(first))
	assert.ErrorIs(t, s.Success(message.NewText(message.RoleAssistant, "second")), ErrAlreadyFulfilled)
	assert.ErrorIs(t, s.Error(errors.New("late")), ErrAlreadyFulfilled)

	reply, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, reply)
}

func TestSink_Error(t *testing.T) {
	s := NewSink()
	boom := errors.New("boom")

	require.NoError(t, s.Error(boom))

	reply, err := s.Wait(context.Background())
	assert.Nil(t, reply)
	assert.ErrorIs(t, err, boom)
}

func TestSink_WaitHonoursContext(t *testing.T) {
	s := NewSink()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, s.Fulfilled())
}

func TestSink_ConcurrentFulfil(t *testing.T) {
	s := NewSink()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Success(message.NewText(message.RoleAssistant, "x")) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	select {
	case <-s.Done():
	default:
		t.Fatal("sink not done")
	}
}
