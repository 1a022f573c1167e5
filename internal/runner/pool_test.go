package runner

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func receive[T any](t *testing.T, ticket Ticket[T]) Completion[T] {
	t.Helper()
	select {
	case c, ok := <-ticket.Done:
		require.True(t, ok, "completion channel closed without a value")
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("task %s did not complete", ticket.ID)
		return Completion[T]{}
	}
}

func TestSubmitReturnsImmediately(t *testing.T) {
	pool := NewPool[int](2, quietLogger())
	gate := make(chan struct{})

	ticket, err := pool.Submit(func(ctx context.Context) (int, error) {
		<-gate
		return 42, nil
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, 1, pool.Pending())

	close(gate)
	c := receive(t, ticket)
	assert.Equal(t, 42, c.Value)
	assert.NoError(t, c.Err)
	assert.Equal(t, ticket.ID, c.ID)

	pool.Close()
	assert.Equal(t, 0, pool.Pending())
}

func TestConcurrencyCeiling(t *testing.T) {
	pool := NewPool[struct{}](2, quietLogger())
	defer pool.Close()

	var running, peak atomic.Int32
	gate := make(chan struct{})
	tickets := make([]Ticket[struct{}], 0, 6)

	for i := 0; i < 6; i++ {
		ticket, err := pool.Submit(func(ctx context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-gate
			running.Add(-1)
			return struct{}{}, nil
		})
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	assert.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(gate)

	for _, ticket := range tickets {
		receive(t, ticket)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 2, pool.Slots())
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	pool := NewPool[string](2, quietLogger())
	defer pool.Close()

	ok, err := pool.Submit(func(ctx context.Context) (string, error) { return "/out/a.png", nil })
	require.NoError(t, err)
	failed, err := pool.Submit(func(ctx context.Context) (string, error) { return "", errors.New("inference") })
	require.NoError(t, err)

	for _, ticket := range []Ticket[string]{ok, failed} {
		first := receive(t, ticket)
		assert.Equal(t, ticket.ID, first.ID)
		_, open := <-ticket.Done
		assert.False(t, open, "second receive must see a closed channel")
	}
}

func TestPanicBecomesErrorCompletion(t *testing.T) {
	pool := NewPool[int](1, quietLogger())
	defer pool.Close()

	ticket, err := pool.Submit(func(ctx context.Context) (int, error) {
		panic("opencv exploded")
	})
	require.NoError(t, err)

	c := receive(t, ticket)
	require.Error(t, c.Err)
	assert.Contains(t, c.Err.Error(), "opencv exploded")

	next, err := pool.Submit(func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, receive(t, next).Value)
}

func TestCloseWaitsAndRejects(t *testing.T) {
	pool := NewPool[int](0, quietLogger())
	assert.Equal(t, DefaultSlots, pool.Slots())

	var finished atomic.Bool
	_, err := pool.Submit(func(ctx context.Context) (int, error) {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return 0, nil
	})
	require.NoError(t, err)

	pool.Close()
	assert.True(t, finished.Load())

	_, err = pool.Submit(func(ctx context.Context) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
}
