package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesPayloads(t *testing.T) {
	var sum atomic.Int64
	q := NewQueue[int]("sum", func(_ context.Context, v int) error {
		sum.Add(int64(v))
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 1; i <= 10; i++ {
		require.NoError(t, q.Offer(i))
	}
	assert.Eventually(t, func() bool { return sum.Load() == 55 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return q.Processed() == 10 }, time.Second, 5*time.Millisecond)
}

func TestQueueRejectsWhenStopped(t *testing.T) {
	q := NewQueue[string]("idle", func(context.Context, string) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Offer("x"), ErrQueueStopped)
}

func TestQueueDropsWhenFull(t *testing.T) {
	picked := make(chan struct{}, 1)
	block := make(chan struct{})
	q := NewQueue[int]("full", func(ctx context.Context, _ int) error {
		picked <- struct{}{}
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	require.NoError(t, q.Offer(1))
	<-picked
	require.NoError(t, q.Offer(2))
	assert.ErrorIs(t, q.Offer(3), ErrQueueFull)
	assert.Equal(t, uint64(1), q.Dropped())
}

func TestQueueRetriesFailures(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue[int]("retry", func(context.Context, int) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Offer(1))
	assert.Eventually(t, func() bool { return q.Processed() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}
