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

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan Job, 1)
	q := NewQueue("sweep", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "sweep"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
		assert.NotEmpty(t, job.ID)
	case <-time.After(time.Second):
		t.Fatal("job did not complete")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "x"}))
	assert.Error(t, q.TryEnqueue(Job{Type: "x"}))
}

func TestQueueTryEnqueueReportsFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("busy", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.TryEnqueue(Job{Type: "a"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{Type: "b"}))

	err := q.TryEnqueue(Job{Type: "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQueueFull))
}

func TestQueueAppliesTimeout(t *testing.T) {
	result := make(chan error, 1)
	q := NewQueue("slow", func(ctx context.Context, job Job) error {
		<-ctx.Done()
		result <- ctx.Err()
		return nil
	}, QueueConfig{Timeout: 10 * time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "slow"}))
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("timeout not applied")
	}
}
