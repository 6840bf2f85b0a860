package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]interface{}{}
	done := make(chan struct{}, 2)

	q := NewQueue("persist", func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = job.Payload
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "schedule_run", Payload: "run-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = q.Enqueue(Job{ID: "fixed", Type: "schedule_run", Payload: "run-2"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("job not processed")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "run-1", seen[id])
	assert.Equal(t, "run-2", seen["fixed"])
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan Job, 1)

	q := NewQueue("persist", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("database unavailable")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp:   func(j Job, _ error) { gaveUp <- j },
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "schedule_run"})
	require.NoError(t, err)

	select {
	case job := <-gaveUp:
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("queue never gave up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("persist", func(context.Context, Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{})
	assert.Error(t, err)
}

func TestQueueReportsFullBuffer(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("persist", func(ctx context.Context, _ Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	var full error
	for i := 0; i < 5 && full == nil; i++ {
		_, full = q.Enqueue(Job{})
	}
	assert.ErrorIs(t, full, ErrQueueFull)
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var handled int32
	var cancelled int32
	q := NewQueue("persist", func(ctx context.Context, _ Job) error {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() != nil {
			atomic.AddInt32(&cancelled, 1)
		}
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(Job{Type: "schedule_run"})
		require.NoError(t, err)
	}
	q.Stop()

	assert.Equal(t, int32(5), atomic.LoadInt32(&handled))
	assert.Zero(t, atomic.LoadInt32(&cancelled))

	_, err := q.Enqueue(Job{Type: "schedule_run"})
	assert.ErrorIs(t, err, ErrQueueStopped)
	q.Stop()
}

func TestQueueStopGivesUpPendingRetry(t *testing.T) {
	failed := make(chan struct{}, 1)
	var mu sync.Mutex
	var givenUp []error

	q := NewQueue("persist", func(context.Context, Job) error {
		failed <- struct{}{}
		return errors.New("database unavailable")
	}, QueueConfig{
		MaxRetries: 3,
		RetryDelay: time.Hour,
		OnGiveUp: func(_ Job, err error) {
			mu.Lock()
			givenUp = append(givenUp, err)
			mu.Unlock()
		},
	})
	q.Start(context.Background())

	_, err := q.Enqueue(Job{Type: "schedule_run"})
	require.NoError(t, err)
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("job not attempted")
	}

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop waited on the retry delay")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, givenUp, 1)
	assert.ErrorIs(t, givenUp[0], ErrQueueStopped)
}

func TestQueueDrainTimeoutCancelsAndGivesUp(t *testing.T) {
	var gaveUp int32
	q := NewQueue("persist", func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, QueueConfig{
		Workers:      1,
		BufferSize:   4,
		DrainTimeout: 50 * time.Millisecond,
		OnGiveUp:     func(Job, error) { atomic.AddInt32(&gaveUp, 1) },
	})
	q.Start(context.Background())

	for i := 0; i < 2; i++ {
		_, err := q.Enqueue(Job{Type: "schedule_run"})
		require.NoError(t, err)
	}
	q.Stop()

	assert.Equal(t, int32(2), atomic.LoadInt32(&gaveUp))
}
