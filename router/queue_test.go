package router_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/effective-security/chatrouter/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Queue_Spacing(t *testing.T) {
	const interval = 50 * time.Millisecond
	q := router.NewQueue(interval)
	ctx := context.Background()

	var starts []time.Time
	for i := 0; i < 3; i++ {
		err := q.Enqueue(ctx, func(ctx context.Context) error {
			starts = append(starts, time.Now())
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, interval, "dispatch %d too close to %d", i, i-1)
	}
}

func Test_Queue_Serializes(t *testing.T) {
	q := router.NewQueue(0)
	ctx := context.Background()

	var mu sync.Mutex
	running := 0
	maxRunning := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Enqueue(ctx, func(ctx context.Context) error {
				mu.Lock()
				running++
				if running > maxRunning {
					maxRunning = running
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxRunning)
}

func Test_Queue_FailureDoesNotPoison(t *testing.T) {
	q := router.NewQueue(0)
	ctx := context.Background()

	errBoom := assert.AnError
	err := q.Enqueue(ctx, func(ctx context.Context) error {
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	err = q.Enqueue(ctx, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func Test_Queue_AbandonedWhileQueued(t *testing.T) {
	q := router.NewQueue(0)

	release := make(chan struct{})
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = q.Enqueue(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})
	}()

	// Let the first task occupy the queue.
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	abandoned := make(chan error, 1)
	go func() {
		abandoned <- q.Enqueue(ctx, func(ctx context.Context) error {
			t.Error("abandoned task must not run")
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-abandoned:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("abandoned task did not return")
	}

	// The abandoned slot must not have released its successor early: a
	// third task still waits for the first.
	third := make(chan error, 1)
	go func() {
		third <- q.Enqueue(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case <-third:
		t.Fatal("successor ran while the head task was still active")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	<-firstDone
	require.NoError(t, <-third)
}
