package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPoolValidatesCount(t *testing.T) {
	logger := setupTestLogger()

	_, err := NewWorkerPool(0, logger)
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)

	_, err = NewWorkerPool(-1, logger)
	assert.ErrorIs(t, err, ErrInvalidWorkerCount)

	p, err := NewWorkerPool(1, logger)
	require.NoError(t, err)
	p.Stop()
}

func TestWorkerPoolPreservesSubmissionOrder(t *testing.T) {
	// A single worker makes start order observable.
	p, err := NewWorkerPool(1, setupTestLogger())
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		p.Submit(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	p.Stop()

	require.Len(t, order, 10)
	for i, got := range order {
		assert.Equal(t, i, got, "jobs must start in FIFO order")
	}
}

func TestWorkerPoolSurvivesPanickingJob(t *testing.T) {
	p, err := NewWorkerPool(1, setupTestLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	p.Submit(func() { panic("boom") })
	p.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}
	p.Stop()
}

func TestWorkerPoolRunsJobsConcurrently(t *testing.T) {
	p, err := NewWorkerPool(4, setupTestLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	gate := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			// All four block until every worker has picked one up; a pool
			// with fewer than four live workers would deadlock here.
			gate <- struct{}{}
		})
	}

	for i := 0; i < 4; i++ {
		select {
		case <-gate:
		case <-time.After(time.Second):
			t.Fatalf("only %d of 4 jobs started concurrently", i)
		}
	}
	wg.Wait()
	p.Stop()
}

func TestWorkerPoolStopDrainsBacklog(t *testing.T) {
	p, err := NewWorkerPool(1, setupTestLogger())
	require.NoError(t, err)

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 20; i++ {
		p.Submit(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	p.Stop()

	assert.Equal(t, 20, ran, "Stop must let queued jobs finish")

	// Submissions after Stop are dropped without panicking.
	p.Submit(func() { t.Error("job ran after Stop") })
	time.Sleep(20 * time.Millisecond)
}
