package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	p := NewPool(2)
	defer p.Shutdown()

	var ran atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		require.True(t, p.Submit(func() {
			if ran.Add(1) == 5 {
				close(done)
			}
		}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs not drained, ran %d of 5", ran.Load())
	}
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	p := NewPool(1)
	defer p.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	require.True(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	// Worker is parked; the queue holds everything that follows.
	for i := 0; i < queueCap; i++ {
		require.True(t, p.Submit(func() {}), "queue rejected below capacity at %d", i)
	}
	require.False(t, p.Submit(func() {}))
}
