package gpusync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTrySleepWokenByWake drives the consumer into the sleeping branch of
// TrySleep on an otherwise idle Coordinator, then has the producer wake it,
// asserting WokenAfterSleep and that nothing blocks the wake.Post from being
// observed across goroutines. Intended to run under `-race`.
func TestTrySleepWokenByWake(t *testing.T) {
	c := NewCoordinator()

	resultCh := make(chan SleepResult, 1)
	go func() {
		resultCh <- c.TrySleep(true)
	}()

	for c.w.Load() != sleeping {
		// Spin until the consumer goroutine has published the sleeping
		// state; nothing else touches w until WakeConsumer below.
	}

	c.WakeConsumer()

	require.Equal(t, WokenAfterSleep, <-resultCh)
}

// TestSyncConsumerBlocksUntilDrain sequences a producer's SyncConsumer call
// against a consumer that has already claimed pending work (TrySleep
// returning Busy) but has not yet told the Coordinator it finished: Sync
// must not return until the consumer's second TrySleep call observes no
// further work and posts the done semaphore, matching S4's block path
// (SyncConsumer without spinning) under a real cross-goroutine handoff.
func TestSyncConsumerBlocksUntilDrain(t *testing.T) {
	c := NewCoordinator()

	proceedToSecondDrain := make(chan struct{})
	consumerFinished := make(chan struct{})

	// Queue the work before the consumer starts, so its first TrySleep is
	// guaranteed to observe it and return Busy.
	c.WakeConsumer()

	go func() {
		if r := c.TrySleep(true); r != Busy {
			panic("expected Busy on the first drain call")
		}
		<-proceedToSecondDrain
		c.TrySleep(true) // observes no further work, posts done, then sleeps
		close(consumerFinished)
	}()

	for c.w.Load() != 0 {
		// Spin until the consumer's first TrySleep has reset the work
		// count, so SyncConsumer below observes workCount==0 and sets the
		// cpuWaiting flag instead of racing the reset.
	}

	syncReturned := make(chan struct{})
	go func() {
		c.SyncConsumer(false)
		close(syncReturned)
	}()

	for c.w.Load()&cpuWaiting == 0 {
		// Spin until SyncConsumer has published the cpuWaiting flag.
	}

	select {
	case <-syncReturned:
		t.Fatal("SyncConsumer returned before the consumer's second drain")
	default:
	}

	close(proceedToSecondDrain)
	<-syncReturned

	c.WakeConsumer() // release the consumer's now-sleeping TrySleep call
	<-consumerFinished
}
