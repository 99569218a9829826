package gputhread

import (
	"context"
	"testing"
	"time"
)

// TestSyncSpinReturnsForFastDrain exercises Sync's spin=true path against a
// worker that drains essentially immediately, asserting that once it
// returns the queued call has run (S4, fast-path half). It does not check
// whether Sync returned from the spin or from the done semaphore.
func TestSyncSpinReturnsForFastDrain(t *testing.T) {
	host := newFakeHost()
	th, err := New(baseTestOptions(host))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := th.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer th.Shutdown()

	ran := make(chan struct{}, 1)
	th.RunOnThread(func() { ran <- struct{}{} })
	th.Sync(true)

	select {
	case <-ran:
	default:
		t.Fatal("Sync(true) returned before the queued async call ran")
	}
}

// TestSyncBlocksUntilSlowCallbackCompletes exercises Sync's fallback path: a
// callback slow enough that the spin window elapses first, so Sync must
// fall back to blocking on the done semaphore rather than returning early
// (S4, block-path half).
func TestSyncBlocksUntilSlowCallbackCompletes(t *testing.T) {
	host := newFakeHost()
	th, err := New(baseTestOptions(host))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := th.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer th.Shutdown()

	var finished bool
	th.RunOnThread(func() {
		time.Sleep(20 * time.Millisecond)
		finished = true
	})
	th.Sync(true)

	if !finished {
		t.Fatal("Sync(true) returned before the slow callback finished running")
	}
}

// TestRunOnThreadSyncOrdersAgainstPriorSubmits checks RunOnThreadSync's
// ordering: a synchronous call must not run until everything committed
// before it has already been drained.
func TestRunOnThreadSyncOrdersAgainstPriorSubmits(t *testing.T) {
	host := newFakeHost()
	th, err := New(baseTestOptions(host))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := th.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer th.Shutdown()

	th.SubmitFrame([]uint32{1})
	th.SubmitFrame([]uint32{2})

	var seenAtSync int
	th.RunOnThreadSync(func() {
		seenAtSync = len(th.backend.(*fakeBackend).commandKinds())
	}, false)

	if seenAtSync != 2 {
		t.Fatalf("RunOnThreadSync ran with %d commands drained, want 2", seenAtSync)
	}
}
