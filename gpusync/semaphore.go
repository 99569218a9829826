package gpusync

// Semaphore is a counting semaphore built on a buffered channel, the
// idiomatic Go substitute for a kernel semaphore (the pack has no portable
// kernel-semaphore dependency; every SPSC handoff in the retrieval pack that
// needs a sleep/wake primitive — other_examples/wavetermdev-waveterm__asyncnotify.go,
// other_examples/hayabusa-cloud-lfq__doc.go — reaches for a channel).
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore creates a semaphore. capacity bounds how many outstanding
// Post calls can be buffered before a Post becomes a no-op; it should be
// sized to the maximum number of wakes that can legitimately be pending at
// once (for this package, 1 is sufficient for both the wake and done
// semaphores, since a single pending wake/done collapses any further
// pending ones).
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{ch: make(chan struct{}, capacity)}
}

// Post signals the semaphore. Non-blocking: if the buffer is full, the post
// is coalesced with one already pending.
func (s *Semaphore) Post() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the semaphore has been posted at least once since the
// last Wait.
func (s *Semaphore) Wait() {
	<-s.ch
}
