// Package gpusync implements the wake/sleep handshake between the producer
// (CPU/emulation thread) and the consumer (GPU worker thread): a single
// atomic counter encoding "pending work" / "consumer sleeping" / "producer
// waiting for drain", plus two semaphores used to actually block/wake each
// side. See spec.md §4.2 for the full protocol description; this is a
// direct translation of original_source/src/core/gpu_thread.cpp's
// WakeGPUThread/SyncGPUThread/SleepGPUThread into Go atomics.
package gpusync

import (
	"sync/atomic"
	"time"
)

// cpuWaiting is OR'd into the wake counter when the producer has called
// Sync and is blocked on the done semaphore, exactly as
// THREAD_WAKE_COUNT_CPU_THREAD_IS_WAITING in the original.
const cpuWaiting int32 = 0x40000000

// sleeping is the wake-counter value meaning "consumer is asleep, no
// pending work" (THREAD_WAKE_COUNT_SLEEPING).
const sleeping int32 = -1

// spinWindow bounds how long Sync(spin=true) polls before falling back to
// blocking on the done semaphore. The original uses a platform-specific
// nanosecond spin budget; this uses a fixed duration that is cheap to poll
// against time.Now without costing a syscall per iteration.
const spinWindow = 2 * time.Microsecond

// Coordinator is the shared wake state between one producer and one
// consumer goroutine. Zero value is not usable; construct with
// NewCoordinator.
type Coordinator struct {
	w    atomic.Int32
	wake *Semaphore
	done *Semaphore
}

// NewCoordinator returns a Coordinator in the awake (w=0, no work) state.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		wake: NewSemaphore(1),
		done: NewSemaphore(1),
	}
}

func workCount(state int32) int32 { return state &^ cpuWaiting }

// WakeConsumer increments the pending-work count and, if the consumer was
// sleeping, posts the wake semaphore. Adding 2 (not 1) preserves the
// cpuWaiting bit and guarantees that a transition from sleeping (-1)
// produces a strictly positive work count (+1), so the consumer loops
// instead of immediately re-sleeping.
func (c *Coordinator) WakeConsumer() {
	old := c.w.Add(2) - 2
	if old < 0 {
		c.wake.Post()
	}
}

// SyncConsumer blocks the producer until the consumer has drained
// everything committed before this call. If spin is true, it first polls
// for a bounded window before falling back to the done semaphore, avoiding
// a syscall for command bursts the consumer drains almost immediately.
func (c *Coordinator) SyncConsumer(spin bool) {
	if spin {
		deadline := time.Now().Add(spinWindow)
		for time.Now().Before(deadline) {
			if workCount(c.w.Load()) < 0 {
				return
			}
		}
	}

	for {
		value := c.w.Load()
		if workCount(value) < 0 {
			return
		}
		if c.w.CompareAndSwap(value, value|cpuWaiting) {
			break
		}
	}
	c.done.Wait()
}

// SleepResult is the outcome of TrySleep.
type SleepResult int

const (
	// Busy means work was queued after the consumer last checked; the
	// consumer must recheck the ring before considering sleep again.
	Busy SleepResult = iota
	// WokenAfterSleep means the consumer slept and has just been woken by a
	// new submission.
	WokenAfterSleep
	// IdleNoSleep means there was no work and allowSleep was false, so the
	// consumer should proceed to its idle-loop behavior (e.g. present a
	// frame) instead of blocking.
	IdleNoSleep
)

// TrySleep implements the consumer's drain-check/sleep transition. Pass
// allowSleep=false to get idle-loop behavior (e.g. when the worker must
// keep presenting frames) instead of blocking on the wake semaphore.
func (c *Coordinator) TrySleep(allowSleep bool) SleepResult {
	for {
		var newState int32
		old := c.w.Load()
		if workCount(old) > 0 {
			newState = old & cpuWaiting
		} else {
			newState = sleeping
		}
		if !c.w.CompareAndSwap(old, newState) {
			continue
		}

		if workCount(old) > 0 {
			return Busy
		}

		if old&cpuWaiting != 0 {
			c.done.Post()
		}

		if !allowSleep {
			return IdleNoSleep
		}
		c.wake.Wait()
		return WokenAfterSleep
	}
}
