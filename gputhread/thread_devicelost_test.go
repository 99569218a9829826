package gputhread

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stratoshift/duckstation/gpudevice"
)

// TestDeviceLostRecoversOnFirstLoss exercises the happy path of S6: a single
// device-lost result recreates the device and backend and restores VRAM,
// without touching the fatal hook.
func TestDeviceLostRecoversOnFirstLoss(t *testing.T) {
	host := newFakeHost()
	th, err := New(baseTestOptions(host))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := th.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer th.Shutdown()

	var fatalCalls int
	var mu sync.Mutex
	th.fatalHook = func(fe *FatalError) {
		mu.Lock()
		fatalCalls++
		mu.Unlock()
	}

	var original gpudevice.Device
	th.RunOnThreadSync(func() {
		original = th.device
		th.backend.(*fakeBackend).vram = []byte{9, 9, 9}
		th.device.(*fakeDevice).setNextPresent(gpudevice.PresentDeviceLost, nil)
	}, false)

	// PresentCurrentFrame drives a BeginPresent call on the worker, which
	// will observe PresentDeviceLost and call handleGPUDeviceLost.
	th.PresentCurrentFrame()
	th.Sync(false)

	var recreatedDevice gpudevice.Device
	var recreatedBackend *fakeBackend
	th.RunOnThreadSync(func() {
		recreatedDevice = th.device
		recreatedBackend = th.backend.(*fakeBackend)
	}, false)

	if recreatedDevice == original {
		t.Error("device was not recreated after device loss")
	}
	if original.(*fakeDevice).isDestroyed() == false {
		t.Error("old device was never destroyed")
	}
	if string(recreatedBackend.vram) != string([]byte{9, 9, 9}) {
		t.Errorf("recreated backend VRAM = %v, want restored snapshot", recreatedBackend.vram)
	}

	mu.Lock()
	defer mu.Unlock()
	if fatalCalls != 0 {
		t.Errorf("fatal hook called %d times on a single, recoverable loss", fatalCalls)
	}
}

// TestDeviceLostTwiceWithinWindowTriggersFatal exercises S6's escalation
// path: a second device loss within minTimeBetweenResets of the first must
// call the fatal hook instead of attempting another recreation.
func TestDeviceLostTwiceWithinWindowTriggersFatal(t *testing.T) {
	host := newFakeHost()
	th, err := New(baseTestOptions(host))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := th.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer th.Shutdown()

	fatalCh := make(chan *FatalError, 4)
	th.fatalHook = func(fe *FatalError) { fatalCh <- fe }

	// Simulate an immediately preceding loss by backdating the last-reset
	// timestamp to just now, as handleGPUDeviceLost itself would after a
	// real recovery.
	th.RunOnThreadSync(func() {
		th.lastDeviceLostReset = time.Now()
	}, false)

	th.RunOnThread(func() {
		th.handleGPUDeviceLost()
	})
	th.Sync(false)

	select {
	case fe := <-fatalCh:
		if fe == nil {
			t.Fatal("fatal hook invoked with a nil FatalError")
		}
	default:
		t.Fatal("second device loss within the reset window never reached the fatal hook")
	}
}
