package gputhread

import (
	"context"
	"time"

	"github.com/stratoshift/duckstation/cmdring"
	"github.com/stratoshift/duckstation/gpusync"
)

// run is the worker goroutine's entry point. It creates the device and
// optional backend, signals Start's caller, then drains the command ring
// until shutdown is requested. Grounded on GPUThread::RunGPULoop.
func (t *Thread) run(ctx context.Context) {
	defer close(t.stopped)

	if err := t.createDeviceOnThread(t.renderAPI); err != nil {
		t.host.ReleaseRenderWindow()
		t.startErr <- err
		return
	}

	if kind, has := t.cfg.getRequestedBackend(); has {
		t.createBackendOnThread(kind)
	}

	t.lastPerfUpdate = time.Now()
	t.startErr <- nil

	for {
		if ctx.Err() != nil {
			break
		}

		writePtr := t.ring.LoadWriteAcquire()
		readPtr := t.ring.LoadReadRelaxed()
		if readPtr == writePtr {
			if t.shutdown.Load() {
				break
			}
			switch t.sync.TrySleep(!t.cfg.runIdle.Load()) {
			case gpusync.Busy, gpusync.WokenAfterSleep:
				continue
			default: // gpusync.IdleNoSleep: no work, not allowed to sleep
				t.presentFrame(false, time.Time{})
				if t.device != nil && !t.device.IsVSyncModeBlocking() {
					t.device.ThrottlePresentation()
				}
				continue
			}
		}

		if writePtr < readPtr {
			writePtr = t.ring.Size()
		}
		for readPtr < writePtr {
			rec := t.ring.Decode(readPtr)
			readPtr += rec.Size

			switch rec.Kind {
			case cmdring.KindWraparound:
				writePtr = t.ring.LoadWriteAcquire()
				readPtr = 0
				t.ring.StoreReadRelease(0)

			case cmdring.KindAsyncCall:
				id := decodeAsyncCallPayload(rec.Payload)
				if fn := t.calls.take(id); fn != nil {
					fn()
				}

			case cmdring.KindChangeBackend:
				t.changeBackendOnThread()

			case cmdring.KindUpdateVSync:
				t.updateVSyncOnThread()

			default:
				if t.backend != nil {
					if err := t.backend.HandleCommand(uint32(rec.Kind), rec.Payload); err != nil {
						t.log.Error().Err(err).Uint32("kind", uint32(rec.Kind)).Msg("backend command failed")
					}
				}
			}
		}

		t.ring.StoreReadRelease(readPtr)
	}

	t.destroyBackendOnThread()
	t.destroyDeviceOnThread()
	t.host.ReleaseRenderWindow()
}
