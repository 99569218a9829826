// Package gputhread runs the emulator's rendering subsystem on its own
// goroutine, decoupled from the emulation core by a lock-free command ring.
// The producer (the emulation loop) allocates and commits command records;
// the consumer (this package's single worker goroutine) owns the
// gpudevice.Device and gpubackend.Backend exclusively and drains them.
//
// Grounded on original_source/src/core/gpu_thread.cpp's GPUThread
// namespace, translated from C++ atomics/kernel semaphores into Go's
// sync/atomic and the gpusync package's channel-backed semaphores.
package gputhread

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratoshift/duckstation/cmdring"
	"github.com/stratoshift/duckstation/gpubackend"
	"github.com/stratoshift/duckstation/gpudevice"
	"github.com/stratoshift/duckstation/gpusync"
	"github.com/stratoshift/duckstation/host"
)

// Thread owns the command ring, the wake/sleep coordinator, and the
// gpudevice.Device/gpubackend.Backend pair, and runs them on a single
// goroutine started by Start.
type Thread struct {
	ring  *cmdring.Ring
	sync  *gpusync.Coordinator
	cfg   *config
	calls *asyncSlab

	deviceFactories  map[gpudevice.RenderAPI]gpudevice.Factory
	backendFactories map[gpubackend.Kind]gpubackend.Factory
	host             host.Host
	log              zerolog.Logger
	metrics          *metrics
	fatalHook        func(err *FatalError)

	windowWidth, windowHeight int
	windowTitle               string

	// device/backend/renderAPI are owned exclusively by the worker
	// goroutine once running; no lock needed.
	device     gpudevice.Device
	backend    gpubackend.Backend
	renderAPI  gpudevice.RenderAPI

	startErr chan error
	started  atomic.Bool
	shutdown atomic.Bool
	stopped  chan struct{}

	// Performance accounting. accumulatedGPUTime/presentsSinceUpdate/
	// lastPerfUpdate are worker-goroutine-owned; gpuUsageBits/avgTimeBits
	// publish the results for GPUUsage/GPUAverageTime, which any goroutine
	// may call.
	accumulatedGPUTime  float32
	presentsSinceUpdate uint32
	lastPerfUpdate      time.Time
	gpuUsageBits        atomic.Uint32
	avgTimeBits         atomic.Uint32

	lastDeviceLostReset time.Time
}

func storeFloat32(a *atomic.Uint32, v float32) { a.Store(math.Float32bits(v)) }
func loadFloat32(a *atomic.Uint32) float32     { return math.Float32frombits(a.Load()) }

// New constructs a Thread. Call Start to create the device/backend and
// begin the worker goroutine.
func New(opts Options) (*Thread, error) {
	if opts.Host == nil {
		return nil, fmt.Errorf("gputhread: Options.Host is required")
	}
	if len(opts.DeviceFactories) == 0 {
		return nil, fmt.Errorf("gputhread: Options.DeviceFactories must have at least one entry")
	}

	ringSize := opts.RingSize
	if ringSize == 0 {
		ringSize = cmdring.DefaultSize
	}

	logger := zerolog.New(os.Stderr).With().Str("component", "gputhread").Timestamp().Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	t := &Thread{
		ring:             cmdring.New(ringSize),
		sync:             gpusync.NewCoordinator(),
		cfg:              newConfig(),
		calls:            newAsyncSlab(),
		deviceFactories:  opts.DeviceFactories,
		backendFactories: opts.BackendFactories,
		host:             opts.Host,
		log:              logger,
		metrics:          newMetrics(opts.MetricsRegisterer),
		fatalHook:        opts.FatalHook,
		windowWidth:      opts.WindowWidth,
		windowHeight:     opts.WindowHeight,
		windowTitle:      opts.WindowTitle,
		renderAPI:        opts.InitialAPI,
		startErr:         make(chan error, 1),
		stopped:          make(chan struct{}),
	}
	t.cfg.runIdle.Store(opts.RunIdle)
	t.cfg.setVSync(opts.InitialVSync, opts.AllowPresentThrottle)
	t.cfg.setRequestedBackend(opts.InitialBackend, opts.HasInitialBackend)
	return t, nil
}

// Start creates the device and (if requested) the backend, then launches
// the worker goroutine, blocking until the device has been created (or
// creation has failed), mirroring GPUThread::Start's use of m_sync_semaphore
// to make startup synchronous from the caller's perspective.
func (t *Thread) Start(ctx context.Context) error {
	if t.started.Swap(true) {
		return fmt.Errorf("gputhread: already started")
	}
	go t.run(ctx)
	select {
	case err := <-t.startErr:
		if err != nil {
			// The worker has already exited; IsStarted must not report it
			// as running.
			t.shutdown.Store(true)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsStarted reports whether the worker goroutine successfully created its
// device and is running.
func (t *Thread) IsStarted() bool {
	return t.started.Load() && !t.shutdown.Load()
}

// Shutdown asks the worker to drain, tear down its device/backend, and
// return. It blocks until the goroutine has exited.
func (t *Thread) Shutdown() {
	if !t.started.Load() {
		return
	}
	t.shutdown.Store(true)
	t.sync.WakeConsumer()
	<-t.stopped
}

// allocate is the shared entry point every producer-side command builder
// goes through: it carves out the record, lets the caller fill the payload,
// and returns the filled record so the caller can Commit it.
func (t *Thread) allocate(kind cmdring.Kind, payloadSize uint32) []byte {
	return t.ring.Allocate(kind, payloadSize, t.sync.WakeConsumer)
}

func (t *Thread) pushAndWake(rec []byte) {
	t.ring.Commit(rec)
	t.sync.WakeConsumer()
}

func (t *Thread) pushAndSync(rec []byte, spin bool) {
	t.ring.Commit(rec)
	t.sync.WakeConsumer()
	t.sync.SyncConsumer(spin)
}

// RunOnThread schedules fn to run on the worker goroutine and returns
// immediately.
func (t *Thread) RunOnThread(fn func()) {
	id := t.calls.store(fn)
	rec := t.allocate(cmdring.KindAsyncCall, asyncCallPayloadSize)
	encodeAsyncCallPayload(rec, id)
	t.pushAndWake(rec)
}

// RunOnThreadSync schedules fn to run on the worker goroutine and blocks
// until it (and everything committed before it) has been drained.
func (t *Thread) RunOnThreadSync(fn func(), spin bool) {
	id := t.calls.store(fn)
	rec := t.allocate(cmdring.KindAsyncCall, asyncCallPayloadSize)
	encodeAsyncCallPayload(rec, id)
	t.pushAndSync(rec, spin)
}

// Sync blocks the caller until the worker has drained every command
// committed before this call, without submitting a command of its own.
func (t *Thread) Sync(spin bool) {
	t.sync.SyncConsumer(spin)
}

// SubmitFrame pushes a fully-rasterized ARGB8888 framebuffer to the active
// software backend. The caller must own pixels exclusively until this call
// returns; the payload is copied into the ring.
func (t *Thread) SubmitFrame(pixels []uint32) {
	rec := t.allocate(cmdring.KindBlitFrame, framePayloadSize(len(pixels)))
	encodeFramePayload(rec, pixels)
	t.pushAndWake(rec)
}

// SubmitVRAMWrite pushes a rectangular VRAM write to the active hardware
// backend.
func (t *Thread) SubmitVRAMWrite(x, y, w, h uint16, pixels []uint16) {
	rec := t.allocate(cmdring.KindVRAMWrite, vramWritePayloadSize(len(pixels)))
	encodeVRAMWritePayload(rec, x, y, w, h, pixels)
	t.pushAndWake(rec)
}

// ChangeBackend requests a switch to a different renderer (or to no
// renderer at all). The switch happens asynchronously on the worker
// goroutine; call Sync afterward if the caller needs to wait for it.
func (t *Thread) ChangeBackend(kind gpubackend.Kind, hasBackend bool) {
	t.cfg.setRequestedBackend(kind, hasBackend)
	rec := t.allocate(cmdring.KindChangeBackend, 0)
	t.pushAndWake(rec)
}

// SetVSync requests a vsync mode change, applied on the worker goroutine.
func (t *Thread) SetVSync(mode gpudevice.VSyncMode, allowPresentThrottle bool) {
	cur, curThrottle := t.cfg.getVSync()
	if cur == mode && curThrottle == allowPresentThrottle {
		return
	}
	t.cfg.setVSync(mode, allowPresentThrottle)
	rec := t.allocate(cmdring.KindUpdateVSync, 0)
	t.pushAndWake(rec)
}

// PresentCurrentFrame asks the worker to re-present the last frame, used
// e.g. after a window resize while the emulated system is paused. A no-op
// while SetRunIdle(true) is in effect, since the idle loop already
// re-presents continuously.
func (t *Thread) PresentCurrentFrame() {
	if t.cfg.runIdle.Load() {
		return
	}
	t.RunOnThread(func() {
		t.presentFrame(false, time.Time{})
	})
}

// ResizeDisplayWindow asks the worker to resize the window/surface.
func (t *Thread) ResizeDisplayWindow(width, height int, scale float32) {
	t.RunOnThread(func() {
		if t.device == nil {
			return
		}
		if err := t.device.ResizeWindow(width, height, scale); err != nil {
			t.log.Warn().Err(err).Msg("failed to resize display window")
		}
	})
}

// UpdateDisplayWindow asks the worker to re-bind to the (possibly changed)
// native window handle without recreating the device.
func (t *Thread) UpdateDisplayWindow() {
	t.RunOnThread(func() {
		if t.device == nil {
			return
		}
		if err := t.device.UpdateWindow(); err != nil {
			t.host.ReportErrorAsync("Error", "Failed to change window after update. The log may contain more information.")
		}
	})
}

// SetRunIdle toggles whether the worker keeps presenting frames instead of
// sleeping when the ring is empty.
func (t *Thread) SetRunIdle(enabled bool) {
	t.cfg.runIdle.Store(enabled)
	t.log.Debug().Bool("run_idle", enabled).Msg("run-idle toggled")
}

// GPUUsage returns the last computed approximate GPU busy percentage.
func (t *Thread) GPUUsage() float32 {
	return loadFloat32(&t.gpuUsageBits)
}

// GPUAverageTime returns the last computed average per-frame GPU time in
// milliseconds.
func (t *Thread) GPUAverageTime() float32 {
	return loadFloat32(&t.avgTimeBits)
}
