package gputhread

import (
	"sync/atomic"

	"github.com/stratoshift/duckstation/gpubackend"
	"github.com/stratoshift/duckstation/gpudevice"
)

// noBackendRequested is the config.requestedRenderer sentinel meaning "no
// backend at all", the Go stand-in for the original's
// std::optional<GPURenderer> having no value.
const noBackendRequested int32 = -1

// config holds the settings the producer can change out-of-band from the
// command ring. Every field is touched from two goroutines — the producer
// writes, the worker reads — so each is its own atomic rather than a single
// struct behind a mutex; the worker re-reads the value it cares about only
// when a ChangeBackend/UpdateVSync command tells it something changed,
// mirroring the acquire fence the original takes right before reading
// s_requested_renderer/s_requested_vsync on the GPU thread.
type config struct {
	requestedRenderer     atomic.Int32
	requestedVSync        atomic.Int32
	allowPresentThrottle  atomic.Bool
	fullscreenUIRequested atomic.Bool
	runIdle               atomic.Bool
}

func newConfig() *config {
	c := &config{}
	c.requestedRenderer.Store(noBackendRequested)
	c.requestedVSync.Store(int32(gpudevice.VSyncDisabled))
	return c
}

func (c *config) setRequestedBackend(kind gpubackend.Kind, has bool) {
	if has {
		c.requestedRenderer.Store(int32(kind))
	} else {
		c.requestedRenderer.Store(noBackendRequested)
	}
}

func (c *config) getRequestedBackend() (gpubackend.Kind, bool) {
	v := c.requestedRenderer.Load()
	if v == noBackendRequested {
		return gpubackend.KindNone, false
	}
	return gpubackend.Kind(v), true
}

func (c *config) setVSync(mode gpudevice.VSyncMode, allowThrottle bool) {
	c.requestedVSync.Store(int32(mode))
	c.allowPresentThrottle.Store(allowThrottle)
}

func (c *config) getVSync() (gpudevice.VSyncMode, bool) {
	return gpudevice.VSyncMode(c.requestedVSync.Load()), c.allowPresentThrottle.Load()
}
