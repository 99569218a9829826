// Package gpudevice defines the Device abstraction the GPU worker thread
// drives, and provides two concrete implementations: an SDL2-backed device
// (software path, grounded on the teacher's ppu/ppu_display.go) and a
// gogpu/wgpu-backed device (hardware path).
package gpudevice

import "time"

// RenderAPI identifies the underlying graphics API a Device was created
// for.
type RenderAPI int

const (
	RenderAPINone RenderAPI = iota
	RenderAPISDLSoftware
	RenderAPIWGPU
)

func (a RenderAPI) String() string {
	switch a {
	case RenderAPISDLSoftware:
		return "sdl-software"
	case RenderAPIWGPU:
		return "wgpu"
	default:
		return "none"
	}
}

// VSyncMode mirrors the vsync modes the worker can request.
type VSyncMode int

const (
	VSyncDisabled VSyncMode = iota
	VSyncEnabled
	VSyncAdaptive
)

// PresentResult is the outcome of a present attempt.
type PresentResult int

const (
	PresentOK PresentResult = iota
	PresentSkipped
	PresentDeviceLost
	PresentError
)

// FeatureSet describes optional capabilities a Device exposes. The
// presentation loop reads ExplicitPresent to decide whether explicit
// present splitting is available; the other fields are reported but not
// read by gputhread.
type FeatureSet struct {
	ExplicitPresent        bool
	DualSourceBlend        bool
	FramebufferFetch       bool
	TextureBuffers         bool
	MemoryImport           bool
	RasterOrderViews       bool
}

// DisabledFeatureMask is a bitmask of features a caller has explicitly
// disabled via configuration, matching GPUDevice::FeatureMask in the
// original implementation.
type DisabledFeatureMask uint32

const (
	FeatureMaskDualSourceBlend DisabledFeatureMask = 1 << iota
	FeatureMaskFramebufferFetch
	FeatureMaskTextureBuffers
	FeatureMaskMemoryImport
	FeatureMaskRasterOrderViews
)

// CreateOptions configures a Device at creation time. Fields correspond
// directly to the parameters CreateDeviceOnThread passes in the original:
// adapter selection, shader cache location/version, debug device, initial
// vsync state, and the exclusive-fullscreen/disabled-feature knobs.
type CreateOptions struct {
	Adapter                string
	CacheDir                string
	CacheVersion            uint32
	Debug                   bool
	VSync                   VSyncMode
	AllowPresentThrottle    bool
	ExclusiveFullscreen     *bool
	DisabledFeatures        DisabledFeatureMask
	WindowWidth             int
	WindowHeight            int
	WindowTitle             string
}

// Device is everything the worker loop and presentation/stats component
// need from the underlying graphics API. It is owned exclusively by the
// worker goroutine once created; the producer never touches it directly.
type Device interface {
	RenderAPI() RenderAPI
	WindowSize() (w, h int)
	ResizeWindow(w, h int, scale float32) error
	UpdateWindow() error

	SetVSyncMode(mode VSyncMode, allowThrottle bool)
	IsVSyncModeBlocking() bool
	ThrottlePresentation()
	ShouldSkipFrame() bool

	BeginPresent() (PresentResult, error)
	EndPresent(explicit bool, presentTime time.Time)
	SubmitPresent()

	Features() FeatureSet
	SetGPUTimingEnabled(enabled bool)
	IsGPUTimingEnabled() bool
	// AccumulatedGPUTimeMS returns the GPU time accumulated since the last
	// call, in milliseconds, and resets the accumulator.
	AccumulatedGPUTimeMS() float32

	Destroy()
}

// Factory creates a Device for the given API. The worker calls this from
// its own goroutine and passes CreateOptions by value.
type Factory func(api RenderAPI, opts CreateOptions) (Device, error)
