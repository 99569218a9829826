// Package gpubackend defines the renderer-specific command handler the GPU
// worker thread dispatches backend commands to, and provides the software
// (CPU-rasterized PPU framebuffer) and hardware (gogpu/wgpu) backends.
//
// A Backend is distinct from a gpudevice.Device: the Device owns the
// window/surface/present machinery, while the Backend owns the rendering
// state (VRAM, palettes, the rasterizer) and knows how to turn domain
// commands into pixels on that Device. This split mirrors
// original_source/src/core/gpu_thread.cpp, where GPUBackend and GPUDevice
// are separately created/destroyed/swapped on the worker thread.
package gpubackend

import "github.com/stratoshift/duckstation/gpudevice"

// Kind identifies what a Backend is rendering with, independent of the
// gpudevice.RenderAPI the Device underneath it uses.
type Kind int

const (
	KindNone Kind = iota
	KindSoftware
	KindHardware
)

func (k Kind) String() string {
	switch k {
	case KindSoftware:
		return "software"
	case KindHardware:
		return "hardware"
	default:
		return "none"
	}
}

// Backend renders frames onto a gpudevice.Device. gputhread's
// createBackendOnThread constructs one, HandleCommand dispatches every backend-specific ring
// record kind (>= cmdring.FirstBackendKind) to it, and UpdateSettings
// applies configuration changes without tearing the backend down.
type Backend interface {
	Kind() Kind

	// AttachDevice binds the backend to the current device. Called once,
	// right after the backend is created. After a device loss or a device
	// switch the old Backend is destroyed and a new one is created and
	// attached; AttachDevice is not called again on an existing Backend.
	AttachDevice(dev gpudevice.Device) error

	// HandleCommand executes one backend-specific command decoded from the
	// ring. kind is always >= cmdring.FirstBackendKind; payload is the raw
	// record payload bytes.
	HandleCommand(kind uint32, payload []byte) error

	// Flush submits any buffered rendering work to the attached device. It
	// does not present; the worker's presentFrame does that afterwards.
	Flush() error

	// VRAMSnapshot returns a copy of the backend's current framebuffer/VRAM
	// contents, used to seed a freshly (re)created backend of a possibly
	// different kind so a renderer swap does not lose the picture on
	// screen.
	VRAMSnapshot() []byte

	// RestoreVRAM loads a snapshot produced by VRAMSnapshot, used right
	// after AttachDevice when switching backend kinds.
	RestoreVRAM(data []byte) error

	Destroy()
}

// Factory creates a Backend of the given kind. Called from the worker
// goroutine by gputhread's createBackendOnThread (also reached through
// changeBackendOnThread and device-lost recovery).
type Factory func(kind Kind) (Backend, error)
