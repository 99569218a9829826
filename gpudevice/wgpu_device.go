package gpudevice

import (
	"fmt"
	"os"
	"time"

	"github.com/gogpu/wgpu/core"
	"github.com/gogpu/wgpu/types"
	"github.com/rs/zerolog"
)

var wgpuLog = zerolog.New(os.Stderr).With().Str("component", "gpudevice.wgpu").Timestamp().Logger()

// wgpuDevice is the hardware-path Device, wrapping github.com/gogpu/wgpu.
// Grounded on gogpu-gg's backend/wgpu/device.go adapter/device/queue
// request sequence.
type wgpuDevice struct {
	adapterID core.AdapterID
	deviceID  core.DeviceID
	queueID   core.QueueID

	width, height int
	vsync         VSyncMode
	allowThrottle bool

	gpuTimingEnabled   bool
	accumulatedGPUTime float32
}

// NewWGPUDevice is a gpudevice.Factory for the hardware path.
func NewWGPUDevice(_ RenderAPI, opts CreateOptions) (Device, error) {
	adapterID, err := core.RequestAdapter(&types.AdapterOptions{
		PowerPreference: types.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("gpudevice: failed to request wgpu adapter: %w", err)
	}

	info, err := core.GetAdapterInfo(adapterID)
	if err == nil {
		wgpuLog.Info().Str("name", info.Name).Str("backend", fmt.Sprint(info.Backend)).Msg("selected GPU adapter")
	}

	deviceID, err := core.RequestDevice(adapterID, &types.DeviceDescriptor{
		Label:            opts.WindowTitle,
		RequiredFeatures: nil,
		RequiredLimits:   types.DefaultLimits(),
	})
	if err != nil {
		core.AdapterDrop(adapterID)
		return nil, fmt.Errorf("gpudevice: failed to create wgpu device: %w", err)
	}

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		core.DeviceDrop(deviceID)
		core.AdapterDrop(adapterID)
		return nil, fmt.Errorf("gpudevice: failed to get device queue: %w", err)
	}

	w, h := opts.WindowWidth, opts.WindowHeight
	if w <= 0 || h <= 0 {
		w, h = 256, 240
	}

	return &wgpuDevice{
		adapterID: adapterID,
		deviceID:  deviceID,
		queueID:   queueID,
		width:     w,
		height:    h,
		vsync:     opts.VSync,
	}, nil
}

func (d *wgpuDevice) RenderAPI() RenderAPI   { return RenderAPIWGPU }
func (d *wgpuDevice) WindowSize() (int, int) { return d.width, d.height }

func (d *wgpuDevice) ResizeWindow(w, h int, _ float32) error {
	d.width, d.height = w, h
	return nil
}

func (d *wgpuDevice) UpdateWindow() error { return nil }

func (d *wgpuDevice) SetVSyncMode(mode VSyncMode, allowThrottle bool) {
	d.vsync = mode
	d.allowThrottle = allowThrottle
}

func (d *wgpuDevice) IsVSyncModeBlocking() bool {
	return d.vsync != VSyncDisabled && !d.allowThrottle
}

func (d *wgpuDevice) ThrottlePresentation() {
	time.Sleep(time.Millisecond)
}

func (d *wgpuDevice) ShouldSkipFrame() bool { return false }

func (d *wgpuDevice) BeginPresent() (PresentResult, error) {
	// Nothing is encoded or submitted to the queue here, and the hardware
	// backend does not submit anything either; this only reports PresentOK,
	// since VRAM/texture arithmetic is out of this repository's scope.
	return PresentOK, nil
}

func (d *wgpuDevice) EndPresent(explicit bool, presentTime time.Time) {
	if explicit && !presentTime.IsZero() {
		if d := time.Until(presentTime); d > 0 {
			time.Sleep(d)
		}
	}
}

func (d *wgpuDevice) SubmitPresent() {}

func (d *wgpuDevice) Features() FeatureSet {
	return FeatureSet{
		ExplicitPresent:  true,
		DualSourceBlend:  true,
		TextureBuffers:   true,
		RasterOrderViews: true,
	}
}

func (d *wgpuDevice) SetGPUTimingEnabled(enabled bool) { d.gpuTimingEnabled = enabled }
func (d *wgpuDevice) IsGPUTimingEnabled() bool         { return d.gpuTimingEnabled }

func (d *wgpuDevice) AccumulatedGPUTimeMS() float32 {
	t := d.accumulatedGPUTime
	d.accumulatedGPUTime = 0
	return t
}

func (d *wgpuDevice) Destroy() {
	if !d.queueID.IsZero() {
		// Queues are released implicitly with their owning device.
	}
	if !d.deviceID.IsZero() {
		if err := core.DeviceDrop(d.deviceID); err != nil {
			wgpuLog.Warn().Err(err).Msg("failed to release wgpu device")
		}
	}
	if !d.adapterID.IsZero() {
		if err := core.AdapterDrop(d.adapterID); err != nil {
			wgpuLog.Warn().Err(err).Msg("failed to release wgpu adapter")
		}
	}
}
