package gputhread

import (
	"sync"
	"time"

	"github.com/stratoshift/duckstation/gpubackend"
	"github.com/stratoshift/duckstation/gpudevice"
)

// fakeDevice is a gpudevice.Device that records calls instead of touching a
// real window or GPU, so the worker loop can be driven start-to-finish in a
// test binary.
type fakeDevice struct {
	mu sync.Mutex

	api              gpudevice.RenderAPI
	width, height    int
	vsync            gpudevice.VSyncMode
	allowThrottle    bool
	timingEnabled    bool
	destroyed        bool
	presentCount     int
	throttleCount    int
	nextPresent      gpudevice.PresentResult
	nextPresentErr   error
}

func newFakeDevice(api gpudevice.RenderAPI, opts gpudevice.CreateOptions) *fakeDevice {
	return &fakeDevice{
		api:           api,
		width:         opts.WindowWidth,
		height:        opts.WindowHeight,
		vsync:         opts.VSync,
		allowThrottle: opts.AllowPresentThrottle,
		nextPresent:   gpudevice.PresentOK,
	}
}

func fakeDeviceFactory(api gpudevice.RenderAPI, opts gpudevice.CreateOptions) (gpudevice.Device, error) {
	return newFakeDevice(api, opts), nil
}

func (d *fakeDevice) RenderAPI() gpudevice.RenderAPI { return d.api }
func (d *fakeDevice) WindowSize() (int, int)         { return d.width, d.height }

func (d *fakeDevice) ResizeWindow(w, h int, scale float32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width, d.height = w, h
	return nil
}

func (d *fakeDevice) UpdateWindow() error { return nil }

func (d *fakeDevice) SetVSyncMode(mode gpudevice.VSyncMode, allowThrottle bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vsync = mode
	d.allowThrottle = allowThrottle
}

func (d *fakeDevice) IsVSyncModeBlocking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vsync == gpudevice.VSyncEnabled
}

func (d *fakeDevice) ThrottlePresentation() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.throttleCount++
}

func (d *fakeDevice) ShouldSkipFrame() bool { return false }

func (d *fakeDevice) BeginPresent() (gpudevice.PresentResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presentCount++
	return d.nextPresent, d.nextPresentErr
}

func (d *fakeDevice) EndPresent(explicit bool, presentTime time.Time) {}
func (d *fakeDevice) SubmitPresent()                                  {}

func (d *fakeDevice) Features() gpudevice.FeatureSet {
	return gpudevice.FeatureSet{ExplicitPresent: true}
}

func (d *fakeDevice) SetGPUTimingEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timingEnabled = enabled
}

func (d *fakeDevice) IsGPUTimingEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timingEnabled
}

func (d *fakeDevice) AccumulatedGPUTimeMS() float32 { return 0 }

func (d *fakeDevice) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
}

func (d *fakeDevice) presentCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presentCount
}

func (d *fakeDevice) setNextPresent(r gpudevice.PresentResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextPresent, d.nextPresentErr = r, err
}

func (d *fakeDevice) isDestroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// fakeBackend is a gpubackend.Backend that records every command it
// receives instead of rendering anything.
type fakeBackend struct {
	mu sync.Mutex

	kind       gpubackend.Kind
	device     gpudevice.Device
	commands   []uint32
	payloads   [][]byte
	vram       []byte
	flushCount int
	destroyed  bool
	attachErr  error
}

func newFakeBackendFactory(kind gpubackend.Kind) (gpubackend.Backend, error) {
	return &fakeBackend{kind: kind}, nil
}

func (b *fakeBackend) Kind() gpubackend.Kind { return b.kind }

func (b *fakeBackend) AttachDevice(dev gpudevice.Device) error {
	if b.attachErr != nil {
		return b.attachErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.device = dev
	return nil
}

func (b *fakeBackend) HandleCommand(kind uint32, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, kind)
	b.payloads = append(b.payloads, append([]byte(nil), payload...))
	return nil
}

func (b *fakeBackend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushCount++
	return nil
}

func (b *fakeBackend) VRAMSnapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.vram))
	copy(out, b.vram)
	return out
}

func (b *fakeBackend) RestoreVRAM(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vram = append([]byte(nil), data...)
	return nil
}

func (b *fakeBackend) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
}

func (b *fakeBackend) commandKinds() []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint32(nil), b.commands...)
}

func (b *fakeBackend) receivedPayloads() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.payloads...)
}

// fakeHost is a host.Host that records every call instead of touching a
// real window or UI.
type fakeHost struct {
	mu               sync.Mutex
	releaseCount     int
	reportedErrors   []string
	messages         []string
	warnings         []string
}

func newFakeHost() *fakeHost { return &fakeHost{} }

func (h *fakeHost) ReleaseRenderWindow() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseCount++
}

func (h *fakeHost) ReportErrorAsync(title, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reportedErrors = append(h.reportedErrors, title+": "+message)
}

func (h *fakeHost) AddIconOSDMessage(key, icon, message string, duration time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, key)
}

func (h *fakeHost) AddIconOSDWarning(key, icon, message string, duration time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.warnings = append(h.warnings, key)
}

func baseTestOptions(host *fakeHost) Options {
	return Options{
		DeviceFactories: map[gpudevice.RenderAPI]gpudevice.Factory{
			gpudevice.RenderAPISDLSoftware: fakeDeviceFactory,
			gpudevice.RenderAPIWGPU:        fakeDeviceFactory,
		},
		BackendFactories: map[gpubackend.Kind]gpubackend.Factory{
			gpubackend.KindSoftware: newFakeBackendFactory,
			gpubackend.KindHardware: newFakeBackendFactory,
		},
		Host:                 host,
		InitialAPI:           gpudevice.RenderAPISDLSoftware,
		InitialBackend:       gpubackend.KindSoftware,
		HasInitialBackend:    true,
		AllowPresentThrottle: true,
		WindowWidth:          64,
		WindowHeight:         64,
		WindowTitle:          "test",
		RingSize:             4096,
	}
}
