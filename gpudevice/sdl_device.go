package gpudevice

import (
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/rs/zerolog"
	"github.com/veandco/go-sdl2/sdl"
)

var sdlLog = zerolog.New(os.Stderr).With().Str("component", "gpudevice.sdl").Timestamp().Logger()

// sdlDevice is the software-path Device: an SDL2 window, accelerated
// renderer, and one streaming texture the backend blits full frames into.
// Grounded on the teacher's ppu/ppu_display.go (initCanvas/ShowScreen/
// Cleanup), generalized from a fixed 256x240 NES screen to an arbitrary
// size and moved off PPU-owned package globals onto a struct the worker
// thread exclusively owns.
type sdlDevice struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	width, height int
	vsync         VSyncMode
	allowThrottle bool

	gpuTimingEnabled bool
	lastPresent      time.Time
}

// NewSDLDevice is a gpudevice.Factory for the SDL2 software path.
func NewSDLDevice(_ RenderAPI, opts CreateOptions) (Device, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("gpudevice: failed to initialize SDL video: %w", err)
	}

	title := opts.WindowTitle
	if title == "" {
		title = "duckstation"
	}
	w, h := opts.WindowWidth, opts.WindowHeight
	if w <= 0 || h <= 0 {
		w, h = 256, 240
	}

	window, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		w, h, sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("gpudevice: failed to create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("gpudevice: failed to create renderer: %w", err)
	}

	if err := renderer.SetLogicalSize(w, h); err != nil {
		sdlLog.Warn().Err(err).Msg("failed to set logical size, scaling may be incorrect")
	}

	sdl.SetHint(sdl.HINT_RENDER_SCALE_QUALITY, "0")
	sdl.SetHint(sdl.HINT_RENDER_BATCHING, "1")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, w, h)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("gpudevice: failed to create streaming texture: %w", err)
	}

	if err := renderer.SetDrawColor(0, 0, 0, 255); err != nil {
		sdlLog.Warn().Err(err).Msg("failed to set draw color")
	}

	dev := &sdlDevice{
		window:   window,
		renderer: renderer,
		texture:  texture,
		width:    w,
		height:   h,
		vsync:    opts.VSync,
	}
	dev.SetVSyncMode(opts.VSync, opts.AllowPresentThrottle)
	return dev, nil
}

func (d *sdlDevice) RenderAPI() RenderAPI { return RenderAPISDLSoftware }

// WindowSize returns the streaming texture's fixed pixel resolution, not
// the SDL window's current on-screen size: it's what BlitFrame validates
// incoming frames against and what backends size their VRAM to, and SDL's
// logical-size scaling keeps that resolution displayed correctly at
// whatever physical size the window is resized to.
func (d *sdlDevice) WindowSize() (int, int) { return d.width, d.height }

// ResizeWindow changes the physical on-screen window size. It deliberately
// leaves d.width/d.height (the texture's pixel resolution) untouched — SDL's
// logical size, set once at creation, rescales the fixed-resolution texture
// to fit, the same way a resizable NES window would letterbox/scale a
// 256x240 framebuffer rather than resample it.
func (d *sdlDevice) ResizeWindow(w, h int, _ float32) error {
	d.window.SetSize(w, h)
	return nil
}

func (d *sdlDevice) UpdateWindow() error { return nil }

func (d *sdlDevice) SetVSyncMode(mode VSyncMode, allowThrottle bool) {
	d.vsync = mode
	d.allowThrottle = allowThrottle
	if mode == VSyncDisabled {
		sdl.SetHint(sdl.HINT_RENDER_VSYNC, "0")
	} else {
		sdl.SetHint(sdl.HINT_RENDER_VSYNC, "1")
	}
}

func (d *sdlDevice) IsVSyncModeBlocking() bool {
	return d.vsync != VSyncDisabled && !d.allowThrottle
}

func (d *sdlDevice) ThrottlePresentation() {
	const targetFrameTime = time.Second / 60
	elapsed := time.Since(d.lastPresent)
	if elapsed < targetFrameTime {
		time.Sleep(targetFrameTime - elapsed)
	}
}

func (d *sdlDevice) ShouldSkipFrame() bool { return false }

// BlitFrame uploads packed ARGB8888 pixel data into the streaming texture.
// Called by the software backend from Flush; this Device is only
// ever touched from the worker thread, so no locking is needed here.
func (d *sdlDevice) BlitFrame(pixels []uint32) error {
	if len(pixels) != d.width*d.height {
		return fmt.Errorf("gpudevice: blit size mismatch: got %d want %d", len(pixels), d.width*d.height)
	}
	pitch := d.width * 4
	ptr := unsafe.Pointer(&pixels[0])
	return d.texture.Update(nil, ptr, pitch)
}

func (d *sdlDevice) BeginPresent() (PresentResult, error) {
	if err := d.renderer.Clear(); err != nil {
		return PresentError, fmt.Errorf("gpudevice: clear failed: %w", err)
	}
	if err := d.renderer.Copy(d.texture, nil, nil); err != nil {
		return PresentError, fmt.Errorf("gpudevice: copy failed: %w", err)
	}
	return PresentOK, nil
}

func (d *sdlDevice) EndPresent(_ bool, _ time.Time) {
	d.renderer.Present()
	d.lastPresent = time.Now()
}

func (d *sdlDevice) SubmitPresent() {}

func (d *sdlDevice) Features() FeatureSet {
	return FeatureSet{ExplicitPresent: false}
}

func (d *sdlDevice) SetGPUTimingEnabled(enabled bool) { d.gpuTimingEnabled = enabled }
func (d *sdlDevice) IsGPUTimingEnabled() bool         { return d.gpuTimingEnabled }
func (d *sdlDevice) AccumulatedGPUTimeMS() float32    { return 0 }

func (d *sdlDevice) Destroy() {
	if d.texture != nil {
		d.texture.Destroy()
		d.texture = nil
	}
	if d.renderer != nil {
		d.renderer.Destroy()
		d.renderer = nil
	}
	if d.window != nil {
		d.window.Destroy()
		d.window = nil
	}
	sdl.Quit()
}
