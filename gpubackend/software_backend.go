package gpubackend

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratoshift/duckstation/cmdring"
	"github.com/stratoshift/duckstation/gpudevice"
)

var softwareLog = zerolog.New(os.Stderr).With().Str("component", "gpubackend.software").Timestamp().Logger()

var zeroTime time.Time

// blitDevice is the subset of gpudevice.Device the software backend needs
// beyond the common Device interface: the raw texture upload entry point
// sdlDevice exposes. Declared as its own interface so this package does not
// need an import cycle or a type assertion spelled out at every call site.
type blitDevice interface {
	BlitFrame(pixels []uint32) error
}

// softwareBackend renders by copying the emulation core's already-rasterized
// framebuffer into the attached Device's texture. Grounded on the teacher's
// ppu/ppu_display.go ShowScreen, but relocated: instead of the PPU blitting
// its own SCREEN_DATA directly to an SDL texture it owns, the producer now
// submits a KindBlitFrame command carrying a copy of SCREEN_DATA, and this
// backend performs the blit on the worker goroutine that owns the Device.
type softwareBackend struct {
	dev    gpudevice.Device
	blit   blitDevice
	width  int
	height int
	vram   []uint32
}

// NewSoftwareBackend is a gpubackend.Factory entry for Kind == KindSoftware.
func NewSoftwareBackend(kind Kind) (Backend, error) {
	if kind != KindSoftware {
		return nil, fmt.Errorf("gpubackend: NewSoftwareBackend called with kind %s", kind)
	}
	return &softwareBackend{}, nil
}

func (b *softwareBackend) Kind() Kind { return KindSoftware }

func (b *softwareBackend) AttachDevice(dev gpudevice.Device) error {
	bd, ok := dev.(blitDevice)
	if !ok {
		return fmt.Errorf("gpubackend: device %s does not support direct framebuffer blits", dev.RenderAPI())
	}
	b.dev = dev
	b.blit = bd
	b.width, b.height = dev.WindowSize()
	if len(b.vram) != b.width*b.height {
		b.vram = make([]uint32, b.width*b.height)
	}
	return nil
}

// HandleCommand decodes a KindBlitFrame payload (a little-endian uint32
// pixel count followed by that many ARGB8888 pixels) and stores it as the
// backend's current frame, ready for Flush to upload to the device.
func (b *softwareBackend) HandleCommand(kind uint32, payload []byte) error {
	switch cmdring.Kind(kind) {
	case cmdring.KindBlitFrame:
		return b.handleBlitFrame(payload)
	default:
		return fmt.Errorf("gpubackend: software backend received unknown command kind %d", kind)
	}
}

func (b *softwareBackend) handleBlitFrame(payload []byte) error {
	if len(payload) < 4 {
		return fmt.Errorf("gpubackend: blit-frame payload too short: %d bytes", len(payload))
	}
	count := binary.LittleEndian.Uint32(payload[:4])
	pixels := payload[4:]
	if uint32(len(pixels)) < count*4 {
		return fmt.Errorf("gpubackend: blit-frame payload truncated: want %d pixels, have %d bytes", count, len(pixels))
	}
	if int(count) != len(b.vram) {
		b.vram = make([]uint32, count)
	}
	for i := uint32(0); i < count; i++ {
		b.vram[i] = binary.LittleEndian.Uint32(pixels[i*4:])
	}
	return nil
}

// Flush uploads the current VRAM into the attached device's texture.
// Presenting that texture to the screen is presentFrame's job, not
// Flush's: the original's FlushRender only waits for buffered GPU work to
// land, it never presents, and having both Flush and presentFrame drive
// BeginPresent/EndPresent/SubmitPresent would present every frame twice.
func (b *softwareBackend) Flush() error {
	if b.blit == nil {
		return fmt.Errorf("gpubackend: software backend flushed with no device attached")
	}
	if err := b.blit.BlitFrame(b.vram); err != nil {
		return fmt.Errorf("gpubackend: blit failed: %w", err)
	}
	return nil
}

func (b *softwareBackend) VRAMSnapshot() []byte {
	out := make([]byte, len(b.vram)*4)
	for i, px := range b.vram {
		binary.LittleEndian.PutUint32(out[i*4:], px)
	}
	return out
}

func (b *softwareBackend) RestoreVRAM(data []byte) error {
	if len(data)%4 != 0 {
		return fmt.Errorf("gpubackend: VRAM snapshot length %d not a multiple of 4", len(data))
	}
	n := len(data) / 4
	if n != len(b.vram) {
		b.vram = make([]uint32, n)
	}
	for i := 0; i < n; i++ {
		b.vram[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return nil
}

func (b *softwareBackend) Destroy() {
	softwareLog.Debug().Msg("software backend destroyed")
	b.vram = nil
	b.dev = nil
	b.blit = nil
}
