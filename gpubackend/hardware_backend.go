package gpubackend

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/stratoshift/duckstation/cmdring"
	"github.com/stratoshift/duckstation/gpudevice"
)

var hardwareLog = zerolog.New(os.Stderr).With().Str("component", "gpubackend.hardware").Timestamp().Logger()

// vramRect is the decoded form of a KindVRAMWrite payload: a rectangular
// region of 16-bit VRAM words, matching the PS1 GPU's native VRAM write
// command shape referenced in original_source.
type vramRect struct {
	x, y, w, h uint16
	pixels     []uint16
}

// hardwareBackend renders through the wgpu-backed Device, maintaining its
// own offscreen VRAM image that VRAM-write commands mutate. That image is
// not uploaded to the Device; Flush does not copy it anywhere. Grounded on gogpu-gg's
// backend/gogpu/backend.go (mutex-guarded resource struct, Init/Destroy
// pair) and backend/wgpu/device.go (adapter/device/queue lifecycle, already
// consumed by gpudevice.wgpuDevice; this backend only needs the Device
// interface, not core/types directly).
type hardwareBackend struct {
	dev    gpudevice.Device
	width  int
	height int
	vram   []uint16
}

// NewHardwareBackend is a gpubackend.Factory entry for Kind == KindHardware.
func NewHardwareBackend(kind Kind) (Backend, error) {
	if kind != KindHardware {
		return nil, fmt.Errorf("gpubackend: NewHardwareBackend called with kind %s", kind)
	}
	return &hardwareBackend{}, nil
}

func (b *hardwareBackend) Kind() Kind { return KindHardware }

func (b *hardwareBackend) AttachDevice(dev gpudevice.Device) error {
	if dev.RenderAPI() != gpudevice.RenderAPIWGPU {
		return fmt.Errorf("gpubackend: hardware backend requires a wgpu device, got %s", dev.RenderAPI())
	}
	b.dev = dev
	b.width, b.height = dev.WindowSize()
	if len(b.vram) != b.width*b.height {
		b.vram = make([]uint16, b.width*b.height)
	}
	return nil
}

func (b *hardwareBackend) HandleCommand(kind uint32, payload []byte) error {
	switch cmdring.Kind(kind) {
	case cmdring.KindVRAMWrite:
		rect, err := decodeVRAMRect(payload)
		if err != nil {
			return err
		}
		return b.applyVRAMWrite(rect)
	default:
		return fmt.Errorf("gpubackend: hardware backend received unknown command kind %d", kind)
	}
}

func decodeVRAMRect(payload []byte) (vramRect, error) {
	if len(payload) < 8 {
		return vramRect{}, fmt.Errorf("gpubackend: vram-write payload too short: %d bytes", len(payload))
	}
	r := vramRect{
		x: binary.LittleEndian.Uint16(payload[0:2]),
		y: binary.LittleEndian.Uint16(payload[2:4]),
		w: binary.LittleEndian.Uint16(payload[4:6]),
		h: binary.LittleEndian.Uint16(payload[6:8]),
	}
	want := int(r.w) * int(r.h)
	data := payload[8:]
	if len(data) < want*2 {
		return vramRect{}, fmt.Errorf("gpubackend: vram-write payload truncated: want %d words, have %d bytes", want, len(data))
	}
	r.pixels = make([]uint16, want)
	for i := 0; i < want; i++ {
		r.pixels[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return r, nil
}

func (b *hardwareBackend) applyVRAMWrite(rect vramRect) error {
	if int(rect.x)+int(rect.w) > b.width || int(rect.y)+int(rect.h) > b.height {
		return fmt.Errorf("gpubackend: vram write rect (%d,%d,%d,%d) exceeds VRAM bounds %dx%d",
			rect.x, rect.y, rect.w, rect.h, b.width, b.height)
	}
	for row := 0; row < int(rect.h); row++ {
		dstOff := (int(rect.y)+row)*b.width + int(rect.x)
		srcOff := row * int(rect.w)
		copy(b.vram[dstOff:dstOff+int(rect.w)], rect.pixels[srcOff:srcOff+int(rect.w)])
	}
	return nil
}

// Flush only checks that a device is attached; the VRAM writes stay in the
// backend's own vram slice. Presenting is presentFrame's job, not Flush's: mirroring
// the original's FlushRender/PresentDisplay split, this backend has no
// buffered GPU work of its own to submit yet (the wgpu upload path isn't
// wired), so there is nothing to do here beyond satisfying the Backend
// interface — calling BeginPresent/EndPresent/SubmitPresent here as well as
// in presentFrame would present every frame twice.
func (b *hardwareBackend) Flush() error {
	if b.dev == nil {
		return fmt.Errorf("gpubackend: hardware backend flushed with no device attached")
	}
	return nil
}

func (b *hardwareBackend) VRAMSnapshot() []byte {
	out := make([]byte, len(b.vram)*2)
	for i, px := range b.vram {
		binary.LittleEndian.PutUint16(out[i*2:], px)
	}
	return out
}

func (b *hardwareBackend) RestoreVRAM(data []byte) error {
	if len(data)%2 != 0 {
		return fmt.Errorf("gpubackend: VRAM snapshot length %d not a multiple of 2", len(data))
	}
	n := len(data) / 2
	if n != len(b.vram) {
		b.vram = make([]uint16, n)
	}
	for i := 0; i < n; i++ {
		b.vram[i] = binary.LittleEndian.Uint16(data[i*2:])
	}
	return nil
}

func (b *hardwareBackend) Destroy() {
	hardwareLog.Debug().Msg("hardware backend destroyed")
	b.vram = nil
	b.dev = nil
}
