package gputhread

import (
	"encoding/binary"
	"sync"

	"github.com/stratoshift/duckstation/cmdring"
)

// asyncSlab owns closures submitted via RunOnThread. The ring can only carry
// plain bytes, so a command that needs to run an arbitrary Go closure on the
// worker goroutine stores the closure here and the ring record carries only
// its index; this is the Go analogue of the original placement-newing an
// AsyncCallCommand with a std::function directly into the ring's raw bytes.
type asyncSlab struct {
	mu   sync.Mutex
	fns  map[uint32]func()
	next uint32
}

func newAsyncSlab() *asyncSlab {
	return &asyncSlab{fns: make(map[uint32]func())}
}

func (s *asyncSlab) store(fn func()) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.fns[id] = fn
	return id
}

func (s *asyncSlab) take(id uint32) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn := s.fns[id]
	delete(s.fns, id)
	return fn
}

const asyncCallPayloadSize = 4

func encodeAsyncCallPayload(rec []byte, id uint32) {
	binary.LittleEndian.PutUint32(rec[cmdring.HeaderSize():], id)
}

func decodeAsyncCallPayload(payload []byte) uint32 {
	return binary.LittleEndian.Uint32(payload)
}

// encodeFramePayload packs a full ARGB8888 framebuffer into the wire format
// gpubackend.softwareBackend expects: a uint32 pixel count followed by that
// many little-endian pixels.
func encodeFramePayload(rec []byte, pixels []uint32) {
	off := cmdring.HeaderSize()
	binary.LittleEndian.PutUint32(rec[off:], uint32(len(pixels)))
	off += 4
	for _, px := range pixels {
		binary.LittleEndian.PutUint32(rec[off:], px)
		off += 4
	}
}

func framePayloadSize(pixelCount int) uint32 {
	return uint32(4 + pixelCount*4)
}

// encodeVRAMWritePayload packs a rectangular VRAM write into the wire format
// gpubackend.hardwareBackend expects: x,y,w,h as uint16 followed by w*h
// little-endian uint16 pixels.
func encodeVRAMWritePayload(rec []byte, x, y, w, h uint16, pixels []uint16) {
	off := cmdring.HeaderSize()
	binary.LittleEndian.PutUint16(rec[off:], x)
	binary.LittleEndian.PutUint16(rec[off+2:], y)
	binary.LittleEndian.PutUint16(rec[off+4:], w)
	binary.LittleEndian.PutUint16(rec[off+6:], h)
	off += 8
	for _, px := range pixels {
		binary.LittleEndian.PutUint16(rec[off:], px)
		off += 2
	}
}

func vramWritePayloadSize(pixelCount int) uint32 {
	return uint32(8 + pixelCount*2)
}
