package cmdring

import "encoding/binary"

// Kind tags a command record. Values below FirstBackendKind are interpreted
// by the worker loop itself; everything at or above it is opaque to the ring
// and forwarded to whichever Backend is active.
type Kind uint32

const (
	// KindWraparound marks the remainder of the arena as skip-to-zero filler.
	// Size is the number of bytes consumed, not a real payload.
	KindWraparound Kind = iota
	// KindAsyncCall carries a handle to a callable to run on the worker thread.
	KindAsyncCall
	// KindChangeBackend asks the worker to re-evaluate the requested renderer.
	KindChangeBackend
	// KindUpdateVSync asks the worker to apply the requested vsync mode.
	KindUpdateVSync

	// FirstBackendKind is the first value a Backend may claim for its own
	// command types. Kinds below this are reserved for the ring/worker loop.
	FirstBackendKind Kind = 16

	// KindBlitFrame carries a fully-rasterized ARGB8888 framebuffer for the
	// software backend to upload and present as-is.
	KindBlitFrame Kind = FirstBackendKind
	// KindVRAMWrite carries a rectangular VRAM write for the hardware
	// backend to apply to its offscreen render target.
	KindVRAMWrite Kind = FirstBackendKind + 1
)

// headerSize is len(Kind)+len(Size), both uint32, little-endian.
const headerSize = 8

// HeaderSize returns the number of bytes a record's header occupies before
// its payload, for callers that build payloads directly into a buffer
// returned by Ring.Allocate.
func HeaderSize() uint32 { return headerSize }

// Record is a read-only view of one record's header plus its payload slice,
// both backed by the arena. It is only valid until the consumer advances
// past it; callers that need the bytes afterward must copy them.
type Record struct {
	Kind    Kind
	Size    uint32
	Payload []byte
}

// encodeHeader writes a record header at the start of buf, which must be at
// least headerSize bytes.
func encodeHeader(buf []byte, kind Kind, size uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(kind))
	binary.LittleEndian.PutUint32(buf[4:8], size)
}

// decodeRecord reads a header starting at buf[0] and returns a Record whose
// Payload aliases buf[headerSize:size].
func decodeRecord(buf []byte) Record {
	kind := Kind(binary.LittleEndian.Uint32(buf[0:4]))
	size := binary.LittleEndian.Uint32(buf[4:8])
	return Record{Kind: kind, Size: size, Payload: buf[headerSize:size]}
}

// alignUp4 rounds size up to the next multiple of 4, matching the spec's
// "size aligned up to 4" requirement so every record starts on a 4-byte
// boundary.
func alignUp4(size uint32) uint32 {
	return (size + 3) &^ 3
}
