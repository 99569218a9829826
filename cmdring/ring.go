// Package cmdring implements the single-producer/single-consumer
// wraparound byte ring described by the GPU worker thread's command queue:
// a fixed arena holding variable-length {kind,size} records, where the
// producer writes a Wraparound marker instead of letting a record straddle
// the end of the arena.
//
// Exactly one goroutine may call the producer methods (Allocate/Commit) and
// exactly one goroutine may call the consumer methods (Decode,
// LoadReadRelaxed, StoreReadRelease). Mixing
// callers across goroutines breaks the cursor invariants documented below.
package cmdring

import (
	"fmt"
	"sync/atomic"
)

// DefaultSize is the default arena size (4 MiB), matching COMMAND_QUEUE_SIZE
// in the original implementation.
const DefaultSize = 4 * 1024 * 1024

// ErrPayloadTooLarge is the value Allocate panics with when a single record
// cannot ever fit in the arena, regardless of how much the consumer drains.
var ErrPayloadTooLarge = fmt.Errorf("cmdring: payload larger than arena minus header")

// cacheLinePad is sized to separate the producer's and consumer's cursors
// onto different cache lines, the same layout the teacher's APU ring buffer
// and the pack's other SPSC rings use to avoid false sharing.
type cacheLinePad [7]uint64

// Ring is the fixed-size arena plus its two cursors. Both cursors are byte
// offsets in [0, N]; read==write means empty.
type Ring struct {
	arena []byte
	n     uint32

	write atomic.Uint32
	_     cacheLinePad
	read  atomic.Uint32
	_     cacheLinePad
}

// New allocates a ring with the given arena size in bytes.
func New(size uint32) *Ring {
	if size == 0 {
		size = DefaultSize
	}
	return &Ring{arena: make([]byte, size), n: size}
}

// Size returns the arena size in bytes.
func (r *Ring) Size() uint32 { return r.n }

// LoadWriteAcquire returns the current write cursor with acquire semantics,
// publishing any record contents the producer committed before it.
func (r *Ring) LoadWriteAcquire() uint32 { return r.write.Load() }

// LoadReadRelaxed returns the current read cursor without ordering
// guarantees; only the consumer goroutine ever calls this.
func (r *Ring) LoadReadRelaxed() uint32 { return r.read.Load() }

// LoadReadAcquire returns the current read cursor with acquire semantics;
// the producer uses this to observe consumer progress.
func (r *Ring) LoadReadAcquire() uint32 { return r.read.Load() }

// StoreReadRelease publishes a new read cursor, unblocking any producer
// waiting for space at or before this offset.
func (r *Ring) StoreReadRelease(v uint32) { r.read.Store(v) }

// At returns the arena byte slice starting at offset.
func (r *Ring) At(offset uint32) []byte { return r.arena[offset:] }

// Allocate carves out size = headerSize+payloadSize bytes (rounded up to a
// 4-byte boundary), blocking via the wake callback until space is
// available, and returns a slice over the full record (header already
// encoded) for the caller to fill in before calling Commit. The payload
// bytes are not cleared: they hold whatever an earlier record left in that
// part of the arena.
//
// When the consumer is behind the producer (read > write, i.e. the producer
// has already wrapped once more than the consumer has caught up to), this
// spins calling wake until the consumer frees enough forward space. This
// assumes the consumer is live and making forward progress; that is a
// precondition of Allocate (see also DESIGN.md).
func (r *Ring) Allocate(kind Kind, payloadSize uint32, wake func()) []byte {
	size := alignUp4(headerSize + payloadSize)
	if size > r.n-headerSize {
		panic(ErrPayloadTooLarge)
	}

	for {
		readPtr := r.read.Load()
		writePtr := r.write.Load()

		if readPtr > writePtr {
			// Producer has wrapped a lap ahead of the consumer; wait for the
			// consumer to free enough trailing space in this lap. Re-checking
			// from the top of the outer loop (rather than tracking a second,
			// separately-updated available value here) means that once the
			// consumer itself passes the wraparound marker and read drops back
			// to the other branch, that branch's own wraparound logic runs
			// instead of this loop getting stuck comparing against a stale
			// writePtr-derived value that can never change while blocked.
			//
			// The same headerSize margin as the other branch applies here:
			// without it, a write could land exactly on readPtr, leaving
			// write == read with a full unread record behind it, which is
			// indistinguishable from the ring being empty.
			available := readPtr - writePtr
			if available < size+headerSize {
				wake()
				continue
			}
		} else {
			available := r.n - writePtr
			// Reserve headerSize of margin beyond this record's own size: whenever
			// a wraparound marker does get written below, that guarantees the
			// leftover tail is itself large enough to hold the marker's header.
			if size+headerSize > available {
				r.writeWraparound(writePtr, available)
				continue
			}
		}

		buf := r.arena[writePtr : writePtr+size]
		encodeHeader(buf, kind, size)
		return buf
	}
}

// writeWraparound fills the remainder of the arena with a Wraparound marker
// and resets the write cursor to zero, releasing the new cursor so the
// consumer can observe it as soon as it reaches this record.
func (r *Ring) writeWraparound(writePtr, remaining uint32) {
	buf := r.arena[writePtr : writePtr+remaining]
	encodeHeader(buf, KindWraparound, remaining)
	r.write.Store(0)
}

// Commit publishes a record previously returned by Allocate by advancing
// the write cursor past it. It returns the new pending backlog in bytes,
// computed from the consumer's last published read cursor, for
// threshold-based wake decisions.
func (r *Ring) Commit(rec []byte) (pending uint32) {
	size := uint32(len(rec))
	newWrite := r.write.Load() + size
	r.write.Store(newWrite)
	readPtr := r.read.Load()
	if newWrite >= readPtr {
		return newWrite - readPtr
	}
	return r.n - readPtr + newWrite
}

// Pending returns the current backlog in bytes as seen by the producer.
func (r *Ring) Pending() uint32 {
	writePtr := r.write.Load()
	readPtr := r.read.Load()
	if writePtr >= readPtr {
		return writePtr - readPtr
	}
	return r.n - readPtr + writePtr
}

// Decode reinterprets the record header starting at offset.
func (r *Ring) Decode(offset uint32) Record {
	return decodeRecord(r.arena[offset:])
}
