package cmdring

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingFIFOOrdering(t *testing.T) {
	r := New(4096)

	push := func(kind Kind, n uint32) {
		rec := r.Allocate(kind, n, func() {})
		for i := uint32(0); i < n; i++ {
			rec[headerSize+i] = byte(i)
		}
		r.Commit(rec)
	}

	push(FirstBackendKind, 4)
	push(FirstBackendKind+1, 8)
	push(FirstBackendKind+2, 0)

	readPtr := r.LoadReadRelaxed()
	writePtr := r.LoadWriteAcquire()

	var kinds []Kind
	for readPtr < writePtr {
		rec := r.Decode(readPtr)
		kinds = append(kinds, rec.Kind)
		readPtr += rec.Size
	}
	r.StoreReadRelease(readPtr)

	require.Equal(t, []Kind{FirstBackendKind, FirstBackendKind + 1, FirstBackendKind + 2}, kinds)
}

func TestRingWraparound(t *testing.T) {
	const size = 64
	r := New(size)

	payload := size - headerSize - 8
	rec := r.Allocate(FirstBackendKind, uint32(payload), func() {})
	r.Commit(rec)

	readPtr := r.LoadReadRelaxed()
	first := r.Decode(readPtr)
	require.Equal(t, FirstBackendKind, first.Kind, "first record kind")
	readPtr += first.Size
	r.StoreReadRelease(readPtr)

	rec2 := r.Allocate(FirstBackendKind+1, 4, func() {})
	binary.LittleEndian.PutUint32(rec2[headerSize:], 0xdeadbeef)
	r.Commit(rec2)

	writePtr := r.LoadWriteAcquire()
	require.Less(t, writePtr, readPtr, "write cursor should have wrapped below the read cursor")

	wrap := r.Decode(readPtr)
	require.Equal(t, KindWraparound, wrap.Kind, "expected a wraparound marker at the old read position")

	second := r.Decode(0)
	require.Equal(t, FirstBackendKind+1, second.Kind, "record after wraparound")
	require.Equal(t, uint32(0xdeadbeef), binary.LittleEndian.Uint32(second.Payload), "payload after wraparound")
}

func TestAllocatePanicsWhenPayloadNeverFits(t *testing.T) {
	r := New(64)
	require.Panics(t, func() {
		r.Allocate(FirstBackendKind, 1<<20, func() {})
	}, "Allocate must panic for a payload that can never fit the ring")
}

func TestPendingTracksBacklog(t *testing.T) {
	r := New(4096)

	require.Zero(t, r.Pending(), "Pending on empty ring")

	rec := r.Allocate(FirstBackendKind, 16, func() {})
	pending := r.Commit(rec)
	require.Equal(t, uint32(len(rec)), pending, "Commit pending")
	require.Equal(t, uint32(len(rec)), r.Pending())

	readPtr := r.LoadReadRelaxed()
	first := r.Decode(readPtr)
	r.StoreReadRelease(readPtr + first.Size)

	require.Zero(t, r.Pending(), "Pending after full drain")
}
