package interp

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultSemispaceSize is the design-constant size of each semispace
// (spec.md 4.1: "typical value 256 KiB").
const DefaultSemispaceSize = 256 * 1024

var byteOrder = binary.LittleEndian

// Heap owns the two fixed-size semispaces and the bump allocator that hands
// out objects from whichever one is currently active. It is one of the
// process-wide singletons spec.md 5/9 describes, encapsulated here (per the
// 9 "Global state" design note) as a field of Interp rather than a package
// global, so multiple interpreters can coexist in the same process (e.g.
// in tests).
type Heap struct {
	size int32

	active []byte // the in-use semispace, backed by an anonymous mmap
	used   int32

	// spare is the other semispace, mmap'd once at construction and
	// reused on every collection by swapping with active. Kept mapped
	// for the whole lifetime of the Heap rather than mmap'd/munmap'd on
	// every GC cycle, trading a little resident memory for not paying a
	// syscall on every collection.
	spare []byte

	alwaysGC  bool
	collecting bool

	roots *rootFrame // top of the root-set chain, see roots.go

	symbols Value // head of the Symbols obarray list (a Cell chain)

	gensymCounter int64
}

// NewHeap allocates the two semispaces via anonymous mmap and returns a
// Heap with an empty active space and no symbol table. mmap maps whole
// pages, but each semispace uses exactly size bytes.
func NewHeap(size int, alwaysGC bool) (*Heap, error) {
	if size <= 0 {
		size = DefaultSemispaceSize
	}
	a, err := mmapSpace(size)
	if err != nil {
		return nil, fmt.Errorf("minilisp: allocate semispace: %w", err)
	}
	b, err := mmapSpace(size)
	if err != nil {
		_ = unix.Munmap(a)
		return nil, fmt.Errorf("minilisp: allocate semispace: %w", err)
	}
	return &Heap{
		size:     int32(size),
		active:   a,
		spare:    b,
		alwaysGC: alwaysGC,
		symbols:  Nil,
	}, nil
}

func mmapSpace(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

// Close releases both semispaces back to the platform. The Heap must not
// be used afterward.
func (h *Heap) Close() error {
	err1 := unix.Munmap(h.active)
	err2 := unix.Munmap(h.spare)
	if err1 != nil {
		return err1
	}
	return err2
}

// roundUp rounds v up to the next multiple of n, where n is a power of two.
func roundUp(v, n int32) int32 {
	return (v + n - 1) &^ (n - 1)
}

// alloc reserves size bytes for an object of the given tag in the active
// semispace, writes the header, and returns a Value referencing it. If
// insufficient space remains (or alwaysGC debug mode is set), it invokes
// the collector first, which walks h.roots — every Value a caller needs
// to survive this call must already be registered there via PushRoots
// before alloc is reached (spec.md 4.1, 4.4).
func (h *Heap) alloc(tag Tag, payloadSize int32) (Value, error) {
	if h.collecting {
		panic("minilisp: internal bug: allocation attempted during collection")
	}

	size := roundUp(payloadSize, refSize) + headerSize
	size = roundUp(size, refSize)

	if h.alwaysGC {
		h.collect()
	} else if h.used+size > h.size {
		h.collect()
	}

	if h.used+size > h.size {
		return Value{}, newError(ErrMemoryExhausted, "out of memory: requested %d bytes, %d of %d in use", size, h.used, h.size)
	}

	off := h.used
	h.used += size
	h.putHeader(off, tag, size)
	return Value{off: off}, nil
}

func (h *Heap) putHeader(off int32, tag Tag, size int32) {
	h.active[off] = byte(tag)
	byteOrder.PutUint32(h.active[off+4:off+8], uint32(size))
}

// tagAt and sizeAt read the header of the object at the given offset in
// the active semispace. Used by both allocation-time accessors and the
// collector's scan/forward logic.
func (h *Heap) tagAt(space []byte, off int32) Tag {
	return Tag(space[off])
}

func (h *Heap) sizeAt(space []byte, off int32) int32 {
	return int32(byteOrder.Uint32(space[off+4 : off+8]))
}

func payloadOff(off int32) int32 { return off + headerSize }

// Tag returns the tag of the object v refers to. Sentinels report their
// own fixed tag without touching the heap.
func (h *Heap) Tag(v Value) Tag {
	switch v.off {
	case offNil:
		return TagNil
	case offTrue:
		return TagTrue
	case offDot:
		return TagDot
	case offCloseParen:
		return TagCloseParen
	}
	return h.tagAt(h.active, v.off)
}
