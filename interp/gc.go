package interp

import "fmt"

// collect runs one Cheney-style copying collection (spec.md 4.2). It must
// never be re-entered — alloc() already guards against that — and it must
// forward every slot in every live root frame plus the symbol table before
// the breadth-first scan of the freshly copied to-space begins.
func (h *Heap) collect() {
	if h.collecting {
		panic("minilisp: internal bug: garbage collector re-entered")
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	from := h.active
	h.active = h.spare
	h.spare = from
	h.used = 0

	var copyPtr int32

	h.symbols = h.forward(from, &copyPtr, h.symbols)

	for f := h.roots; f != nil; f = f.prev {
		for _, slot := range f.slots {
			*slot = h.forward(from, &copyPtr, *slot)
		}
	}

	scan := int32(0)
	for scan < copyPtr {
		size := h.scanObject(from, &copyPtr, scan)
		scan += size
	}

	h.used = copyPtr
}

// forward implements the tombstone test (spec.md 4.2 "forward(obj)
// semantics"): sentinels and already-copied objects pass through in O(1),
// everything else is copied byte-for-byte into to-space (h.active, since
// collect already swapped it in) and the from-space original is mutated
// into a Moved tombstone pointing at the new location.
func (h *Heap) forward(from []byte, copyPtr *int32, v Value) Value {
	if v.off < 0 {
		return v // sentinel: not in the managed heap, passes through unchanged
	}

	tag := Tag(from[v.off])
	if tag == TagMoved {
		target := int32(byteOrder.Uint32(from[v.off+4 : v.off+8]))
		return Value{off: target}
	}

	size := int32(byteOrder.Uint32(from[v.off+4 : v.off+8]))
	dst := *copyPtr
	copy(h.active[dst:dst+size], from[v.off:v.off+size])
	*copyPtr += size

	from[v.off] = byte(TagMoved)
	byteOrder.PutUint32(from[v.off+4:v.off+8], uint32(dst))

	return Value{off: dst}
}

// scanObject forwards every reference field of the object at off in the
// (already-copied) to-space, per the field-forwarding table in spec.md
// 4.2, and returns the object's size so the caller can advance scan.
func (h *Heap) scanObject(from []byte, copyPtr *int32, off int32) int32 {
	tag := h.tagAt(h.active, off)
	size := h.sizeAt(h.active, off)
	v := Value{off: off}

	switch tag {
	case TagInt, TagSymbol, TagString, TagPrimitive:
		// no internal references to forward

	case TagCell:
		car := h.forward(from, copyPtr, h.Car(v))
		cdr := h.forward(from, copyPtr, h.Cdr(v))
		h.setCar(v, car)
		h.setCdr(v, cdr)

	case TagFunction, TagMacro:
		params := h.forward(from, copyPtr, h.ClosureParams(v))
		body := h.forward(from, copyPtr, h.ClosureBody(v))
		env := h.forward(from, copyPtr, h.ClosureEnv(v))
		p := payloadOff(off)
		byteOrder.PutUint32(h.active[p:p+4], uint32(params.off))
		byteOrder.PutUint32(h.active[p+4:p+8], uint32(body.off))
		byteOrder.PutUint32(h.active[p+8:p+12], uint32(env.off))

	case TagEnv:
		vars := h.forward(from, copyPtr, h.EnvVars(v))
		up := h.forward(from, copyPtr, h.EnvUp(v))
		p := payloadOff(off)
		byteOrder.PutUint32(h.active[p:p+4], uint32(vars.off))
		byteOrder.PutUint32(h.active[p+4:p+8], uint32(up.off))

	case TagMoved:
		panic("minilisp: internal bug: Moved tombstone encountered while scanning to-space")

	default:
		panic(fmt.Sprintf("minilisp: internal bug: unknown tag %d encountered while scanning", tag))
	}

	return size
}

// Stats reports the current occupancy of the active semispace, mostly
// useful for tests asserting that always-gc mode still converges and that
// a collection actually reclaimed space.
type Stats struct {
	Used, Size int32
}

func (h *Heap) Stats() Stats {
	return Stats{Used: h.used, Size: h.size}
}
