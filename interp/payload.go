package interp

// This file implements the per-tag payload encoding described in spec.md
// 3.1 and the field-forwarding table in 4.2. Every accessor reads from or
// writes to the heap's *active* semispace; callers are responsible for
// holding their Values in root slots across anything that can allocate
// (spec.md 4.4) since a GC cycle invalidates any bare copy of a Value.

// ---- Int ----

func (h *Heap) allocInt(n int64) (Value, error) {
	v, err := h.alloc(TagInt, 8)
	if err != nil {
		return Value{}, err
	}
	byteOrder.PutUint64(h.active[payloadOff(v.off):payloadOff(v.off)+8], uint64(n))
	return v, nil
}

// IntValue returns the 64-bit value of an Int object. It does not check
// the tag; for any other object it returns whatever bytes follow the
// header, so callers must check Tag first (mirrors the C original's lack
// of any runtime tag check inside its accessor macros).
func (h *Heap) IntValue(v Value) int64 {
	p := payloadOff(v.off)
	return int64(byteOrder.Uint64(h.active[p : p+8]))
}

// ---- Cell ----

// allocCell roots its own copies of car/cdr before calling h.alloc, since
// alloc can trigger collect() (always under always-gc, possibly near heap
// exhaustion otherwise) and the collector only forwards slots registered in
// h.roots — it cannot see a plain Go parameter sitting on the call stack
// (spec.md 4.2/4.4).
func (h *Heap) allocCell(car, cdr Value) (Value, error) {
	f := h.PushRoots(&car, &cdr)
	defer h.PopRoots(f)

	v, err := h.alloc(TagCell, 2*refSize)
	if err != nil {
		return Value{}, err
	}
	h.setCar(v, car)
	h.setCdr(v, cdr)
	return v, nil
}

func (h *Heap) Car(v Value) Value {
	p := payloadOff(v.off)
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

func (h *Heap) Cdr(v Value) Value {
	p := payloadOff(v.off) + refSize
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

func (h *Heap) setCar(v, car Value) {
	p := payloadOff(v.off)
	byteOrder.PutUint32(h.active[p:p+4], uint32(car.off))
}

func (h *Heap) setCdr(v, cdr Value) {
	p := payloadOff(v.off) + refSize
	byteOrder.PutUint32(h.active[p:p+4], uint32(cdr.off))
}

// ---- Symbol ----
//
// Symbol payload is the name followed by a single NUL byte, per spec.md
// 3.1 ("NUL-terminated name"). The symbol character set excludes NUL and
// allocSymbolRaw always writes the terminator itself, so scanning for the
// first zero byte recovers exactly the stored name. Alignment padding after
// the terminator is not cleared: semispaces are reused across collections,
// so it may hold bytes of earlier objects.

func (h *Heap) allocSymbolRaw(name string) (Value, error) {
	v, err := h.alloc(TagSymbol, int32(len(name))+1)
	if err != nil {
		return Value{}, err
	}
	p := payloadOff(v.off)
	copy(h.active[p:], name)
	h.active[p+int32(len(name))] = 0
	return v, nil
}

// SymbolName returns the name of a Symbol object.
func (h *Heap) SymbolName(v Value) string {
	p := payloadOff(v.off)
	end := p
	for h.active[end] != 0 {
		end++
	}
	return string(h.active[p:end])
}

// ---- String ----
//
// Unlike Symbol, String content is not restricted to a NUL-free character
// set, so the payload carries an explicit uint32 length before the bytes.

func (h *Heap) allocString(s string) (Value, error) {
	v, err := h.alloc(TagString, 4+int32(len(s)))
	if err != nil {
		return Value{}, err
	}
	p := payloadOff(v.off)
	byteOrder.PutUint32(h.active[p:p+4], uint32(len(s)))
	copy(h.active[p+4:], s)
	return v, nil
}

// StringValue returns the content of a String object.
func (h *Heap) StringValue(v Value) string {
	p := payloadOff(v.off)
	n := byteOrder.Uint32(h.active[p : p+4])
	return string(h.active[p+4 : p+4+int32(n)])
}

// setStringValue overwrites a String object's bytes in place. Used by the
// in-place `reverse` primitive (spec.md 4.8); the new content must be
// exactly as long as the old one, since the object's allocated size does
// not change.
func (h *Heap) setStringValue(v Value, s string) {
	p := payloadOff(v.off)
	n := int(byteOrder.Uint32(h.active[p : p+4]))
	if len(s) != n {
		panic("minilisp: internal bug: setStringValue length mismatch")
	}
	copy(h.active[p+4:], s)
}

// ---- Primitive ----
//
// A Primitive object carries only an index into the Interp's primitive
// table (Go func values cannot be embedded in heap bytes); it has no
// internal references and is never forwarded beyond a byte copy.

func (h *Heap) allocPrimitive(index int32) (Value, error) {
	v, err := h.alloc(TagPrimitive, 4)
	if err != nil {
		return Value{}, err
	}
	p := payloadOff(v.off)
	byteOrder.PutUint32(h.active[p:p+4], uint32(index))
	return v, nil
}

func (h *Heap) primitiveIndex(v Value) int32 {
	p := payloadOff(v.off)
	return int32(byteOrder.Uint32(h.active[p : p+4]))
}

// ---- Function / Macro ----

// allocClosure roots its own copies of params/body/env before the
// allocation that can trigger collect(), for the same reason as allocCell.
func (h *Heap) allocClosure(tag Tag, params, body, env Value) (Value, error) {
	f := h.PushRoots(&params, &body, &env)
	defer h.PopRoots(f)

	v, err := h.alloc(tag, 3*refSize)
	if err != nil {
		return Value{}, err
	}
	p := payloadOff(v.off)
	byteOrder.PutUint32(h.active[p:p+4], uint32(params.off))
	byteOrder.PutUint32(h.active[p+4:p+8], uint32(body.off))
	byteOrder.PutUint32(h.active[p+8:p+12], uint32(env.off))
	return v, nil
}

func (h *Heap) ClosureParams(v Value) Value {
	p := payloadOff(v.off)
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

func (h *Heap) ClosureBody(v Value) Value {
	p := payloadOff(v.off) + refSize
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

func (h *Heap) ClosureEnv(v Value) Value {
	p := payloadOff(v.off) + 2*refSize
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

// ---- Env ----

// allocEnv roots its own copies of vars/up before the allocation that can
// trigger collect(), for the same reason as allocCell.
func (h *Heap) allocEnv(vars, up Value) (Value, error) {
	f := h.PushRoots(&vars, &up)
	defer h.PopRoots(f)

	v, err := h.alloc(TagEnv, 2*refSize)
	if err != nil {
		return Value{}, err
	}
	p := payloadOff(v.off)
	byteOrder.PutUint32(h.active[p:p+4], uint32(vars.off))
	byteOrder.PutUint32(h.active[p+4:p+8], uint32(up.off))
	return v, nil
}

func (h *Heap) EnvVars(v Value) Value {
	p := payloadOff(v.off)
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

func (h *Heap) EnvUp(v Value) Value {
	p := payloadOff(v.off) + refSize
	return Value{off: int32(byteOrder.Uint32(h.active[p : p+4]))}
}

func (h *Heap) setEnvVars(v, vars Value) {
	p := payloadOff(v.off)
	byteOrder.PutUint32(h.active[p:p+4], uint32(vars.off))
}
