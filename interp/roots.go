package interp

// rootFrame is one node in the chain of root sets threaded on the Go call
// stack (spec.md 3.4 / 4.4). Each frame pins the addresses of the Value
// slots a particular call site is holding across allocation; the collector
// walks the whole chain during forwarding and rewrites every slot in
// place, exactly as it rewrites the Symbols obarray.
type rootFrame struct {
	prev  *rootFrame
	slots []*Value
}

// PushRoots registers the given Value slots as live roots for the duration
// of the caller's scope and returns a handle to pass to PopRoots. The
// idiom at every allocation-sensitive call site is:
//
//	var result Value
//	f := h.PushRoots(&env, &expr, &result)
//	defer h.PopRoots(f)
//
// Every Value that must survive a GC triggered by an allocation anywhere
// in the call must appear in this list; a bare local not registered here
// can dangle after a collection (spec.md 4.4).
func (h *Heap) PushRoots(slots ...*Value) *rootFrame {
	f := &rootFrame{prev: h.roots, slots: slots}
	h.roots = f
	return f
}

// PopRoots pops the root chain back to the frame below f. f must be the
// current top of the chain; pushes and pops must nest like a stack
// (spec.md 4.4 "push/pop must be balanced on every path").
func (h *Heap) PopRoots(f *rootFrame) {
	if h.roots != f {
		panic("minilisp: internal bug: root frame popped out of order")
	}
	h.roots = f.prev
}
