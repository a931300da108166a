package interp

import "fmt"

// Intern returns the unique Symbol object named name, allocating and
// prepending it to the Symbols obarray (spec.md 3.2) if this is the first
// occurrence of the name. Two calls to Intern with the same name always
// return values that compare Same (identity), which is what makes Symbol
// lookup by identity correct everywhere else in the interpreter.
func (h *Heap) Intern(name string) (Value, error) {
	for cur := h.symbols; !cur.Same(Nil); cur = h.Cdr(cur) {
		if h.SymbolName(h.Car(cur)) == name {
			return h.Car(cur), nil
		}
	}

	sym, cell := Nil, Nil
	f := h.PushRoots(&sym, &cell)
	defer h.PopRoots(f)

	var err error
	sym, err = h.allocSymbolRaw(name)
	if err != nil {
		return Value{}, err
	}
	cell, err = h.allocCell(sym, h.symbols)
	if err != nil {
		return Value{}, err
	}
	h.symbols = cell
	return sym, nil
}

// Gensym returns a fresh, uninterned symbol named "G__N" for the process-
// global counter N (spec.md 4.8 `gensym`). It deliberately bypasses
// Intern/the obarray: an uninterned symbol must not be findable by name,
// only by the reference returned here.
func (h *Heap) Gensym() (Value, error) {
	h.gensymCounter++
	name := fmt.Sprintf("G__%d", h.gensymCounter)
	return h.allocSymbolRaw(name)
}
