package interp

// FindBinding walks env's up-chain (innermost frame first), scanning each
// frame's vars association list, and returns the (sym . value) Cell, or
// Nil if sym is not bound anywhere in the chain (spec.md 4.6 find).
// Symbols are interned, so identity comparison is sufficient and no
// allocation occurs, so no root frame is required.
func (h *Heap) FindBinding(env, sym Value) Value {
	for e := env; !e.Same(Nil); e = h.EnvUp(e) {
		for p := h.EnvVars(e); !p.Same(Nil); p = h.Cdr(p) {
			pair := h.Car(p)
			if h.Car(pair).Same(sym) {
				return pair
			}
		}
	}
	return Nil
}

// AddVariable prepends (sym . val) to env's own vars list, shadowing any
// outer binding and permitting redefinition of an existing binding in the
// same frame (spec.md 4.6 add_variable).
func (h *Heap) AddVariable(env, sym, val Value) error {
	pair, cell := Nil, Nil
	f := h.PushRoots(&env, &sym, &val, &pair, &cell)
	defer h.PopRoots(f)

	var err error
	pair, err = h.allocCell(sym, val)
	if err != nil {
		return err
	}
	cell, err = h.allocCell(pair, h.EnvVars(env))
	if err != nil {
		return err
	}
	h.setEnvVars(env, cell)
	return nil
}

// PushEnv creates a new child frame of up, binding params against args in
// lockstep (spec.md 4.6 push_env): a dotted tail or a bare symbol in
// params position binds the remainder of args (possibly Nil) to make a
// variadic lambda; otherwise both lists must reach Nil together.
func (h *Heap) PushEnv(up, params, args Value) (Value, error) {
	p, a := params, args
	vars, pair, cell, newEnv := Nil, Nil, Nil, Nil

	f := h.PushRoots(&up, &p, &a, &vars, &pair, &cell, &newEnv)
	defer h.PopRoots(f)

	var err error
	for {
		if h.Tag(p) == TagSymbol {
			pair, err = h.allocCell(p, a)
			if err != nil {
				return Value{}, err
			}
			cell, err = h.allocCell(pair, vars)
			if err != nil {
				return Value{}, err
			}
			vars = cell
			break
		}

		if p.Same(Nil) {
			if !a.Same(Nil) {
				return Value{}, newError(ErrArityMismatch, "too many arguments supplied")
			}
			break
		}

		if h.Tag(p) != TagCell {
			return Value{}, newError(ErrTypeError, "malformed parameter list")
		}
		if h.Tag(a) != TagCell {
			return Value{}, newError(ErrArityMismatch, "too few arguments supplied")
		}

		sym := h.Car(p)
		val := h.Car(a)

		pair, err = h.allocCell(sym, val)
		if err != nil {
			return Value{}, err
		}
		cell, err = h.allocCell(pair, vars)
		if err != nil {
			return Value{}, err
		}
		vars = cell

		p = h.Cdr(p)
		a = h.Cdr(a)
	}

	newEnv, err = h.allocEnv(vars, up)
	if err != nil {
		return Value{}, err
	}
	return newEnv, nil
}
