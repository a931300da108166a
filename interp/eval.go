package interp

// Eval implements eval(env, obj) from spec.md 4.7. Int, String, Primitive,
// Function, Macro, True and Nil are self-evaluating; Symbol resolves
// through FindBinding; Cell is treated as an application form. It is a
// method of Interp rather than Heap because primitive dispatch (print,
// load, exit, ...) needs the surrounding I/O and file context, not just
// heap storage.
func (ip *Interp) Eval(env, obj Value) (Value, error) {
	switch ip.Tag(obj) {
	case TagInt, TagString, TagPrimitive, TagFunction, TagMacro, TagTrue, TagNil:
		return obj, nil

	case TagSymbol:
		pair := ip.FindBinding(env, obj)
		if pair.Same(Nil) {
			return Value{}, newError(ErrUnboundSymbol, "unbound symbol %s", ip.SymbolName(obj))
		}
		return ip.Cdr(pair), nil

	case TagCell:
		return ip.evalCell(env, obj)

	default:
		return Value{}, newError(ErrInternalBug, "cannot evaluate tag %v", ip.Tag(obj))
	}
}

// evalCell implements the Cell branch of eval: attempt macro expansion
// first, then dispatch the operator as a primitive (unevaluated args) or a
// function (evaluated args), per spec.md 4.7.
func (ip *Interp) evalCell(env, obj Value) (Value, error) {
	op, args, operator, expansion := Nil, Nil, Nil, Nil
	f := ip.PushRoots(&env, &obj, &op, &args, &operator, &expansion)
	defer ip.PopRoots(f)

	op = ip.Car(obj)
	args = ip.Cdr(obj)

	if ip.Tag(op) == TagSymbol {
		pair := ip.FindBinding(env, op)
		if !pair.Same(Nil) {
			binding := ip.Cdr(pair)
			if ip.Tag(binding) == TagMacro {
				var err error
				expansion, err = ip.applyFunc(binding, args)
				if err != nil {
					return Value{}, err
				}
				return ip.Eval(env, expansion)
			}
		}
	}

	var err error
	operator, err = ip.Eval(env, op)
	if err != nil {
		return Value{}, err
	}

	switch ip.Tag(operator) {
	case TagPrimitive:
		idx := ip.primitiveIndex(operator)
		prim := primitiveTable[idx]
		return prim.fn(ip, env, args)

	case TagFunction:
		evaled, err := ip.evalArgs(env, args)
		if err != nil {
			return Value{}, err
		}
		return ip.applyFunc(operator, evaled)

	default:
		return Value{}, newError(ErrNotCallable, "%s is not callable", ip.ToString(operator))
	}
}

// evalArgs evaluates a proper list of argument expressions strictly
// left-to-right, returning the list of results (spec.md 4.7, 5).
func (ip *Interp) evalArgs(env, args Value) (Value, error) {
	if args.Same(Nil) {
		return Nil, nil
	}
	if ip.Tag(args) != TagCell {
		return Value{}, newError(ErrMalformedForm, "improper argument list")
	}

	val, tail, cell := Nil, Nil, Nil
	f := ip.PushRoots(&env, &args, &val, &tail, &cell)
	defer ip.PopRoots(f)

	var err error
	val, err = ip.Eval(env, ip.Car(args))
	if err != nil {
		return Value{}, err
	}
	tail, err = ip.evalArgs(env, ip.Cdr(args))
	if err != nil {
		return Value{}, err
	}
	cell, err = ip.allocCell(val, tail)
	if err != nil {
		return Value{}, err
	}
	return cell, nil
}

// applyFunc applies a Function or Macro object to an argument list (already
// evaluated for a Function call; left raw for a macro expansion), per
// spec.md 4.6/4.7: push a fresh frame binding params against args, then
// evaluate body as an implicit sequence.
func (ip *Interp) applyFunc(fn, args Value) (Value, error) {
	params, body, closureEnv, newEnv := Nil, Nil, Nil, Nil
	f := ip.PushRoots(&fn, &args, &params, &body, &closureEnv, &newEnv)
	defer ip.PopRoots(f)

	params = ip.ClosureParams(fn)
	body = ip.ClosureBody(fn)
	closureEnv = ip.ClosureEnv(fn)

	var err error
	newEnv, err = ip.PushEnv(closureEnv, params, args)
	if err != nil {
		return Value{}, err
	}
	return ip.evalBody(newEnv, body)
}

// evalBody evaluates a proper list of forms strictly in order, returning
// the value of the last one; an empty body returns Nil (spec.md 4.7).
func (ip *Interp) evalBody(env, body Value) (Value, error) {
	if body.Same(Nil) {
		return Nil, nil
	}
	if ip.Tag(body) != TagCell {
		return Value{}, newError(ErrMalformedForm, "improper body list")
	}

	form, rest, result := Nil, Nil, Nil
	f := ip.PushRoots(&env, &body, &form, &rest, &result)
	defer ip.PopRoots(f)

	form = ip.Car(body)
	rest = ip.Cdr(body)

	var err error
	result, err = ip.Eval(env, form)
	if err != nil {
		return Value{}, err
	}
	if rest.Same(Nil) {
		return result, nil
	}
	if ip.Tag(rest) != TagCell {
		return Value{}, newError(ErrMalformedForm, "improper body list")
	}
	return ip.evalBody(env, rest)
}

// Truthy reports whether v is a "true" value for `if`/`while`/`and`/`or`
// purposes: everything except Nil is truthy (spec.md 4.7/4.8).
func Truthy(v Value) bool {
	return !v.Same(Nil)
}
