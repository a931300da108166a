package interp

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// primFn is the signature every table-dispatched primitive implements.
// args is always the raw, unevaluated argument list from the call site;
// primitives that evaluate all their arguments (the non-† entries of
// spec.md 4.8) do so explicitly via evalArgList before touching them.
type primFn func(ip *Interp, env, args Value) (Value, error)

type primEntry struct {
	name string
	fn   primFn
}

// primitiveTable is indexed by the Primitive object's payload (see
// payload.go allocPrimitive/primitiveIndex); Init populates the global
// environment with one binding per entry, in order. It is filled from
// primitiveEntries by init rather than by its own initializer, because the
// primitives reach back to it through Eval and Go rejects that as an
// initialization cycle.
var primitiveTable []primEntry

func init() { primitiveTable = primitiveEntries }

var primitiveEntries = []primEntry{
	{"quote", primQuote},
	{"cons", primCons},
	{"car", primCar},
	{"cdr", primCdr},
	{"setq", primSetq},
	{"setcar", primSetcar},
	{"while", primWhile},
	{"gensym", primGensym},
	{"length", primLength},
	{"reverse", primReverse},
	{"+", primAdd},
	{"*", primMul},
	{"/", primDiv},
	{"mod", primMod},
	{"-", primSub},
	{"=", primNumEq},
	{"<", primLt},
	{"<=", primLe},
	{">", primGt},
	{">=", primGe},
	{"eq", primEq},
	{"not", primNot},
	{"and", primAnd},
	{"or", primOr},
	{"if", primIf},
	{"progn", primProgn},
	{"lambda", primLambda},
	{"defun", primDefun},
	{"defmacro", primDefmacro},
	{"define", primDefine},
	{"macroexpand", primMacroexpand},
	{"print", primPrint},
	{"println", primPrintln},
	{"string-concat", primStringConcat},
	{"symbol->string", primSymbolToString},
	{"string->symbol", primStringToSymbol},
	{"load", primLoad},
	{"exit", primExit},
	{"list", primList},
	{"apply", primApply},
	{"read", primRead},
	{"eval", primEval},
}

// ---- argument-list helpers ----

// listLen returns the length of a proper list, or -1 if v is improper.
func (ip *Interp) listLen(v Value) int {
	n := 0
	for !v.Same(Nil) {
		if ip.Tag(v) != TagCell {
			return -1
		}
		n++
		v = ip.Cdr(v)
	}
	return n
}

// nthArg returns the i'th element (0-based) of the proper list args.
func (ip *Interp) nthArg(args Value, i int) Value {
	for ; i > 0; i-- {
		args = ip.Cdr(args)
	}
	return ip.Car(args)
}

func arityError(name string, args Value, ip *Interp) error {
	return newError(ErrMalformedForm, "%s: wrong number of arguments: %s", name, ip.ToString(args))
}

// evalArgList evaluates every element of a raw (unevaluated) proper
// argument list left-to-right and returns the results as a Go slice.
//
// It delegates the actual evaluation to evalArgs, which accumulates into a
// rooted Lisp list (each partial result is reachable through a PushRoots
// slot for the whole recursion) rather than a bare Go slice: a later
// argument's evaluation can itself allocate and trigger collect(), and the
// collector only forwards slots registered in h.roots, so an unrooted Go
// slice of prior results would alias stale or relocated offsets once that
// happens (spec.md 4.2/4.4). Only after the whole list is built — with no
// further allocation possible — do we walk it into a plain slice.
func (ip *Interp) evalArgList(env, args Value) ([]Value, error) {
	list, err := ip.evalArgs(env, args)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, ip.listLen(list))
	for cur := list; !cur.Same(Nil); cur = ip.Cdr(cur) {
		out = append(out, ip.Car(cur))
	}
	return out, nil
}

func requireInt(ip *Interp, v Value, who string) (int64, error) {
	if ip.Tag(v) != TagInt {
		return 0, newError(ErrTypeError, "%s: expected int, got %s", who, ip.ToString(v))
	}
	return ip.IntValue(v), nil
}

func requireString(ip *Interp, v Value, who string) (string, error) {
	if ip.Tag(v) != TagString {
		return "", newError(ErrTypeError, "%s: expected string, got %s", who, ip.ToString(v))
	}
	return ip.StringValue(v), nil
}

func requireCell(ip *Interp, v Value, who string) error {
	if ip.Tag(v) != TagCell {
		return newError(ErrTypeError, "%s: expected a cell, got %s", who, ip.ToString(v))
	}
	return nil
}

func boolValue(b bool) Value {
	if b {
		return True
	}
	return Nil
}

// ---- quote / cons / car / cdr / setq / setcar ----

func primQuote(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) != 1 {
		return Value{}, arityError("quote", args, ip)
	}
	return ip.Car(args), nil
}

func primCons(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 2 {
		return Value{}, arityError("cons", args, ip)
	}
	return ip.allocCell(vals[0], vals[1])
}

func primCar(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("car", args, ip)
	}
	if err := requireCell(ip, vals[0], "car"); err != nil {
		return Value{}, err
	}
	return ip.Car(vals[0]), nil
}

func primCdr(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("cdr", args, ip)
	}
	if err := requireCell(ip, vals[0], "cdr"); err != nil {
		return Value{}, err
	}
	return ip.Cdr(vals[0]), nil
}

// setq is † (does not evaluate its first argument): the symbol naming the
// binding to mutate is taken literally (spec.md 4.8).
func primSetq(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) != 2 {
		return Value{}, arityError("setq", args, ip)
	}
	sym := ip.Car(args)
	if ip.Tag(sym) != TagSymbol {
		return Value{}, newError(ErrTypeError, "setq: expected symbol, got %s", ip.ToString(sym))
	}
	f := ip.PushRoots(&env, &sym)
	defer ip.PopRoots(f)
	val, err := ip.Eval(env, ip.nthArg(args, 1))
	if err != nil {
		return Value{}, err
	}
	pair := ip.FindBinding(env, sym)
	if pair.Same(Nil) {
		return Value{}, newError(ErrUnboundSymbol, "unbound symbol %s", ip.SymbolName(sym))
	}
	ip.setCdr(pair, val)
	return val, nil
}

func primSetcar(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 2 {
		return Value{}, arityError("setcar", args, ip)
	}
	if err := requireCell(ip, vals[0], "setcar"); err != nil {
		return Value{}, err
	}
	ip.setCar(vals[0], vals[1])
	return vals[1], nil
}

// ---- while / gensym / length / reverse ----

func primWhile(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) < 2 {
		return Value{}, arityError("while", args, ip)
	}
	cond := ip.Car(args)
	body := ip.Cdr(args)
	f := ip.PushRoots(&env, &cond, &body)
	defer ip.PopRoots(f)
	for {
		c, err := ip.Eval(env, cond)
		if err != nil {
			return Value{}, err
		}
		if !Truthy(c) {
			return Nil, nil
		}
		if _, err := ip.evalBody(env, body); err != nil {
			return Value{}, err
		}
	}
}

func primGensym(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) != 0 {
		return Value{}, arityError("gensym", args, ip)
	}
	return ip.Gensym()
}

func primLength(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("length", args, ip)
	}
	v := vals[0]
	switch ip.Tag(v) {
	case TagString:
		return ip.allocInt(int64(len(ip.StringValue(v))))
	case TagNil:
		return ip.allocInt(0)
	case TagCell:
		n := ip.listLen(v)
		if n < 0 {
			return Value{}, newError(ErrTypeError, "length: improper list")
		}
		return ip.allocInt(int64(n))
	default:
		return Value{}, newError(ErrTypeError, "length: expected list or string, got %s", ip.ToString(v))
	}
}

func primReverse(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, arityError("reverse", args, ip)
	}
	if len(vals) == 1 {
		v := vals[0]
		switch ip.Tag(v) {
		case TagString:
			s := ip.StringValue(v)
			b := []byte(s)
			for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
				b[i], b[j] = b[j], b[i]
			}
			ip.setStringValue(v, string(b))
			return v, nil
		case TagNil:
			return Nil, nil
		case TagCell:
			n := ip.listLen(v)
			if n < 0 {
				return Value{}, newError(ErrTypeError, "reverse: improper list")
			}
			return ip.reverseList(v)
		default:
			return Value{}, newError(ErrTypeError, "reverse: expected list or string, got %s", ip.ToString(v))
		}
	}
	return ip.reverseSlice(vals)
}

func (ip *Interp) reverseList(v Value) (Value, error) {
	out := Nil
	f := ip.PushRoots(&v, &out)
	defer ip.PopRoots(f)
	for !v.Same(Nil) {
		var err error
		out, err = ip.allocCell(ip.Car(v), out)
		if err != nil {
			return Value{}, err
		}
		v = ip.Cdr(v)
	}
	return out, nil
}

func (ip *Interp) reverseSlice(vals []Value) (Value, error) {
	out := Nil
	slots := []*Value{&out}
	for i := range vals {
		slots = append(slots, &vals[i])
	}
	f := ip.PushRoots(slots...)
	defer ip.PopRoots(f)
	for _, v := range vals {
		var err error
		out, err = ip.allocCell(v, out)
		if err != nil {
			return Value{}, err
		}
	}
	return out, nil
}

// ---- arithmetic ----

func primAdd(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, arityError("+", args, ip)
	}
	acc, err := requireInt(ip, vals[0], "+")
	if err != nil {
		return Value{}, err
	}
	for _, v := range vals[1:] {
		n, err := requireInt(ip, v, "+")
		if err != nil {
			return Value{}, err
		}
		acc += n
	}
	return ip.allocInt(acc)
}

func primMul(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, arityError("*", args, ip)
	}
	acc, err := requireInt(ip, vals[0], "*")
	if err != nil {
		return Value{}, err
	}
	for _, v := range vals[1:] {
		n, err := requireInt(ip, v, "*")
		if err != nil {
			return Value{}, err
		}
		acc *= n
	}
	return ip.allocInt(acc)
}

func primDiv(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, arityError("/", args, ip)
	}
	acc, err := requireInt(ip, vals[0], "/")
	if err != nil {
		return Value{}, err
	}
	for _, v := range vals[1:] {
		n, err := requireInt(ip, v, "/")
		if err != nil {
			return Value{}, err
		}
		if n == 0 {
			return Value{}, newError(ErrDivisionByZero, "/: division by zero")
		}
		acc /= n
	}
	return ip.allocInt(acc)
}

func primMod(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, arityError("mod", args, ip)
	}
	acc, err := requireInt(ip, vals[0], "mod")
	if err != nil {
		return Value{}, err
	}
	for _, v := range vals[1:] {
		n, err := requireInt(ip, v, "mod")
		if err != nil {
			return Value{}, err
		}
		if n == 0 {
			return Value{}, newError(ErrDivisionByZero, "mod: division by zero")
		}
		acc %= n
	}
	return ip.allocInt(acc)
}

func primSub(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 0 {
		return Value{}, arityError("-", args, ip)
	}
	first, err := requireInt(ip, vals[0], "-")
	if err != nil {
		return Value{}, err
	}
	if len(vals) == 1 {
		return ip.allocInt(-first)
	}
	acc := first
	for _, v := range vals[1:] {
		n, err := requireInt(ip, v, "-")
		if err != nil {
			return Value{}, err
		}
		acc -= n
	}
	return ip.allocInt(acc)
}

// ---- comparisons ----

func twoInts(ip *Interp, env, args Value, who string) (int64, int64, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, arityError(who, args, ip)
	}
	a, err := requireInt(ip, vals[0], who)
	if err != nil {
		return 0, 0, err
	}
	b, err := requireInt(ip, vals[1], who)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func primNumEq(ip *Interp, env, args Value) (Value, error) {
	a, b, err := twoInts(ip, env, args, "=")
	if err != nil {
		return Value{}, err
	}
	return boolValue(a == b), nil
}

func primLt(ip *Interp, env, args Value) (Value, error) {
	a, b, err := twoInts(ip, env, args, "<")
	if err != nil {
		return Value{}, err
	}
	return boolValue(a < b), nil
}

func primLe(ip *Interp, env, args Value) (Value, error) {
	a, b, err := twoInts(ip, env, args, "<=")
	if err != nil {
		return Value{}, err
	}
	return boolValue(a <= b), nil
}

func primGt(ip *Interp, env, args Value) (Value, error) {
	a, b, err := twoInts(ip, env, args, ">")
	if err != nil {
		return Value{}, err
	}
	return boolValue(a > b), nil
}

func primGe(ip *Interp, env, args Value) (Value, error) {
	a, b, err := twoInts(ip, env, args, ">=")
	if err != nil {
		return Value{}, err
	}
	return boolValue(a >= b), nil
}

// eq is identity for every tag except String, where it is content
// equality; mixing a string with a non-string is a TypeError (spec.md 4.8).
func primEq(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 2 {
		return Value{}, arityError("eq", args, ip)
	}
	a, b := vals[0], vals[1]
	aStr := ip.Tag(a) == TagString
	bStr := ip.Tag(b) == TagString
	if aStr != bStr {
		return Value{}, newError(ErrTypeError, "eq: cannot compare string with non-string")
	}
	if aStr {
		return boolValue(ip.StringValue(a) == ip.StringValue(b)), nil
	}
	return boolValue(a.Same(b)), nil
}

func primNot(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("not", args, ip)
	}
	return boolValue(!Truthy(vals[0])), nil
}

// ---- and / or / if / progn ----

func primAnd(ip *Interp, env, args Value) (Value, error) {
	result := True
	cur := args
	f := ip.PushRoots(&env, &cur)
	defer ip.PopRoots(f)
	for !cur.Same(Nil) {
		if ip.Tag(cur) != TagCell {
			return Value{}, newError(ErrMalformedForm, "and: improper argument list")
		}
		v, err := ip.Eval(env, ip.Car(cur))
		if err != nil {
			return Value{}, err
		}
		if !Truthy(v) {
			return Nil, nil
		}
		result = v
		cur = ip.Cdr(cur)
	}
	return result, nil
}

func primOr(ip *Interp, env, args Value) (Value, error) {
	cur := args
	f := ip.PushRoots(&env, &cur)
	defer ip.PopRoots(f)
	for !cur.Same(Nil) {
		if ip.Tag(cur) != TagCell {
			return Value{}, newError(ErrMalformedForm, "or: improper argument list")
		}
		v, err := ip.Eval(env, ip.Car(cur))
		if err != nil {
			return Value{}, err
		}
		if Truthy(v) {
			return v, nil
		}
		cur = ip.Cdr(cur)
	}
	return Nil, nil
}

func primIf(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) < 2 {
		return Value{}, arityError("if", args, ip)
	}
	f := ip.PushRoots(&env, &args)
	defer ip.PopRoots(f)
	test, err := ip.Eval(env, ip.Car(args))
	if err != nil {
		return Value{}, err
	}
	rest := ip.Cdr(args)
	if Truthy(test) {
		return ip.Eval(env, ip.Car(rest))
	}
	return ip.evalBody(env, ip.Cdr(rest))
}

func primProgn(ip *Interp, env, args Value) (Value, error) {
	return ip.evalBody(env, args)
}

// ---- lambda / defun / defmacro / define / macroexpand ----

func primLambda(ip *Interp, env, args Value) (Value, error) {
	if ip.Tag(args) != TagCell {
		return Value{}, arityError("lambda", args, ip)
	}
	params := ip.Car(args)
	body := ip.Cdr(args)
	if body.Same(Nil) {
		return Value{}, arityError("lambda", args, ip)
	}
	return ip.allocClosure(TagFunction, params, body, env)
}

// defun desugars to lambda + add_variable (spec.md 4.8): (defun name
// params body...).
func primDefun(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) < 3 {
		return Value{}, arityError("defun", args, ip)
	}
	name := ip.Car(args)
	if ip.Tag(name) != TagSymbol {
		return Value{}, newError(ErrTypeError, "defun: expected symbol, got %s", ip.ToString(name))
	}
	params := ip.nthArg(args, 1)
	body := ip.Cdr(ip.Cdr(args))

	fn, cell, newArgs := Nil, Nil, Nil
	f := ip.PushRoots(&env, &name, &params, &body, &fn, &cell, &newArgs)
	defer ip.PopRoots(f)

	var err error
	fn, err = ip.allocClosure(TagFunction, params, body, env)
	if err != nil {
		return Value{}, err
	}
	if err := ip.AddVariable(env, name, fn); err != nil {
		return Value{}, err
	}
	return fn, nil
}

func primDefmacro(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) < 3 {
		return Value{}, arityError("defmacro", args, ip)
	}
	name := ip.Car(args)
	if ip.Tag(name) != TagSymbol {
		return Value{}, newError(ErrTypeError, "defmacro: expected symbol, got %s", ip.ToString(name))
	}
	params := ip.nthArg(args, 1)
	body := ip.Cdr(ip.Cdr(args))

	mac := Nil
	f := ip.PushRoots(&env, &name, &params, &body, &mac)
	defer ip.PopRoots(f)

	var err error
	mac, err = ip.allocClosure(TagMacro, params, body, env)
	if err != nil {
		return Value{}, err
	}
	if err := ip.AddVariable(env, name, mac); err != nil {
		return Value{}, err
	}
	return mac, nil
}

func primDefine(ip *Interp, env, args Value) (Value, error) {
	if ip.listLen(args) != 2 {
		return Value{}, arityError("define", args, ip)
	}
	sym := ip.Car(args)
	if ip.Tag(sym) != TagSymbol {
		return Value{}, newError(ErrTypeError, "define: expected symbol, got %s", ip.ToString(sym))
	}
	val := Nil
	f := ip.PushRoots(&env, &sym, &val)
	defer ip.PopRoots(f)
	var err error
	val, err = ip.Eval(env, ip.nthArg(args, 1))
	if err != nil {
		return Value{}, err
	}
	if err := ip.AddVariable(env, sym, val); err != nil {
		return Value{}, err
	}
	return val, nil
}

// macroexpand expands one level of macro application on its (evaluated)
// argument without re-entering eval on the result (spec.md 4.8).
func primMacroexpand(ip *Interp, env, args Value) (Value, error) {
	f := ip.PushRoots(&env)
	defer ip.PopRoots(f)
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("macroexpand", args, ip)
	}
	form := vals[0]
	if ip.Tag(form) != TagCell {
		return form, nil
	}
	op := ip.Car(form)
	if ip.Tag(op) != TagSymbol {
		return form, nil
	}
	pair := ip.FindBinding(env, op)
	if pair.Same(Nil) {
		return form, nil
	}
	binding := ip.Cdr(pair)
	if ip.Tag(binding) != TagMacro {
		return form, nil
	}
	return ip.applyFunc(binding, ip.Cdr(form))
}

// ---- print / println / string-concat / symbol<->string ----

func primPrint(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	var last Value = Nil
	for _, v := range vals {
		if err := ip.Print(ip.Stdout, v); err != nil {
			return Value{}, newError(ErrInternalBug, "print: %v", err)
		}
		last = v
	}
	return last, nil
}

func primPrintln(ip *Interp, env, args Value) (Value, error) {
	v, err := primPrint(ip, env, args)
	if err != nil {
		return Value{}, err
	}
	if _, err := ip.Stdout.Write([]byte{'\n'}); err != nil {
		return Value{}, newError(ErrInternalBug, "println: %v", err)
	}
	return v, nil
}

func primStringConcat(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	var sb strings.Builder
	for _, v := range vals {
		switch ip.Tag(v) {
		case TagString:
			sb.WriteString(ip.StringValue(v))
		case TagInt:
			sb.WriteString(strconv.FormatInt(ip.IntValue(v), 10))
		default:
			return Value{}, newError(ErrTypeError, "string-concat: expected string or int, got %s", ip.ToString(v))
		}
	}
	return ip.allocString(sb.String())
}

func primSymbolToString(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("symbol->string", args, ip)
	}
	if ip.Tag(vals[0]) != TagSymbol {
		return Value{}, newError(ErrTypeError, "symbol->string: expected symbol, got %s", ip.ToString(vals[0]))
	}
	return ip.allocString(ip.SymbolName(vals[0]))
}

func primStringToSymbol(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("string->symbol", args, ip)
	}
	s, err := requireString(ip, vals[0], "string->symbol")
	if err != nil {
		return Value{}, err
	}
	return ip.Intern(s)
}

// ---- load / exit ----

// load reads and evaluates every form in the named file against env,
// isolating a failure so it is reported and execution resumes with the
// caller of load (spec.md 4.8, 7): it nests error recovery the way
// ProcessFile does, rather than letting the failure unwind past load.
func primLoad(ip *Interp, env, args Value) (Value, error) {
	f := ip.PushRoots(&env)
	defer ip.PopRoots(f)
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("load", args, ip)
	}
	path, err := requireString(ip, vals[0], "load")
	if err != nil {
		return Value{}, err
	}

	if ferr := ip.ProcessFile(path, env); ferr != nil {
		ip.reportError(ferr, path)
	}
	return Nil, nil
}

func primExit(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 1 {
		return Value{}, arityError("exit", args, ip)
	}
	code, err := requireInt(ip, vals[0], "exit")
	if err != nil {
		return Value{}, err
	}
	os.Exit(int(code))
	return Nil, nil // unreachable
}

// ---- supplemented: list / apply / read / eval ----

func primList(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	out := Nil
	slots := []*Value{&out}
	for i := range vals {
		slots = append(slots, &vals[i])
	}
	f := ip.PushRoots(slots...)
	defer ip.PopRoots(f)
	for i := len(vals) - 1; i >= 0; i-- {
		out, err = ip.allocCell(vals[i], out)
		if err != nil {
			return Value{}, err
		}
	}
	return out, nil
}

// apply calls a function or primitive with an already-built Lisp list of
// arguments (spec.md SPEC_FULL.md 4.8 supplement).
func primApply(ip *Interp, env, args Value) (Value, error) {
	fn, callArgs := Nil, Nil
	f := ip.PushRoots(&env, &fn, &callArgs)
	defer ip.PopRoots(f)
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	if len(vals) != 2 {
		return Value{}, arityError("apply", args, ip)
	}
	fn = vals[0]
	callArgs = vals[1]
	if ip.listLen(callArgs) < 0 {
		return Value{}, newError(ErrTypeError, "apply: expected a proper list of arguments")
	}

	switch ip.Tag(fn) {
	case TagFunction:
		return ip.applyFunc(fn, callArgs)
	case TagPrimitive:
		quoted, err := ip.quotedArgList(callArgs)
		if err != nil {
			return Value{}, err
		}
		idx := ip.primitiveIndex(fn)
		return primitiveTable[idx].fn(ip, env, quoted)
	default:
		return Value{}, newError(ErrNotCallable, "apply: %s is not callable", ip.ToString(fn))
	}
}

// quotedArgList wraps every element of an already-evaluated argument list
// in (quote x), so a primitive — which always receives its args raw — sees
// values it will not re-evaluate when it calls evalArgList internally.
func (ip *Interp) quotedArgList(args Value) (Value, error) {
	if args.Same(Nil) {
		return Nil, nil
	}
	head, tail, quote, inner, cell := Nil, Nil, Nil, Nil, Nil
	f := ip.PushRoots(&args, &head, &tail, &quote, &inner, &cell)
	defer ip.PopRoots(f)

	var err error
	quote, err = ip.Intern("quote")
	if err != nil {
		return Value{}, err
	}
	inner, err = ip.allocCell(ip.Car(args), Nil)
	if err != nil {
		return Value{}, err
	}
	head, err = ip.allocCell(quote, inner)
	if err != nil {
		return Value{}, err
	}
	tail, err = ip.quotedArgList(ip.Cdr(args))
	if err != nil {
		return Value{}, err
	}
	cell, err = ip.allocCell(head, tail)
	if err != nil {
		return Value{}, err
	}
	return cell, nil
}

// read parses one S-expression from stdin (no args) or from a string
// argument, without evaluating it (SPEC_FULL.md 4.8 supplement).
func primRead(ip *Interp, env, args Value) (Value, error) {
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	var src CharSource
	switch len(vals) {
	case 0:
		src = ip.stdinSource()
	case 1:
		s, err := requireString(ip, vals[0], "read")
		if err != nil {
			return Value{}, err
		}
		src = NewByteSource(bufio.NewReader(strings.NewReader(s)), "<string>")
	default:
		return Value{}, arityError("read", args, ip)
	}

	rd := NewReader(ip.Heap, src)
	v, ok, err := rd.ReadExpr()
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Nil, nil
	}
	return v, nil
}

// eval evaluates an already-evaluated argument, optionally against an
// explicit environment (SPEC_FULL.md 4.8 supplement).
func primEval(ip *Interp, env, args Value) (Value, error) {
	f := ip.PushRoots(&env)
	defer ip.PopRoots(f)
	vals, err := ip.evalArgList(env, args)
	if err != nil {
		return Value{}, err
	}
	switch len(vals) {
	case 1:
		return ip.Eval(env, vals[0])
	case 2:
		if ip.Tag(vals[1]) != TagEnv && !vals[1].Same(Nil) {
			return Value{}, newError(ErrTypeError, "eval: expected an environment, got %s", ip.ToString(vals[1]))
		}
		return ip.Eval(vals[1], vals[0])
	default:
		return Value{}, arityError("eval", args, ip)
	}
}
