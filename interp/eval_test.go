package interp

import (
	"bufio"
	"strings"
	"testing"
)

func newTestInterp(t *testing.T, alwaysGC bool) (*Interp, Value) {
	t.Helper()
	var out, errOut strings.Builder
	ip, err := New(Options{HeapSize: 64 * 1024, AlwaysGC: alwaysGC, Stdout: &out, Stderr: &errOut})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = ip.Close() })
	env, err := ip.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return ip, env
}

// evalString reads and evaluates every top-level form in src against env,
// returning the printed form of the last result.
func evalString(t *testing.T, ip *Interp, env Value, src string) string {
	t.Helper()
	rd := NewReader(ip.Heap, NewByteSource(bufio.NewReader(strings.NewReader(src)), "<test>"))
	var last Value = Nil
	f := ip.PushRoots(&env, &last)
	defer ip.PopRoots(f)
	for {
		expr, ok, err := rd.ReadExpr()
		if err != nil {
			t.Fatalf("ReadExpr(%q): %v", src, err)
		}
		if !ok {
			break
		}
		v, err := ip.Eval(env, expr)
		if err != nil {
			t.Fatalf("Eval(%q): %v", src, err)
		}
		last = v
	}
	return ip.ToString(last)
}

func evalStringErr(ip *Interp, env Value, src string) (string, error) {
	rd := NewReader(ip.Heap, NewByteSource(bufio.NewReader(strings.NewReader(src)), "<test>"))
	var last Value = Nil
	f := ip.PushRoots(&env, &last)
	defer ip.PopRoots(f)
	for {
		expr, ok, err := rd.ReadExpr()
		if err != nil {
			return "", err
		}
		if !ok {
			break
		}
		v, err := ip.Eval(env, expr)
		if err != nil {
			return "", err
		}
		last = v
	}
	return ip.ToString(last), nil
}

func TestEvalSelfEvaluating(t *testing.T) {
	for _, alwaysGC := range []bool{false, true} {
		ip, env := newTestInterp(t, alwaysGC)
		// env must stay rooted across cases: under always-gc every read
		// moves it.
		f := ip.PushRoots(&env)
		cases := []struct{ src, want string }{
			{"42", "42"},
			{"-7", "-7"},
			{`"hi"`, "hi"},
			{"t", "t"},
			{"()", "()"},
			{"(quote (1 2 3))", "(1 2 3)"},
			{"'(1 2 . 3)", "(1 2 . 3)"},
		}
		for _, c := range cases {
			if got := evalString(t, ip, env, c.src); got != c.want {
				t.Errorf("alwaysGC=%v eval(%q) = %q, want %q", alwaysGC, c.src, got, c.want)
			}
		}
		ip.PopRoots(f)
	}
}

func TestEvalArithmetic(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []struct{ src, want string }{
		{"(+ 1 2 3)", "6"},
		{"(+ 5)", "5"},
		{"(* 2 3 4)", "24"},
		{"(- 10 3 2)", "5"},
		{"(- 10)", "-10"},
		{"(/ 20 2 2)", "5"},
		{"(mod 7 3)", "1"},
		{"(= 3 3)", "t"},
		{"(= 3 4)", "()"},
		{"(< 1 2)", "t"},
		{"(>= 2 2)", "t"},
	}
	for _, c := range cases {
		if got := evalString(t, ip, env, c.src); got != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	ip, env := newTestInterp(t, false)
	_, err := evalStringErr(ip, env, "(/ 1 0)")
	le, ok := err.(*LispError)
	if !ok || le.Kind != ErrDivisionByZero {
		t.Fatalf("expected DivisionByZero, got %v", err)
	}
}

func TestEvalUnboundSymbol(t *testing.T) {
	ip, env := newTestInterp(t, false)
	_, err := evalStringErr(ip, env, "xyzzy")
	le, ok := err.(*LispError)
	if !ok || le.Kind != ErrUnboundSymbol {
		t.Fatalf("expected UnboundSymbol, got %v", err)
	}
}

func TestEvalNotCallable(t *testing.T) {
	ip, env := newTestInterp(t, false)
	_, err := evalStringErr(ip, env, "(1 2 3)")
	le, ok := err.(*LispError)
	if !ok || le.Kind != ErrNotCallable {
		t.Fatalf("expected NotCallable, got %v", err)
	}
}

func TestEvalListOps(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []struct{ src, want string }{
		{"(cons 1 2)", "(1 . 2)"},
		{"(car (cons 1 2))", "1"},
		{"(cdr (cons 1 2))", "2"},
		{"(length '(1 2 3))", "3"},
		{`(length "hello")`, "5"},
		{"(reverse '(1 2 3))", "(3 2 1)"},
		{"(list 1 2 3)", "(1 2 3)"},
	}
	for _, c := range cases {
		if got := evalString(t, ip, env, c.src); got != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestEvalDefunAndLambda(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []struct{ src, want string }{
		{"(defun add (a b) (+ a b))", "<function>"},
		{"(add 2 3)", "5"},
		{"((lambda (x) (* x x)) 5)", "25"},
		{"(defun variadic (a . rest) (cons a rest))", "<function>"},
		{"(variadic 1 2 3)", "(1 2 3)"},
	}
	for _, c := range cases {
		if got := evalString(t, ip, env, c.src); got != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestEvalDefmacroAndMacroexpand(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []struct{ src, want string }{
		{"(defmacro unless (c . body) (cons 'if (cons c (cons () body))))", "<macro>"},
		{"(unless () 42)", "42"},
		{"(unless t 42)", "()"},
	}
	for _, c := range cases {
		if got := evalString(t, ip, env, c.src); got != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestEvalWhileAndSetq(t *testing.T) {
	ip, env := newTestInterp(t, false)
	src := `
(define counter 0)
(define sum 0)
(while (< counter 5)
  (setq sum (+ sum counter))
  (setq counter (+ counter 1)))
sum`
	if got := evalString(t, ip, env, src); got != "10" {
		t.Errorf("while/setq loop = %q, want 10", got)
	}
}

func TestEvalApplyAndEval(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []struct{ src, want string }{
		{"(apply + (list 1 2 3))", "6"},
		{"(eval (quote (+ 1 2)))", "3"},
	}
	for _, c := range cases {
		if got := evalString(t, ip, env, c.src); got != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestEvalStringOps(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []struct{ src, want string }{
		{`(string-concat "a" "b" 1 2)`, "ab12"},
		{`(symbol->string 'foo)`, "foo"},
		{`(eq (string->symbol "foo") 'foo)`, "t"},
		{`(eq "abc" "abc")`, "t"},
	}
	for _, c := range cases {
		if got := evalString(t, ip, env, c.src); got != c.want {
			t.Errorf("eval(%q) = %q, want %q", c.src, got, c.want)
		}
	}
}

func TestEvalEqTypeMismatch(t *testing.T) {
	ip, env := newTestInterp(t, false)
	_, err := evalStringErr(ip, env, `(eq "abc" 1)`)
	le, ok := err.(*LispError)
	if !ok || le.Kind != ErrTypeError {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

// TestArithmeticIdentities checks the identities spec.md 8 names.
func TestArithmeticIdentities(t *testing.T) {
	ip, env := newTestInterp(t, false)
	cases := []string{
		"(= (+ 7 0) 7)",
		"(= (* 7 1) 7)",
		"(= (- 7 7) 0)",
		"(= 7 7)",
	}
	for _, src := range cases {
		if got := evalString(t, ip, env, src); got != "t" {
			t.Errorf("identity %q = %q, want t", src, got)
		}
	}
}
