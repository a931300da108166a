package interp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Options are the interpreter options (spec.md 6.2 init, SPEC_FULL.md 2
// ambient config section). Fields left zero take the defaults New applies,
// mirroring the zero-value-is-a-default convention of the Options this
// package's driver layer was adapted from.
type Options struct {
	// HeapSize is the size in bytes of each semispace. Zero selects
	// DefaultSemispaceSize.
	HeapSize int

	// AlwaysGC forces a collection on every allocation, the debug mode
	// spec.md 4.1 describes for exercising the collector's forwarding
	// logic against every call site.
	AlwaysGC bool

	// Standard input, output and error streams. Default to os.Stdin,
	// os.Stdout and os.Stderr respectively.
	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

// Interp is the process-wide interpreter handle: it owns the heap (and
// therefore the symbol table, root chain and gensym counter it already
// encapsulates) plus the I/O streams primitives like print/load/read
// consult. Per spec.md 5 and SPEC_FULL.md 5, every one of these is a field
// of this handle rather than a package-level global, so multiple
// interpreters can coexist in one process (e.g. in tests); a single Interp
// is still only ever driven from one goroutine at a time.
type Interp struct {
	*Heap

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	global Value // the universe frame: an Env with Up == Nil
}

// New allocates the heap and I/O defaults for a fresh interpreter. Init
// must be called once before any evaluation to install the global
// environment, constants and primitive table.
func New(options Options) (*Interp, error) {
	h, err := NewHeap(options.HeapSize, options.AlwaysGC)
	if err != nil {
		return nil, err
	}
	ip := &Interp{
		Heap:   h,
		Stdin:  options.Stdin,
		Stdout: options.Stdout,
		Stderr: options.Stderr,
	}
	if ip.Stdin == nil {
		ip.Stdin = os.Stdin
	}
	if ip.Stdout == nil {
		ip.Stdout = os.Stdout
	}
	if ip.Stderr == nil {
		ip.Stderr = os.Stderr
	}
	return ip, nil
}

// Init creates the initial (universe) environment, interning and binding
// the constant `t` and every entry of the primitive table (spec.md 6.2
// init). It returns the environment callers should pass to EvalInput,
// ProcessFile, and any direct Eval call.
func (ip *Interp) Init() (Value, error) {
	env, err := ip.allocEnv(Nil, Nil)
	if err != nil {
		return Value{}, err
	}
	f := ip.PushRoots(&env)
	defer ip.PopRoots(f)

	tSym, err := ip.Intern("t")
	if err != nil {
		return Value{}, err
	}
	if err := ip.AddVariable(env, tSym, True); err != nil {
		return Value{}, err
	}

	for i, entry := range primitiveTable {
		sym, prim := Nil, Nil
		g := ip.PushRoots(&sym, &prim)

		sym, err = ip.Intern(entry.name)
		if err != nil {
			ip.PopRoots(g)
			return Value{}, err
		}
		prim, err = ip.allocPrimitive(int32(i))
		if err != nil {
			ip.PopRoots(g)
			return Value{}, err
		}
		if err := ip.AddVariable(env, sym, prim); err != nil {
			ip.PopRoots(g)
			return Value{}, err
		}
		ip.PopRoots(g)
	}

	ip.global = env
	return env, nil
}

// stdinSource wraps ip.Stdin in a fresh ByteSource on every call; it backs
// EvalInput and the zero-argument form of the `read` primitive. Each
// ByteSource has its own bufio.Reader, so bytes one of them has buffered
// beyond the expression it read are not seen by a later one.
func (ip *Interp) stdinSource() CharSource {
	return NewByteSource(bufio.NewReader(ip.Stdin), "<stdin>")
}

// reportError prints a diagnostic for err to Stderr: kind, message, and —
// where a source location has been threaded in — the line number (spec.md
// 7). context, when non-empty, is prefixed so errors surfaced through
// `load` name the file they came from.
func (ip *Interp) reportError(err error, context string) {
	if context != "" {
		fmt.Fprintf(ip.Stderr, "%s: %s\n", context, err)
		return
	}
	fmt.Fprintln(ip.Stderr, err)
}

// reportFatalOrContinue reports err like reportError, but terminates the
// process immediately for the two fatal kinds (spec.md 7): MemoryExhausted
// and InternalBug are not meant to be recovered at a top-level boundary.
func (ip *Interp) reportFatalOrContinue(err error, context string) {
	ip.reportError(err, context)
	if le, ok := err.(*LispError); ok && le.Fatal() {
		os.Exit(1)
	}
}

// EvalInput drives the reader and evaluator against ip.Stdin until EOF,
// printing each top-level result followed by a newline (spec.md 6.2). A
// per-form error is reported to Stderr and evaluation resumes at the next
// top-level read, the reader and evaluator having returned the error up to
// this boundary; it never aborts the loop. The returned status is non-zero
// if any form failed.
func (ip *Interp) EvalInput(env Value) (int, error) {
	src := ip.stdinSource()
	hadError := ip.runLoop(src, env, true, "")
	if hadError {
		return 1, nil
	}
	return 0, nil
}

// ProcessFile slurps path, wraps it as a character source, and evaluates
// every form it contains against env, isolated from the caller's own error
// recovery (spec.md 6.2): a failure partway through the file is reported
// and the remaining forms still run. It returns a non-nil error only if
// the file itself could not be read; per-form evaluation errors are
// reported to Stderr rather than returned, so a `load` call never aborts
// its caller (spec.md 4.8, 7).
func (ip *Interp) ProcessFile(path string, env Value) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	src := NewByteSource(bufio.NewReader(bytes.NewReader(data)), path)
	ip.runLoop(src, env, false, path)
	return nil
}

// runLoop is the shared body of EvalInput and ProcessFile: read one form,
// evaluate it, optionally print the result, and on error report and
// continue rather than unwind further. It reports whether any form failed.
func (ip *Interp) runLoop(src CharSource, env Value, printResults bool, context string) bool {
	rd := NewReader(ip.Heap, src)
	f := ip.PushRoots(&env)
	defer ip.PopRoots(f)
	hadError := false
	for {
		expr, ok, err := rd.ReadExpr()
		if err != nil {
			ip.reportFatalOrContinue(err, context)
			hadError = true
			continue
		}
		if !ok {
			return hadError
		}
		if expr.Same(Dot) || expr.Same(CloseParen) {
			ip.reportError(rd.errAt(ErrMalformedForm, "unexpected %s", ip.Tag(expr)), context)
			hadError = true
			continue
		}

		result, err := ip.Eval(env, expr)
		if err != nil {
			ip.reportFatalOrContinue(err, context)
			hadError = true
			continue
		}
		if printResults {
			if err := ip.Print(ip.Stdout, result); err != nil {
				ip.reportError(err, context)
				hadError = true
				continue
			}
			if _, err := ip.Stdout.Write([]byte{'\n'}); err != nil {
				ip.reportError(err, context)
				hadError = true
			}
		}
	}
}
