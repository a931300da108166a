// Command minilisp is a thin driver around the interp package: it wires
// stdin/stdout/stderr and a couple of heap-tuning flags to Interp.Init and
// Interp.EvalInput/ProcessFile. Line editing and REPL ergonomics are out of
// scope (spec.md 1 non-goals), so flag is all this needs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/minilisp/minilisp/interp"
)

func main() {
	heapSize := flag.Int("heap-size", interp.DefaultSemispaceSize, "size in bytes of each GC semispace")
	alwaysGC := flag.Bool("always-gc", false, "collect on every allocation (debug mode, spec.md 4.1)")
	flag.Parse()

	ip, err := interp.New(interp.Options{
		HeapSize: *heapSize,
		AlwaysGC: *alwaysGC,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "minilisp:", err)
		os.Exit(1)
	}
	defer ip.Close()

	env, err := ip.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, "minilisp:", err)
		os.Exit(1)
	}
	f := ip.PushRoots(&env)
	defer ip.PopRoots(f)

	for _, path := range flag.Args() {
		if err := ip.ProcessFile(path, env); err != nil {
			fmt.Fprintf(os.Stderr, "minilisp: %s: %v\n", path, err)
			os.Exit(1)
		}
	}
	if flag.NArg() > 0 {
		return
	}

	status, err := ip.EvalInput(env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minilisp:", err)
		os.Exit(1)
	}
	os.Exit(status)
}
