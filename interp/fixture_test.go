package interp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// TestScenarios drives EvalInput against each name.in/name.out pair bundled
// in testdata/scenarios.txtar, the way the teacher pack's own test suites
// use txtar to bundle many small source fixtures in one file.
func TestScenarios(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios.txtar"))
	if err != nil {
		t.Fatalf("read scenarios.txtar: %v", err)
	}
	ar := txtar.Parse(data)

	cases := map[string]struct{ in, out string }{}
	for _, f := range ar.Files {
		name := f.Name
		switch {
		case strings.HasSuffix(name, ".in"):
			base := strings.TrimSuffix(name, ".in")
			c := cases[base]
			c.in = string(f.Data)
			cases[base] = c
		case strings.HasSuffix(name, ".out"):
			base := strings.TrimSuffix(name, ".out")
			c := cases[base]
			c.out = string(f.Data)
			cases[base] = c
		}
	}
	if len(cases) == 0 {
		t.Fatal("scenarios.txtar contained no name.in/name.out pairs")
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			var out, errOut strings.Builder
			ip, err := New(Options{HeapSize: 64 * 1024, Stdin: strings.NewReader(c.in), Stdout: &out, Stderr: &errOut})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer ip.Close()

			env, err := ip.Init()
			if err != nil {
				t.Fatalf("Init: %v", err)
			}

			if _, err := ip.EvalInput(env); err != nil {
				t.Fatalf("EvalInput: %v", err)
			}

			want := strings.TrimRight(c.out, "\n")
			got := strings.TrimRight(out.String(), "\n")
			if got != want {
				t.Errorf("scenario %s: stdout =\n%s\nwant\n%s", name, got, want)
			}
		})
	}
}
