package runner_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wladim1r/lintrun/internal/loader"
	"github.com/Wladim1r/lintrun/internal/runner"
	"github.com/Wladim1r/lintrun/internal/target"
	"github.com/Wladim1r/lintrun/lint"
)

// fakeBuilder returns a bare context, failing for files listed in fail.
type fakeBuilder struct {
	fail map[string]bool
}

func (b fakeBuilder) Build(_ context.Context, filename string, src []byte) (*lint.Context, error) {
	if b.fail[filename] {
		return nil, errors.New("cannot parse")
	}
	return &lint.Context{Filename: filename, Src: src}, nil
}

func readAny(string) ([]byte, error) { return []byte("package p\n"), nil }

// flagEvery reports one diagnostic per file, tagged with code.
func flagEvery(code string, calls *atomic.Int64) loader.EntryPoint {
	return loader.EntryPoint{
		Name: code,
		Run: func(_ context.Context, c *lint.Context) ([]lint.Diagnostic, error) {
			if calls != nil {
				calls.Add(1)
			}
			return []lint.Diagnostic{{
				Code:     code,
				Message:  "flagged " + filepath.Base(c.Filename),
				Severity: lint.SevWarning,
				Span:     lint.Span{File: c.Filename},
			}}, nil
		},
	}
}

func module(name string, eps ...loader.EntryPoint) *loader.Module {
	return &loader.Module{Name: name, Path: name + ".so", EntryPoints: eps}
}

func keys(diags []lint.Diagnostic) []string {
	out := make([]string, 0, len(diags))
	for _, d := range diags {
		out = append(out, filepath.Base(d.Span.File)+"/"+d.Code)
	}
	return out
}

func TestRun_InvokesEveryEntryPointForEveryFile(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	failing := loader.EntryPoint{
		Name: "failing",
		Run: func(context.Context, *lint.Context) ([]lint.Diagnostic, error) {
			calls.Add(1)
			return nil, errors.New("nope")
		},
	}
	modules := []*loader.Module{
		module("one", flagEvery("A", &calls), failing),
		module("two", flagEvery("B", &calls)),
	}
	files := []string{"/src/a.go", "/src/b.go", "/src/c.go"}

	for _, jobs := range []int{0, 3} {
		calls.Store(0)
		r := &runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny, Jobs: jobs}
		res := r.Run(context.Background(), modules, files)

		if got := calls.Load(); got != 9 {
			t.Errorf("jobs=%d: %d invocations, want 9", jobs, got)
		}
		if len(res.Messages) != 6 {
			t.Errorf("jobs=%d: %d messages, want 6", jobs, len(res.Messages))
		}
		if len(res.Errors) != 3 {
			t.Errorf("jobs=%d: %d errors, want 3", jobs, len(res.Errors))
		}
	}
}

func TestRunTarget_DirectoryWithTwoFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"a.go", "b.go"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("package p\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	r := &runner.Runner{Builder: fakeBuilder{}, Resolver: &target.Resolver{}}
	res := r.RunTarget(context.Background(), []*loader.Module{module("m", flagEvery("X1", nil))}, dir)

	if len(res.Messages) != 2 {
		t.Errorf("got %d messages, want 2", len(res.Messages))
	}
	if len(res.Errors) != 0 {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
	if res.Clean() {
		t.Error("result with findings must not be clean")
	}
}

func TestRunTarget_MissingPath(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	missing := filepath.Join(t.TempDir(), "missing")
	r := &runner.Runner{Builder: fakeBuilder{}, Resolver: &target.Resolver{}}
	res := r.RunTarget(context.Background(), []*loader.Module{module("m", flagEvery("X1", &calls))}, missing)

	if len(res.Messages) != 0 {
		t.Errorf("unexpected messages: %v", res.Messages)
	}
	want := []string{"No source files found in: " + missing}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Errorf("Errors = %v, want %v", res.Errors, want)
	}
	if calls.Load() != 0 {
		t.Error("no entry point may run without files")
	}
}

func TestRun_FailureIsIsolated(t *testing.T) {
	t.Parallel()

	throws := loader.EntryPoint{
		Name: "picky",
		Run: func(_ context.Context, c *lint.Context) ([]lint.Diagnostic, error) {
			if strings.HasSuffix(c.Filename, "f.go") {
				return nil, errors.New("cannot handle this file")
			}
			return nil, nil
		},
	}
	panics := loader.EntryPoint{
		Name: "fragile",
		Run: func(_ context.Context, c *lint.Context) ([]lint.Diagnostic, error) {
			if strings.HasSuffix(c.Filename, "f.go") {
				panic("index out of range")
			}
			return nil, nil
		},
	}
	modules := []*loader.Module{
		module("good", flagEvery("G", nil)),
		module("bad", throws, panics),
		module("later", flagEvery("L", nil)),
	}

	r := &runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny}
	res := r.Run(context.Background(), modules, []string{"/src/e.go", "/src/f.go"})

	wantKeys := []string{"e.go/G", "e.go/L", "f.go/G", "f.go/L"}
	if got := keys(res.Messages); !reflect.DeepEqual(got, wantKeys) {
		t.Errorf("messages = %v, want %v", got, wantKeys)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v", res.Errors)
	}
	for _, e := range res.Errors {
		if !strings.Contains(e, "/src/f.go") || !strings.Contains(e, "from bad") {
			t.Errorf("error %q must name the file and the module", e)
		}
	}
	if !strings.Contains(res.Errors[1], "panic: index out of range") {
		t.Errorf("panic not reported: %q", res.Errors[1])
	}
}

func TestRun_ReadAndContextFailures(t *testing.T) {
	t.Parallel()

	read := func(name string) ([]byte, error) {
		if name == "/src/gone.go" {
			return nil, os.ErrNotExist
		}
		return []byte("package p\n"), nil
	}
	r := &runner.Runner{
		Builder:  fakeBuilder{fail: map[string]bool{"/src/broken.go": true}},
		ReadFile: read,
	}
	res := r.Run(context.Background(),
		[]*loader.Module{module("m", flagEvery("X", nil))},
		[]string{"/src/gone.go", "/src/broken.go", "/src/ok.go"},
	)

	if got := keys(res.Messages); !reflect.DeepEqual(got, []string{"ok.go/X"}) {
		t.Errorf("messages = %v", got)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if !strings.HasPrefix(res.Errors[0], "Failed to read file /src/gone.go") {
		t.Errorf("read error = %q", res.Errors[0])
	}
	if !strings.HasPrefix(res.Errors[1], "Failed to build analysis context for /src/broken.go") {
		t.Errorf("context error = %q", res.Errors[1])
	}
}

func TestRun_ParallelOrderMatchesSequential(t *testing.T) {
	t.Parallel()

	var files []string
	for i := 0; i < 24; i++ {
		files = append(files, fmt.Sprintf("/src/f%02d.go", i))
	}
	jittery := loader.EntryPoint{
		Name: "jitter",
		Run: func(_ context.Context, c *lint.Context) ([]lint.Diagnostic, error) {
			time.Sleep(time.Duration(len(c.Filename)%3) * time.Millisecond)
			return []lint.Diagnostic{
				{Code: "J1", Span: lint.Span{File: c.Filename}},
				{Code: "J2", Span: lint.Span{File: c.Filename}},
			}, nil
		},
	}
	modules := []*loader.Module{module("a", jittery), module("b", flagEvery("B", nil))}

	seq := (&runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny}).Run(context.Background(), modules, files)
	par := (&runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny, Jobs: 8}).Run(context.Background(), modules, files)

	if !reflect.DeepEqual(keys(seq.Messages), keys(par.Messages)) {
		t.Errorf("parallel order differs:\nseq %v\npar %v", keys(seq.Messages), keys(par.Messages))
	}
	if len(seq.Messages) != 24*3 {
		t.Errorf("got %d messages, want %d", len(seq.Messages), 24*3)
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	hangs := loader.EntryPoint{
		Name: "hangs",
		Run: func(ctx context.Context, _ *lint.Context) ([]lint.Diagnostic, error) {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return nil, nil
		},
	}
	r := &runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny, Timeout: 20 * time.Millisecond}
	res := r.Run(context.Background(),
		[]*loader.Module{module("slow", hangs, flagEvery("after", nil))},
		[]string{"/src/a.go"},
	)

	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "timed out after 20ms") {
		t.Errorf("errors = %v", res.Errors)
	}
	if got := keys(res.Messages); !reflect.DeepEqual(got, []string{"a.go/after"}) {
		t.Errorf("messages = %v", got)
	}
}

func TestRun_NoFiles(t *testing.T) {
	t.Parallel()

	res := (&runner.Runner{Builder: fakeBuilder{}}).Run(context.Background(), nil, nil)
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "No source files found in:") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []string{"/src/a.go", "/src/b.go", "/src/c.go"}
	for _, jobs := range []int{0, 3} {
		var calls atomic.Int64
		r := &runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny, Jobs: jobs}
		res := r.Run(ctx, []*loader.Module{module("m", flagEvery("A", &calls))}, files)

		if got := calls.Load(); got != 0 {
			t.Errorf("jobs=%d: %d invocations after cancel, want 0", jobs, got)
		}
		if len(res.Messages) != 0 {
			t.Errorf("jobs=%d: unexpected messages %v", jobs, keys(res.Messages))
		}
		want := []string{"Analysis interrupted: context canceled"}
		if !reflect.DeepEqual(res.Errors, want) {
			t.Errorf("jobs=%d: errors = %v, want %v", jobs, res.Errors, want)
		}
	}
}

func TestRun_CancelStopsHungEntryPoint(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	var calls atomic.Int64
	hung := loader.EntryPoint{
		Name: "hung",
		Run: func(context.Context, *lint.Context) ([]lint.Diagnostic, error) {
			calls.Add(1)
			cancel()
			<-release
			return nil, nil
		},
	}

	r := &runner.Runner{Builder: fakeBuilder{}, ReadFile: readAny}
	done := make(chan struct{})
	var errs []string
	go func() {
		defer close(done)
		res := r.Run(ctx, []*loader.Module{module("m", hung)}, []string{"/src/a.go", "/src/b.go"})
		errs = res.Errors
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("%d invocations, want 1", got)
	}
	want := []string{"Analysis interrupted: context canceled"}
	if !reflect.DeepEqual(errs, want) {
		t.Errorf("errors = %v, want %v", errs, want)
	}
}
