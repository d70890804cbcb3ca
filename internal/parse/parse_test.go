package parse_test

import (
	"context"
	"go/token"
	"go/types"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/Wladim1r/lintrun/internal/parse"
)

const validSrc = `package sample

// Answer is exported.
func Answer() int { return 42 }
`

func TestBuild_Standalone(t *testing.T) {
	t.Parallel()

	filename := filepath.Join(t.TempDir(), "sample.go")
	b := &parse.Builder{DisableProject: true}

	c, err := b.Build(context.Background(), filename, []byte(validSrc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !c.Standalone {
		t.Error("expected a standalone context")
	}
	if c.File == nil || c.File.Name.Name != "sample" {
		t.Fatalf("unexpected syntax tree: %+v", c.File)
	}
	if c.Pkg == nil || c.Pkg.Name() != "sample" {
		t.Errorf("Pkg = %v", c.Pkg)
	}
	if c.Pkg.Scope().Lookup("Answer") == nil {
		t.Error("expected Answer to be type-checked")
	}
	if len(c.File.Comments) == 0 {
		t.Error("expected comments to be kept")
	}
	if c.Filename != filename || string(c.Src) != validSrc {
		t.Error("expected filename and source to be carried through")
	}
	if c.TypesSizes == nil {
		t.Error("expected TypesSizes to be set")
	}
}

func TestBuild_StandaloneToleratesTypeErrors(t *testing.T) {
	t.Parallel()

	src := "package broken\n\nvar x int = \"not an int\"\n\nfunc f() { undefined() }\n"
	c, err := (&parse.Builder{DisableProject: true}).Build(context.Background(), "/tmp/broken.go", []byte(src))
	if err != nil {
		t.Fatalf("type errors must not fail the build: %v", err)
	}
	if c.File == nil || c.Pkg == nil {
		t.Error("expected a partial context")
	}
}

func TestBuild_SyntaxErrorFails(t *testing.T) {
	t.Parallel()

	_, err := (&parse.Builder{DisableProject: true}).Build(context.Background(), "/tmp/bad.go", []byte("package {"))
	if err == nil {
		t.Error("expected a parse error")
	}
}

func TestBuild_FallsBackWhenProjectCannotLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("this is not a module file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	filename := filepath.Join(dir, "sample.go")
	if err := os.WriteFile(filename, []byte(validSrc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := (&parse.Builder{}).Build(context.Background(), filename, []byte(validSrc))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.File == nil || c.File.Name.Name != "sample" {
		t.Errorf("unexpected context: %+v", c)
	}
}

func TestBuild_ProjectContext(t *testing.T) {
	t.Parallel()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go command not available")
	}

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"go.mod":      "module example.com/m\n\ngo 1.22\n",
		"m.go":        "package m\n\nfunc F() int { return 1 }\n",
		"other.go":    "package m\n\nfunc G() int { return F() }\n",
		"ext_test.go": "package m_test\n\nimport (\n\t\"testing\"\n\n\t\"example.com/m\"\n)\n\nfunc TestF(t *testing.T) { _ = m.F() }\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	b := &parse.Builder{}
	build := func(name string) *loadedContext {
		t.Helper()
		path := filepath.Join(dir, name)
		c, err := b.Build(context.Background(), path, []byte(files[name]))
		if err != nil {
			t.Fatalf("Build(%s): %v", name, err)
		}
		return &loadedContext{c.Standalone, c.Project, c.Pkg.Path(), c.Fset}
	}

	first := build("m.go")
	if first.standalone {
		t.Error("expected a project-aware context")
	}
	if want := filepath.Join(dir, "go.mod"); first.project != want {
		t.Errorf("Project = %q, want %q", first.project, want)
	}
	if first.pkgPath != "example.com/m" {
		t.Errorf("package path = %q, want example.com/m", first.pkgPath)
	}

	ext := build("ext_test.go")
	if ext.standalone || ext.pkgPath != "example.com/m_test" {
		t.Errorf("external test file: standalone=%v package=%q", ext.standalone, ext.pkgPath)
	}

	// Files of one directory come from a single cached load.
	other := build("other.go")
	if other.fset != first.fset || ext.fset != first.fset {
		t.Error("expected files in the same directory to share one package load")
	}
}

type loadedContext struct {
	standalone bool
	project    string
	pkgPath    string
	fset       *token.FileSet
}

func TestBuild_StandaloneSharesImports(t *testing.T) {
	t.Parallel()

	src := []byte("package p\n\nimport \"strings\"\n\nvar _ = strings.ToUpper\n")
	b := &parse.Builder{DisableProject: true}

	var imported []*types.Package
	for _, name := range []string{"a.go", "b.go"} {
		c, err := b.Build(context.Background(), filepath.Join(t.TempDir(), name), src)
		if err != nil {
			t.Fatalf("Build(%s): %v", name, err)
		}
		if len(c.Pkg.Imports()) == 0 || c.Pkg.Imports()[0].Scope().Lookup("ToUpper") == nil {
			t.Skip("standard library export data not available")
		}
		imported = append(imported, c.Pkg.Imports()[0])
	}
	if imported[0] != imported[1] {
		t.Error("expected both files to reuse the imported strings package")
	}
}
