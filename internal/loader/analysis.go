package loader

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/types"
	"os"
	"runtime"

	"golang.org/x/tools/go/analysis"

	"github.com/Wladim1r/lintrun/lint"
)

var (
	errNoSyntax = errors.New("context has no syntax tree")
	errNoTypes  = errors.New("context has no type information")
)

// RunAnalyzer runs a, and the analyzers it requires, over the single file in
// c. Only diagnostics reported by a itself are returned.
//
// Facts are not supported: importing a fact always fails and exported facts
// are dropped, so fact-based analyzers see every dependency as fact-free.
func RunAnalyzer(ctx context.Context, a *analysis.Analyzer, c *lint.Context) ([]lint.Diagnostic, error) {
	if c == nil || c.File == nil || c.Fset == nil {
		return nil, errNoSyntax
	}
	if c.Pkg == nil || c.TypesInfo == nil {
		return nil, errNoTypes
	}

	r := &passRunner{
		ctx:     ctx,
		lc:      c,
		results: make(map[*analysis.Analyzer]any),
	}
	if _, err := r.exec(a, true); err != nil {
		return nil, err
	}
	return r.diags, nil
}

// passRunner executes an analyzer graph over one file. Each analyzer runs at
// most once.
type passRunner struct {
	ctx     context.Context
	lc      *lint.Context
	results map[*analysis.Analyzer]any
	diags   []lint.Diagnostic
}

func (r *passRunner) exec(a *analysis.Analyzer, root bool) (any, error) {
	if res, ok := r.results[a]; ok {
		return res, nil
	}
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	resultOf := make(map[*analysis.Analyzer]any, len(a.Requires))
	for _, req := range a.Requires {
		res, err := r.exec(req, false)
		if err != nil {
			return nil, fmt.Errorf("%s: required analyzer %s: %w", a.Name, req.Name, err)
		}
		resultOf[req] = res
	}

	sizes := r.lc.TypesSizes
	if sizes == nil {
		sizes = types.SizesFor("gc", runtime.GOARCH)
	}

	pass := &analysis.Pass{
		Analyzer:   a,
		Fset:       r.lc.Fset,
		Files:      []*ast.File{r.lc.File},
		Pkg:        r.lc.Pkg,
		TypesInfo:  r.lc.TypesInfo,
		TypesSizes: sizes,
		ResultOf:   resultOf,
		ReadFile:   r.readFile,
		Report: func(d analysis.Diagnostic) {
			if root {
				r.diags = append(r.diags, r.convert(a, d))
			}
		},
		ImportObjectFact:  func(types.Object, analysis.Fact) bool { return false },
		ImportPackageFact: func(*types.Package, analysis.Fact) bool { return false },
		ExportObjectFact:  func(types.Object, analysis.Fact) {},
		ExportPackageFact: func(analysis.Fact) {},
		AllObjectFacts:    func() []analysis.ObjectFact { return nil },
		AllPackageFacts:   func() []analysis.PackageFact { return nil },
	}

	res, err := a.Run(pass)
	if err != nil {
		return nil, err
	}
	r.results[a] = res
	return res, nil
}

func (r *passRunner) readFile(filename string) ([]byte, error) {
	if filename == r.lc.Filename && r.lc.Src != nil {
		return r.lc.Src, nil
	}
	return os.ReadFile(filename)
}

func (r *passRunner) convert(a *analysis.Analyzer, d analysis.Diagnostic) lint.Diagnostic {
	// Categorized diagnostics get their own code so that each check of one
	// analyzer is a separate rule.
	category, code := d.Category, a.Name+"/"+d.Category
	if category == "" {
		category, code = a.Name, a.Name
	}
	out := lint.Diagnostic{
		Category: category,
		Message:  d.Message,
		Code:     code,
		Severity: lint.SevWarning,
		Span:     r.lc.Span(d.Pos, d.End),
	}
	for _, sf := range d.SuggestedFixes {
		fix := lint.Fix{Title: sf.Message}
		for _, te := range sf.TextEdits {
			fix.Edits = append(fix.Edits, lint.TextEdit{
				Span:    r.lc.Span(te.Pos, te.End),
				NewText: string(te.NewText),
			})
		}
		out.Fixes = append(out.Fixes, fix)
	}
	return out
}
