// Command plugin is the example analyzer plugin for lintrun.
//
// Build the shared object with the same toolchain and module versions as the
// lintrun binary:
//
//	go build -buildmode=plugin -o logmsg.so ./plugin/
//
// and run it with:
//
//	lintrun -a logmsg.so ./...
//
// The plugin exports two entry points. AnalyzerPlugin follows the
// golangci-lint module plugin shape and contributes the logmsg go/analysis
// pass, so the same .so also works as a golangci-lint custom linter. Analyze
// is a native entry point that reports unresolved FIXME, XXX and HACK
// comments.
package main

import (
	"golang.org/x/tools/go/analysis"

	"github.com/Wladim1r/lintrun/internal/analyzer"
	"github.com/Wladim1r/lintrun/internal/rules"
	"github.com/Wladim1r/lintrun/lint"
)

// AnalyzerPlugin is looked up by name when the plugin is loaded.
var AnalyzerPlugin analyzerPlugin //nolint:unused // exported for plugin loader

type analyzerPlugin struct{}

// GetAnalyzers returns the go/analysis passes provided by this plugin.
func (analyzerPlugin) GetAnalyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{analyzer.Analyzer}
}

// Analyze reports marker comments in c's file.
func Analyze(c *lint.Context) ([]lint.Diagnostic, error) {
	var diags []lint.Diagnostic
	for _, group := range c.File.Comments {
		for _, cm := range group.List {
			msg := rules.CheckMarker(cm.Text, rules.DefaultMarkers())
			if msg == "" {
				continue
			}
			diags = append(diags, lint.Diagnostic{
				Category: "maintenance",
				Message:  msg,
				Code:     "marker",
				Severity: lint.SevInfo,
				Span:     c.Span(cm.Pos(), cm.End()),
			})
		}
	}
	return diags, nil
}

func main() {}
