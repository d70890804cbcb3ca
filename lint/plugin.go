// Package lint is the contract between lintrun and analyzer plugins.
//
// A plugin is a Go package main built with
//
//	go build -buildmode=plugin -o myrules.so ./myrules
//
// It exports one or more of the well-known symbols below. The loader looks
// each of them up by name, so a plugin does not need to register anything.
//
//	// A list of named analyzers.
//	var Analyzers = []lint.Analyzer{{Name: "nofixme", Run: checkFixme}}
//
//	// A single analyzer function, named "<plugin file name>.Analyze".
//	func Analyze(c *lint.Context) ([]lint.Diagnostic, error) { ... }
//
//	// golangci-lint compatible go/analysis analyzers.
//	var AnalyzerPlugin analyzerPlugin
//	func (analyzerPlugin) GetAnalyzers() []*analysis.Analyzer { ... }
//
// The plugin must be built against the same version of this module as the
// lintrun binary that loads it.
package lint

// Well-known symbol names looked up in every plugin.
const (
	SymbolAnalyzers      = "Analyzers"
	SymbolAnalyze        = "Analyze"
	SymbolAnalyzerPlugin = "AnalyzerPlugin"
)

// AnalyzerFunc inspects one file and returns its findings.
type AnalyzerFunc func(*Context) ([]Diagnostic, error)

// Analyzer is a named AnalyzerFunc.
type Analyzer struct {
	Name string
	Run  AnalyzerFunc
}
