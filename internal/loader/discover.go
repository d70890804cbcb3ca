package loader

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/tools/go/analysis"

	"github.com/Wladim1r/lintrun/lint"
)

// analyzerProvider is the method shape golangci-lint module plugins export.
type analyzerProvider interface {
	GetAnalyzers() []*analysis.Analyzer
}

// discover looks up every well-known symbol and converts the ones it
// understands into entry points, in symbol order. Symbols of an unexpected
// type are ignored.
func discover(module string, syms Symbols, log *zap.Logger) []EntryPoint {
	var eps []EntryPoint

	if sym, err := syms.Lookup(lint.SymbolAnalyzers); err == nil {
		var list []lint.Analyzer
		switch v := sym.(type) {
		case *[]lint.Analyzer:
			list = *v
		case func() []lint.Analyzer:
			list = v()
		default:
			log.Debug("ignoring symbol of unexpected type",
				zap.String("symbol", lint.SymbolAnalyzers), zap.String("type", fmt.Sprintf("%T", sym)))
		}
		for i, a := range list {
			if a.Run == nil {
				continue
			}
			name := a.Name
			if name == "" {
				name = fmt.Sprintf("%s#%d", module, i)
			}
			eps = append(eps, fromFunc(name, a.Run))
		}
	}

	if sym, err := syms.Lookup(lint.SymbolAnalyze); err == nil {
		name := module + "." + lint.SymbolAnalyze
		switch v := sym.(type) {
		case func(*lint.Context) ([]lint.Diagnostic, error):
			eps = append(eps, fromFunc(name, v))
		case *lint.AnalyzerFunc:
			if *v != nil {
				eps = append(eps, fromFunc(name, *v))
			}
		case *func(*lint.Context) ([]lint.Diagnostic, error):
			if *v != nil {
				eps = append(eps, fromFunc(name, *v))
			}
		default:
			log.Debug("ignoring symbol of unexpected type",
				zap.String("symbol", lint.SymbolAnalyze), zap.String("type", fmt.Sprintf("%T", sym)))
		}
	}

	if sym, err := syms.Lookup(lint.SymbolAnalyzerPlugin); err == nil {
		if p, ok := sym.(analyzerProvider); ok {
			for _, a := range p.GetAnalyzers() {
				if a == nil {
					continue
				}
				if err := analysis.Validate([]*analysis.Analyzer{a}); err != nil {
					log.Warn("ignoring invalid analyzer", zap.String("module", module), zap.Error(err))
					continue
				}
				eps = append(eps, fromAnalysis(a))
			}
		} else {
			log.Debug("ignoring symbol of unexpected type",
				zap.String("symbol", lint.SymbolAnalyzerPlugin), zap.String("type", fmt.Sprintf("%T", sym)))
		}
	}

	return eps
}

// fromFunc adapts a plain analyzer function. The function cannot observe
// cancellation; the runner enforces timeouts around it.
func fromFunc(name string, fn lint.AnalyzerFunc) EntryPoint {
	return EntryPoint{
		Name: name,
		Run: func(_ context.Context, c *lint.Context) ([]lint.Diagnostic, error) {
			return fn(c)
		},
	}
}

// fromAnalysis adapts a go/analysis analyzer.
func fromAnalysis(a *analysis.Analyzer) EntryPoint {
	return EntryPoint{
		Name: a.Name,
		Run: func(ctx context.Context, c *lint.Context) ([]lint.Diagnostic, error) {
			return RunAnalyzer(ctx, a, c)
		},
	}
}
