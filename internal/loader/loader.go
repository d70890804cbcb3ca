// Package loader opens analyzer plugins and normalizes whatever they export
// into a single EntryPoint shape.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/Wladim1r/lintrun/lint"
)

// EntryPoint is the uniform callable every exported analyzer is turned into.
type EntryPoint struct {
	Name string
	Run  func(ctx context.Context, c *lint.Context) ([]lint.Diagnostic, error)
}

// Module is one loaded plugin. It is read-only after Load returns.
type Module struct {
	Name        string
	Path        string
	EntryPoints []EntryPoint
}

// Symbols is the lookup side of a loaded plugin; *plugin.Plugin satisfies it.
type Symbols interface {
	Lookup(name string) (plugin.Symbol, error)
}

// Opener opens the plugin at path.
type Opener func(path string) (Symbols, error)

// OpenPlugin opens a shared object built with -buildmode=plugin.
func OpenPlugin(path string) (Symbols, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Loader loads plugin modules.
type Loader struct {
	// Open defaults to OpenPlugin.
	Open Opener
	// Enabled filters entry points by name. Nil enables everything.
	Enabled func(name string) bool
	Logger  *zap.Logger
}

// Load opens every path in order. It never fails as a whole: each path either
// contributes a Module or an error string.
func (l *Loader) Load(paths []string) ([]*Module, []string) {
	var (
		modules []*Module
		errs    []string
	)
	for _, path := range paths {
		m, err := l.loadOne(path)
		if err != nil {
			l.logger().Warn("plugin not loaded", zap.String("path", path), zap.Error(err))
			errs = append(errs, err.Error())
			continue
		}
		l.logger().Debug("plugin loaded",
			zap.String("path", path),
			zap.Int("entry_points", len(m.EntryPoints)),
		)
		modules = append(modules, m)
	}
	return modules, errs
}

func (l *Loader) loadOne(path string) (m *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger().Error("plugin load panic",
				zap.String("path", path),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			m, err = nil, fmt.Errorf("Failed to load module %s: panic: %v", path, r)
		}
	}()

	if _, statErr := os.Stat(path); statErr != nil {
		return nil, fmt.Errorf("Module not found: %s", path)
	}

	open := l.Open
	if open == nil {
		open = OpenPlugin
	}
	syms, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to load module %s: %w", path, err)
	}

	name := moduleName(path)
	eps := l.filter(discover(name, syms, l.logger()))
	if len(eps) == 0 {
		return nil, fmt.Errorf("No analyzers found in module: %s", path)
	}

	return &Module{Name: name, Path: path, EntryPoints: eps}, nil
}

func (l *Loader) filter(eps []EntryPoint) []EntryPoint {
	if l.Enabled == nil {
		return eps
	}
	kept := eps[:0]
	for _, ep := range eps {
		if l.Enabled(ep.Name) {
			kept = append(kept, ep)
			continue
		}
		l.logger().Debug("analyzer disabled", zap.String("analyzer", ep.Name))
	}
	return kept
}

func (l *Loader) logger() *zap.Logger {
	if l == nil || l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// moduleName derives a display name from the plugin file name.
func moduleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
