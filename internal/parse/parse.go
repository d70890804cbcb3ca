// Package parse builds the per-file lint.Context handed to analyzers.
//
// When the file belongs to a module the whole enclosing package is loaded
// with golang.org/x/tools/go/packages so analyzers get complete type
// information. If there is no module, or loading it fails, the file is
// parsed on its own and type-checked on a best-effort basis.
package parse

import (
	"context"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/tools/go/packages"

	"github.com/Wladim1r/lintrun/internal/target"
	"github.com/Wladim1r/lintrun/lint"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedTypesSizes |
	packages.NeedModule

// Builder creates analysis contexts. It is safe for concurrent use.
type Builder struct {
	Logger *zap.Logger
	// DisableProject forces standalone contexts.
	DisableProject bool

	mu    sync.Mutex
	dirs  map[string]*dirEntry
	sizes types.Sizes
	imp   *lockedImporter
}

// lockedImporter shares one importer, and so one package cache, between
// concurrent standalone checks.
type lockedImporter struct {
	mu  sync.Mutex
	imp types.Importer
}

func (l *lockedImporter) Import(path string) (*types.Package, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.imp.Import(path)
}

// dirEntry caches the packages loaded for one directory during a run.
type dirEntry struct {
	once sync.Once
	pkgs []*packages.Package
	err  error
}

// Build returns a context for filename whose content is src.
func (b *Builder) Build(ctx context.Context, filename string, src []byte) (*lint.Context, error) {
	log := b.logger()

	if !b.DisableProject {
		if project, ok := target.FindProject(filepath.Dir(filename)); ok {
			c, err := b.projectContext(ctx, filename, src, project)
			if err == nil {
				return c, nil
			}
			log.Debug("falling back to standalone context",
				zap.String("file", filename),
				zap.String("project", project),
				zap.Error(err),
			)
		}
	}

	return b.standalone(filename, src)
}

func (b *Builder) projectContext(ctx context.Context, filename string, src []byte, project string) (*lint.Context, error) {
	pkgs, err := b.loadDir(ctx, filepath.Dir(filename))
	if err != nil {
		return nil, err
	}

	want := filepath.Clean(filename)
	for _, pkg := range pkgs {
		if pkg.Types == nil || pkg.TypesInfo == nil {
			continue
		}
		for _, f := range pkg.Syntax {
			if filepath.Clean(pkg.Fset.Position(f.Pos()).Filename) != want {
				continue
			}
			return &lint.Context{
				Filename:   filename,
				Src:        src,
				Fset:       pkg.Fset,
				File:       f,
				Pkg:        pkg.Types,
				TypesInfo:  pkg.TypesInfo,
				TypesSizes: pkg.TypesSizes,
				Project:    project,
			}, nil
		}
	}
	return nil, fmt.Errorf("file %s not found in any loaded package", filename)
}

// loadDir loads the package in dir, including its tests, once per run.
func (b *Builder) loadDir(ctx context.Context, dir string) ([]*packages.Package, error) {
	b.mu.Lock()
	if b.dirs == nil {
		b.dirs = make(map[string]*dirEntry)
	}
	e, ok := b.dirs[dir]
	if !ok {
		e = &dirEntry{}
		b.dirs[dir] = e
	}
	b.mu.Unlock()

	e.once.Do(func() {
		cfg := &packages.Config{
			Context: ctx,
			Mode:    loadMode,
			Dir:     dir,
			Tests:   true,
		}
		e.pkgs, e.err = packages.Load(cfg, ".")
		if e.err == nil && len(e.pkgs) == 0 {
			e.err = fmt.Errorf("no packages in %s", dir)
		}
		b.logger().Debug("loaded packages", zap.String("dir", dir), zap.Int("count", len(e.pkgs)), zap.Error(e.err))
	})
	return e.pkgs, e.err
}

// standalone parses src on its own. Type errors are ignored so that files
// with unresolved imports still get a usable, if partial, types.Info.
func (b *Builder) standalone(filename string, src []byte) (*lint.Context, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	info := newTypesInfo()
	cfg := &types.Config{
		Importer: b.importer(),
		Error:    func(error) {},
	}
	pkg, _ := cfg.Check(f.Name.Name, fset, []*ast.File{f}, info)

	return &lint.Context{
		Filename:   filename,
		Src:        src,
		Fset:       fset,
		File:       f,
		Pkg:        pkg,
		TypesInfo:  info,
		TypesSizes: b.typesSizes(),
		Standalone: true,
	}, nil
}

func (b *Builder) typesSizes() types.Sizes {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sizes == nil {
		b.sizes = types.SizesFor("gc", runtime.GOARCH)
	}
	return b.sizes
}

func (b *Builder) importer() types.Importer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.imp == nil {
		b.imp = &lockedImporter{imp: importer.Default()}
	}
	return b.imp
}

func newTypesInfo() *types.Info {
	return &types.Info{
		Types:        make(map[ast.Expr]types.TypeAndValue),
		Instances:    make(map[*ast.Ident]types.Instance),
		Defs:         make(map[*ast.Ident]types.Object),
		Uses:         make(map[*ast.Ident]types.Object),
		Implicits:    make(map[ast.Node]types.Object),
		Selections:   make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:       make(map[ast.Node]*types.Scope),
		FileVersions: make(map[*ast.File]string),
	}
}

func (b *Builder) logger() *zap.Logger {
	if b == nil || b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}
