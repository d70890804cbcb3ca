// Package target turns a user supplied path into the list of Go source files
// to analyze.
//
// Accepted targets:
//   - a go.work file: every module it uses
//   - a go.mod file: every package in that module
//   - a single .go file
//   - a directory: every .go file below it
//
// Anything else resolves to no files. Resolution never fails; problems are
// logged and the offending part of the target is skipped.
package target

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
)

// Manifest file names.
const (
	WorkFile   = "go.work"
	ModuleFile = "go.mod"
)

const sourceExt = ".go"

// Resolver expands targets into source files.
type Resolver struct {
	// Exclude holds filepath.Match patterns. A file is dropped when a pattern
	// matches either its base name or its slash separated path relative to
	// the target.
	Exclude []string
	Logger  *zap.Logger
}

// Resolve returns the absolute paths of all source files reachable from
// path, deduplicated with the first occurrence winning.
func (r *Resolver) Resolve(path string) []string {
	log := r.logger()

	abs, err := filepath.Abs(path)
	if err != nil {
		log.Debug("cannot make target absolute", zap.String("target", path), zap.Error(err))
		return nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		log.Debug("target does not exist", zap.String("target", path), zap.Error(err))
		return nil
	}

	root := abs
	var files []string
	if info.IsDir() {
		files = walkSources(abs, false, log)
	} else {
		root = filepath.Dir(abs)
		switch {
		case filepath.Base(abs) == WorkFile:
			files = r.workspaceFiles(abs)
		case filepath.Base(abs) == ModuleFile:
			files = moduleFiles(abs, log)
		case filepath.Ext(abs) == sourceExt:
			files = []string{abs}
		default:
			log.Debug("unsupported target extension", zap.String("target", path))
		}
	}

	return dedupe(r.filter(root, files))
}

// workspaceFiles collects the files of every module listed in a go.work.
// Modules whose go.mod has disappeared are skipped silently.
func (r *Resolver) workspaceFiles(workPath string) []string {
	log := r.logger()

	data, err := os.ReadFile(workPath)
	if err != nil {
		log.Warn("cannot read workspace", zap.String("path", workPath), zap.Error(err))
		return nil
	}
	wf, err := modfile.ParseWork(workPath, data, nil)
	if err != nil {
		log.Warn("cannot parse workspace", zap.String("path", workPath), zap.Error(err))
		return nil
	}

	base := filepath.Dir(workPath)
	var files []string
	for _, use := range wf.Use {
		dir := filepath.FromSlash(use.Path)
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		manifest := filepath.Join(dir, ModuleFile)
		if !fileExists(manifest) {
			log.Debug("skipping missing workspace module", zap.String("module", manifest))
			continue
		}
		files = append(files, moduleFiles(manifest, log)...)
	}
	return files
}

// moduleFiles lists the source files that belong to the module declared by
// modPath. Nested modules are not part of it.
func moduleFiles(modPath string, log *zap.Logger) []string {
	data, err := os.ReadFile(modPath)
	if err != nil {
		log.Warn("cannot read module", zap.String("path", modPath), zap.Error(err))
		return nil
	}
	mf, err := modfile.ParseLax(modPath, data, nil)
	if err != nil {
		log.Warn("cannot parse module", zap.String("path", modPath), zap.Error(err))
		return nil
	}
	if mf.Module != nil {
		log.Debug("resolving module", zap.String("module", mf.Module.Mod.Path), zap.String("path", modPath))
	}
	return walkSources(filepath.Dir(modPath), true, log)
}

// walkSources enumerates .go files below root in lexical order, skipping the
// directories the go tool ignores. With stopAtModules set, subdirectories
// holding their own go.mod are skipped as well.
func walkSources(root string, stopAtModules bool, log *zap.Logger) []string {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("walk error", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if ignoredDir(d.Name()) {
				return fs.SkipDir
			}
			if stopAtModules && fileExists(filepath.Join(path, ModuleFile)) {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == sourceExt && d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		log.Debug("walk aborted", zap.String("root", root), zap.Error(err))
	}
	return files
}

func ignoredDir(name string) bool {
	if name == "vendor" || name == "testdata" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func (r *Resolver) filter(root string, files []string) []string {
	if r == nil || len(r.Exclude) == 0 {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		if !r.excluded(root, f) {
			kept = append(kept, f)
		}
	}
	return kept
}

func (r *Resolver) excluded(root, file string) bool {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(file)
	for _, pattern := range r.Exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		key := filepath.Clean(f)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// FindProject searches dir and its parents for the nearest go.mod.
func FindProject(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, ModuleFile)
		if fileExists(candidate) {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (r *Resolver) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
