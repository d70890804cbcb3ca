// Package runner executes loaded analyzer entry points against source files.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Wladim1r/lintrun/internal/loader"
	"github.com/Wladim1r/lintrun/internal/result"
	"github.com/Wladim1r/lintrun/internal/target"
	"github.com/Wladim1r/lintrun/lint"
)

// ContextBuilder produces the analysis context for one file.
type ContextBuilder interface {
	Build(ctx context.Context, filename string, src []byte) (*lint.Context, error)
}

// Runner runs every entry point of every module against every file.
type Runner struct {
	Builder  ContextBuilder
	Resolver *target.Resolver
	Logger   *zap.Logger

	// Jobs is the number of files analyzed in parallel. Values below 2 run
	// files one at a time.
	Jobs int
	// Timeout bounds a single entry point invocation. Zero means no limit.
	Timeout time.Duration
	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

// RunTarget resolves path into files and analyzes them.
func (r *Runner) RunTarget(ctx context.Context, modules []*loader.Module, path string) *result.Result {
	files := r.Resolver.Resolve(path)
	if len(files) == 0 {
		return r.noFiles(path)
	}
	return r.Run(ctx, modules, files)
}

// Run analyzes files in order. It always returns a complete result; every
// failure is recorded in Result.Errors and the run moves on.
//
// Messages are ordered by file, then module load order, then entry point
// order, then the order the entry point emitted them, regardless of Jobs.
func (r *Runner) Run(ctx context.Context, modules []*loader.Module, files []string) *result.Result {
	if len(files) == 0 {
		return r.noFiles("")
	}

	log := r.logger()
	parts := make([]*result.Result, len(files))

	jobs := r.Jobs
	if jobs > len(files) {
		jobs = len(files)
	}
	if jobs < 2 {
		for i, file := range files {
			if ctx.Err() != nil {
				break
			}
			parts[i] = r.runFile(ctx, modules, file)
		}
		return r.finish(ctx, parts)
	}

	// Workers never return an error, so one failing file cannot cancel the
	// others; each writes only its own slot.
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, file := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			parts[i] = r.runFile(ctx, modules, file)
			return nil
		})
	}
	_ = g.Wait()

	log.Debug("parallel run finished", zap.Int("files", len(files)), zap.Int("jobs", jobs))
	return r.finish(ctx, parts)
}

// finish merges the per-file parts and records one error if ctx ended the
// run early.
func (r *Runner) finish(ctx context.Context, parts []*result.Result) *result.Result {
	out := result.Merge(parts...)
	if err := ctx.Err(); err != nil {
		r.logger().Warn("analysis interrupted", zap.Error(err))
		out.AddError("Analysis interrupted: " + err.Error())
	}
	return out
}

func (r *Runner) runFile(ctx context.Context, modules []*loader.Module, file string) *result.Result {
	log := r.logger().With(zap.String("file", file))
	out := &result.Result{}

	read := r.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	src, err := read(file)
	if err != nil {
		log.Warn("cannot read file", zap.Error(err))
		out.AddError(fmt.Sprintf("Failed to read file %s: %v", file, err))
		return out
	}

	lc, err := r.Builder.Build(ctx, file, src)
	if err != nil {
		log.Warn("cannot build analysis context", zap.Error(err))
		out.AddError(fmt.Sprintf("Failed to build analysis context for %s: %v", file, err))
		return out
	}

	for _, m := range modules {
		for _, ep := range m.EntryPoints {
			if ctx.Err() != nil {
				return out
			}
			start := time.Now()
			diags, err := r.invoke(ctx, ep, lc, log)
			if err != nil {
				if ctx.Err() != nil {
					return out
				}
				log.Warn("analyzer failed",
					zap.String("module", m.Name),
					zap.String("analyzer", ep.Name),
					zap.Error(err),
				)
				out.AddError(fmt.Sprintf("Analyzer %s from %s failed on %s: %v", ep.Name, m.Name, file, err))
				continue
			}
			log.Debug("analyzer finished",
				zap.String("module", m.Name),
				zap.String("analyzer", ep.Name),
				zap.Int("diagnostics", len(diags)),
				zap.Duration("elapsed", time.Since(start)),
			)
			out.AddMessages(diags...)
		}
	}
	return out
}

// invoke calls ep, turning panics into errors. It returns early when ctx is
// cancelled or Timeout elapses, even if ep ignores its context.
func (r *Runner) invoke(ctx context.Context, ep loader.EntryPoint, lc *lint.Context, log *zap.Logger) ([]lint.Diagnostic, error) {
	if r.Timeout <= 0 && ctx.Done() == nil {
		return safeRun(ctx, ep, lc, log)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	type outcome struct {
		diags []lint.Diagnostic
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		diags, err := safeRun(ctx, ep, lc, log)
		done <- outcome{diags, err}
	}()

	select {
	case o := <-done:
		return o.diags, o.err
	case <-ctx.Done():
		// The entry point keeps running in its goroutine; its result is
		// discarded through the buffered channel.
		if r.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s", r.Timeout)
		}
		return nil, ctx.Err()
	}
}

// safeRun recovers a panicking entry point. The stack goes to the log, the
// result only carries the panic value.
func safeRun(ctx context.Context, ep loader.EntryPoint, lc *lint.Context, log *zap.Logger) (diags []lint.Diagnostic, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("analyzer panic",
				zap.String("analyzer", ep.Name),
				zap.Any("panic", rec),
				zap.String("stack", string(debug.Stack())),
			)
			diags, err = nil, fmt.Errorf("panic: %v", rec)
		}
	}()
	return ep.Run(ctx, lc)
}

func (r *Runner) noFiles(path string) *result.Result {
	r.logger().Warn("no source files found", zap.String("path", path))
	out := &result.Result{}
	out.AddError("No source files found in: " + path)
	return out
}

// DefaultJobs is the worker count used when parallelism is requested without
// an explicit value.
func DefaultJobs() int {
	return runtime.GOMAXPROCS(0)
}

func (r *Runner) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
