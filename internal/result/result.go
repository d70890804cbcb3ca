// Package result holds the aggregated outcome of an analysis run.
package result

import "github.com/Wladim1r/lintrun/lint"

// Result accumulates diagnostics and failures. It only grows while a run is
// in progress and must be treated as read-only once the run returns.
type Result struct {
	Messages []lint.Diagnostic
	Errors   []string
}

// AddMessages appends diagnostics in the order they were emitted.
func (r *Result) AddMessages(diags ...lint.Diagnostic) {
	r.Messages = append(r.Messages, diags...)
}

// AddError records one failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Clean reports whether the run produced neither diagnostics nor errors.
func (r *Result) Clean() bool {
	return r == nil || (len(r.Messages) == 0 && len(r.Errors) == 0)
}

// Merge concatenates parts in the given order. Nil parts are skipped and
// nothing is deduplicated.
func Merge(parts ...*Result) *Result {
	var nMsgs, nErrs int
	for _, p := range parts {
		if p == nil {
			continue
		}
		nMsgs += len(p.Messages)
		nErrs += len(p.Errors)
	}

	out := &Result{
		Messages: make([]lint.Diagnostic, 0, nMsgs),
		Errors:   make([]string, 0, nErrs),
	}
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.Messages = append(out.Messages, p.Messages...)
		out.Errors = append(out.Errors, p.Errors...)
	}
	return out
}
