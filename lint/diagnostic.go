package lint

import "fmt"

// Position is a 1-based line/column location plus a 0-based byte offset.
// A zero Line means the position is unknown.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// IsValid reports whether the position carries line information.
func (p Position) IsValid() bool { return p.Line > 0 }

// Span is a half-open source range inside a single file.
type Span struct {
	File  string   `json:"file"`
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (s Span) String() string {
	if !s.Start.IsValid() {
		return s.File
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Start.Line, s.Start.Column)
}

// TextEdit replaces the text covered by Span with NewText.
type TextEdit struct {
	Span    Span   `json:"span"`
	NewText string `json:"newText"`
}

// Fix is a suggested set of edits that resolves a diagnostic.
type Fix struct {
	Title string     `json:"title"`
	Edits []TextEdit `json:"edits"`
}

// Diagnostic is one finding reported by an analyzer.
type Diagnostic struct {
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Span     Span     `json:"span"`
	Fixes    []Fix    `json:"fixes,omitempty"`
}
