// Package report renders an analysis result as text or SARIF.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Wladim1r/lintrun/internal/result"
)

// Format selects the report renderer.
type Format uint8

const (
	// Text is the human readable line format.
	Text Format = iota
	// SARIF is a SARIF 2.1.0 JSON document.
	SARIF
)

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case SARIF:
		return "sarif"
	}
	return "unknown"
}

// ParseFormat accepts "text", "plain", "sarif" and "structured".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "plain":
		return Text, nil
	case "sarif", "structured":
		return SARIF, nil
	}
	return 0, fmt.Errorf("unknown output format %q (want text or sarif)", s)
}

// Tool describes the program in structured reports.
type Tool struct {
	Name    string
	Version string
	InfoURI string
}

// Options controls rendering.
type Options struct {
	Format  Format
	Verbose bool
	// Color enables ANSI colour in the text format.
	Color bool
	Tool  Tool
}

// Write renders res to w.
func Write(w io.Writer, res *result.Result, opts Options) error {
	switch opts.Format {
	case Text:
		out := FormatText(res, opts.Verbose, opts.Color)
		if out == "" {
			return nil
		}
		_, err := fmt.Fprintln(w, out)
		return err
	case SARIF:
		return WriteSARIF(w, res, opts.Tool)
	}
	return fmt.Errorf("unsupported format %v", opts.Format)
}

// ExitCode is 0 only when res holds neither diagnostics nor errors.
func ExitCode(res *result.Result) int {
	if res.Clean() {
		return 0
	}
	return 1
}
