package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/Wladim1r/lintrun/internal/result"
	"github.com/Wladim1r/lintrun/lint"
)

var (
	errorAttrs   = []color.Attribute{color.FgRed, color.Bold}
	warningAttrs = []color.Attribute{color.FgYellow, color.Bold}
	infoAttrs    = []color.Attribute{color.FgBlue}
	hintAttrs    = []color.Attribute{color.FgCyan}
	detailAttrs  = []color.Attribute{color.Faint}
)

// FormatText renders res in the plain line format:
//
//	Error: <text>
//	[code] severity: message
//	    Category: <category>      (verbose only)
//	    File: <path>:<line>:<col> (verbose only)
//
// Trailing whitespace is trimmed from the whole output.
func FormatText(res *result.Result, verbose, colored bool) string {
	var b strings.Builder
	paint := func(attrs []color.Attribute, s string) string {
		if !colored {
			return s
		}
		c := color.New(attrs...)
		c.EnableColor()
		return c.Sprint(s)
	}

	if res != nil {
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "%s %s\n", paint(errorAttrs, "Error:"), e)
		}
	}

	if res == nil || len(res.Messages) == 0 {
		if verbose {
			b.WriteString("No violations found.\n")
		}
		return strings.TrimRight(b.String(), " \t\r\n")
	}

	for _, d := range res.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", d.Code, paint(severityAttrs(d.Severity), d.Severity.String()), d.Message)
		if verbose {
			fmt.Fprintf(&b, "    %s\n", paint(detailAttrs, "Category: "+d.Category))
			fmt.Fprintf(&b, "    %s\n", paint(detailAttrs, "File: "+d.Span.String()))
		}
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}

func severityAttrs(s lint.Severity) []color.Attribute {
	switch s {
	case lint.SevError:
		return errorAttrs
	case lint.SevWarning:
		return warningAttrs
	case lint.SevInfo:
		return infoAttrs
	}
	return hintAttrs
}
