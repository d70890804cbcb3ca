package lint

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic.
// Values are ordered: Error > Warning > Info > Hint.
type Severity uint8

const (
	// SevHint is for stylistic suggestions.
	SevHint Severity = iota
	// SevInfo is for informational diagnostics.
	SevInfo
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevHint:
		return "hint"
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity converts a case-insensitive severity name into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hint":
		return SevHint, nil
	case "info":
		return SevInfo, nil
	case "warning", "warn":
		return SevWarning, nil
	case "error":
		return SevError, nil
	}
	return 0, fmt.Errorf("lint: unknown severity %q", s)
}
