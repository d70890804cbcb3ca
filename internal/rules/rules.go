// Package rules contains the checks behind the bundled example plugin.
// Each rule is a self-contained function that accepts plain text and returns
// a diagnostic description when the rule is violated, or an empty string
// when the text is fine.
package rules

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CheckLowercase verifies that a log message begins with a lower-case letter.
func CheckLowercase(msg string) string {
	msg = strings.TrimSpace(msg)
	r, _ := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return ""
	}
	if unicode.IsUpper(r) {
		return "log message should start with a lowercase letter"
	}
	return ""
}

// LowercaseFirst returns msg with its first rune lower-cased.
func LowercaseFirst(msg string) string {
	r, n := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToLower(r)) + msg[n:]
}

// DefaultSensitiveKeywords returns the built-in list of keywords that
// indicate potentially sensitive information in a log message.
func DefaultSensitiveKeywords() []string {
	return []string{
		"password",
		"passwd",
		"secret",
		"token",
		"api_key",
		"apikey",
		"credential",
		"private_key",
		"access_key",
		"jwt",
		"bearer",
	}
}

// Words that, right after a keyword, describe a status rather than a value:
// "token validated" is fine, "token: abc" is not.
var statusWords = map[string]struct{}{
	"ok":        {},
	"success":   {},
	"succeeded": {},
	"failed":    {},
	"invalid":   {},
	"missing":   {},
	"expired":   {},
	"validated": {},
	"refreshed": {},
	"revoked":   {},
	"rotated":   {},
	"updated":   {},
}

// CheckSensitive reports a keyword that appears as a word of msg, or inside
// one of the identifiers passed to the log call (matched case-insensitively
// with underscores ignored, so apiKey matches api_key).
func CheckSensitive(msg string, idents, keywords []string) string {
	words := strings.FieldsFunc(strings.ToLower(msg), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	for _, kw := range keywords {
		kw = strings.ToLower(kw)

		for i, w := range words {
			if w != kw {
				continue
			}
			if i+1 < len(words) {
				if _, ok := statusWords[words[i+1]]; ok {
					continue
				}
			}
			return fmt.Sprintf("log message may contain sensitive data (keyword %q in message text)", kw)
		}

		kwNorm := strings.ReplaceAll(kw, "_", "")
		for _, id := range idents {
			idNorm := strings.ReplaceAll(strings.ToLower(id), "_", "")
			if strings.Contains(idNorm, kwNorm) {
				return fmt.Sprintf("log message may contain sensitive data (keyword %q in argument %s)", kw, id)
			}
		}
	}
	return ""
}

// DefaultMarkers are the comment markers CheckMarker looks for.
func DefaultMarkers() []string {
	return []string{"FIXME", "XXX", "HACK"}
}

// CheckMarker reports the first marker found as a whole word in a comment's
// text.
func CheckMarker(comment string, markers []string) string {
	words := strings.FieldsFunc(comment, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r))
	})
	for _, m := range markers {
		for _, w := range words {
			if w == m {
				return fmt.Sprintf("unresolved %s comment", m)
			}
		}
	}
	return ""
}
