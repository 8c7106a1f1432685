// Package sanitize scrubs model output before it is persisted or returned.
// Replies may be piped into voice or terminal frontends, so ANSI escape
// sequences and stray control characters are stripped.
package sanitize

import (
	"regexp"
)

const (
	// MaxOutputSize is the maximum allowed reply size in bytes (1MB)
	MaxOutputSize = 1024 * 1024
)

var (
	// ansiEscapePattern matches ANSI escape sequences:
	// CSI sequences, OSC sequences, and simple ESC+char escapes
	ansiEscapePattern = regexp.MustCompile(`\x1b(?:\[[0-9;]*[a-zA-Z]|\][^\x07\x1b]*(?:\x07|\x1b\\)?|[a-zA-Z])`)

	// controlCharPattern matches control characters except common whitespace
	controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

	// multipleNewlinesPattern matches 3+ consecutive newlines
	multipleNewlinesPattern = regexp.MustCompile(`\n{3,}`)
)

// StripANSI removes ANSI escape sequences from the input string
func StripANSI(s string) string {
	return ansiEscapePattern.ReplaceAllString(s, "")
}

// StripControlChars removes control characters except newline, tab and carriage return
func StripControlChars(s string) string {
	return controlCharPattern.ReplaceAllString(s, "")
}

// Reply performs full sanitization of model output:
// strips ANSI escapes and control characters, caps the size,
// and collapses runs of blank lines.
func Reply(s string) string {
	s = StripANSI(s)
	s = StripControlChars(s)

	if len(s) > MaxOutputSize {
		s = s[:MaxOutputSize] + "\n... [output truncated]"
	}

	s = multipleNewlinesPattern.ReplaceAllString(s, "\n\n")

	return s
}
