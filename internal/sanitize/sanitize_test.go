package sanitize

import (
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "hello world", "hello world"},
		{"color codes", "\x1b[31mred\x1b[0m text", "red text"},
		{"cursor movement", "\x1b[2Jcleared", "cleared"},
		{"osc sequence", "\x1b]0;title\x07text", "text"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStripControlChars(t *testing.T) {
	input := "hello\x00world\x07 and \ttabs\nnewlines stay"
	got := StripControlChars(input)
	want := "helloworld and \ttabs\nnewlines stay"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestReply(t *testing.T) {
	input := "\x1b[1mBold\x1b[0m answer\x00 here\n\n\n\n\nsecond paragraph"
	got := Reply(input)
	want := "Bold answer here\n\nsecond paragraph"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestReplyCapsSize(t *testing.T) {
	input := strings.Repeat("a", MaxOutputSize+100)
	got := Reply(input)
	if len(got) > MaxOutputSize+100 {
		t.Errorf("output not truncated: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "[output truncated]") {
		t.Error("truncated output should carry a marker")
	}
}
