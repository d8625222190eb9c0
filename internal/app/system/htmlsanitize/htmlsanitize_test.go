package htmlsanitize_test

import (
	"testing"

	"github.com/dalemusser/rosterhub/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	tests := []string{
		"Ada",
		"O'Brien",
		"Smith & Sons",
		"José",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if got := htmlsanitize.PlainText(in); got != in {
				t.Errorf("PlainText(%q) = %q, want unchanged", in, got)
			}
		})
	}
}

func TestPlainText_RemovesTags(t *testing.T) {
	got := htmlsanitize.PlainText("<b>Ada</b>")
	if got != "Ada" {
		t.Errorf("expected tags removed, got %q", got)
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("Ada<script>alert('xss')</script>")
	if got != "Ada" {
		t.Errorf("expected script removed, got %q", got)
	}
}
