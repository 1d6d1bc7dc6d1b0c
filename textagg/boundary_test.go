package textagg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPunctuationDetector_FindBoundary(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		want  int
		found bool
	}{
		{"empty", "", 0, false},
		{"no terminator", "Hello world", 0, false},
		{"period at end", "Hello world.", 12, true},
		{"period then space", "Hello world. Next", 12, true},
		{"question", "Are you there? Yes", 14, true},
		{"exclamation run", "Wow!! Amazing", 5, true},
		{"semicolon", "First part; second", 11, true},
		{"closing quote", `He said "stop." Then left`, 15, true},
		{"decimal number", "Pi is 3.14 roughly", 0, false},
		{"number at end may continue", "Pi is 3.", 0, false},
		{"number then space", "It was 2024. Then", 12, true},
		{"url", "Visit example.com today", 0, false},
		{"abbreviation", "Mr. Smith arrived", 0, false},
		{"abbreviation then sentence", "Ask Dr. Who. Now", 12, true},
		{"dotted abbreviation", "Fruit, e.g. apples", 0, false},
		{"initial", "Written by J. Doe", 0, false},
		{"dotted initials", "Made in the U.S. today", 0, false},
		{"cjk full stop", "你好。世界", len("你好。"), true},
		{"cjk question", "你好吗？我很好", len("你好吗？"), true},
		{"ellipsis char", "Wait… what", len("Wait…"), true},
		{"devanagari danda", "नमस्ते। आप", len("नमस्ते।"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DefaultBoundaryDetector.FindBoundary(tt.text)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBoundaryDetectorFunc(t *testing.T) {
	d := BoundaryDetectorFunc(func(text string) (int, bool) { return len(text), text != "" })

	got, ok := d.FindBoundary("abc")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
}
