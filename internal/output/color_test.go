package output

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/bimmerbailey/drai/internal/parser"
)

func TestColorizeTier(t *testing.T) {
	tests := []struct {
		name          string
		tier          parser.Tier
		text          string
		expectColor   bool
		expectedColor string
	}{
		{
			name:          "strict - green",
			tier:          parser.TierStrict,
			text:          "strict",
			expectColor:   true,
			expectedColor: colorGreen,
		},
		{
			name:          "heuristic - yellow",
			tier:          parser.TierHeuristic,
			text:          "heuristic",
			expectColor:   true,
			expectedColor: colorYellow,
		},
		{
			name:          "fallback - red",
			tier:          parser.TierFallback,
			text:          "fallback",
			expectColor:   true,
			expectedColor: colorRed,
		},
		{
			name:        "unknown - no color",
			tier:        parser.Tier(0),
			text:        "unknown",
			expectColor: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ColorizeTier(tt.tier, tt.text)

			if tt.expectColor {
				if !strings.Contains(result, tt.expectedColor) {
					t.Errorf("Expected result to contain color code %q, got: %s", tt.expectedColor, result)
				}
				if !strings.HasSuffix(result, colorReset) {
					t.Errorf("Expected result to end with reset code, got: %s", result)
				}
				if !strings.Contains(result, tt.text) {
					t.Errorf("Expected result to contain %q, got: %s", tt.text, result)
				}
			} else if result != tt.text {
				t.Errorf("Expected text to be unchanged, got: %s", result)
			}
		})
	}
}

func TestColorizeHeader(t *testing.T) {
	got := ColorizeHeader("DIAGNOSIS:")
	if got != colorBold+"DIAGNOSIS:"+colorReset {
		t.Errorf("ColorizeHeader() = %q", got)
	}
}

func TestShouldColorize(t *testing.T) {
	tests := []struct {
		name     string
		mode     ColorMode
		writer   interface{}
		expected bool
	}{
		{
			name:     "ColorAlways - any writer",
			mode:     ColorAlways,
			writer:   &bytes.Buffer{},
			expected: true,
		},
		{
			name:     "ColorNever - any writer",
			mode:     ColorNever,
			writer:   os.Stdout,
			expected: false,
		},
		{
			name:     "ColorAuto - non-file writer",
			mode:     ColorAuto,
			writer:   &bytes.Buffer{},
			expected: false,
		},
		{
			name:     "ColorAuto - file writer (stdout)",
			mode:     ColorAuto,
			writer:   os.Stdout,
			expected: isTerminal(os.Stdout), // Depends on test environment
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldColorize(tt.mode, tt.writer)
			if result != tt.expected {
				t.Errorf("shouldColorize() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestParseColorMode(t *testing.T) {
	tests := map[string]ColorMode{
		"always": ColorAlways,
		"never":  ColorNever,
		"auto":   ColorAuto,
		"":       ColorAuto,
		"bogus":  ColorAuto,
	}
	for in, want := range tests {
		if got := ParseColorMode(in); got != want {
			t.Errorf("ParseColorMode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestANSIColorCodes(t *testing.T) {
	codes := []struct {
		name  string
		value string
	}{
		{"reset", colorReset},
		{"red", colorRed},
		{"yellow", colorYellow},
		{"green", colorGreen},
		{"bold", colorBold},
	}

	for _, code := range codes {
		t.Run(code.name, func(t *testing.T) {
			if !strings.HasPrefix(code.value, "\033[") {
				t.Errorf("Color code %q should start with ANSI escape sequence", code.name)
			}
			if !strings.HasSuffix(code.value, "m") {
				t.Errorf("Color code %q should end with 'm'", code.name)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	// Value depends on the environment; only check it doesn't panic.
	t.Logf("os.Stdout isTerminal: %v", isTerminal(os.Stdout))
	t.Logf("os.Stderr isTerminal: %v", isTerminal(os.Stderr))
}
