package output

import (
	"os"

	"golang.org/x/term"

	"github.com/bimmerbailey/drai/internal/parser"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBold   = "\033[1m"
)

// ColorMode determines when to use colored output.
type ColorMode int

const (
	ColorAuto   ColorMode = iota // Auto-detect based on TTY
	ColorAlways                  // Always use colors
	ColorNever                   // Never use colors
)

// ParseColorMode maps "always" and "never"; anything else is ColorAuto.
func ParseColorMode(s string) ColorMode {
	switch s {
	case "always":
		return ColorAlways
	case "never":
		return ColorNever
	default:
		return ColorAuto
	}
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// shouldColorize determines if output should be colorized based on mode and TTY detection.
func shouldColorize(mode ColorMode, w interface{}) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	case ColorAuto:
		if f, ok := w.(*os.File); ok {
			return isTerminal(f)
		}
		return false
	}
	return false
}

// ColorizeTier colours text by how much the parser had to degrade:
// green for strict, yellow for heuristic, red for fallback.
func ColorizeTier(tier parser.Tier, text string) string {
	switch tier {
	case parser.TierStrict:
		return colorGreen + text + colorReset
	case parser.TierHeuristic:
		return colorYellow + text + colorReset
	case parser.TierFallback:
		return colorRed + text + colorReset
	default:
		return text
	}
}

// ColorizeHeader renders a section header in bold.
func ColorizeHeader(text string) string {
	return colorBold + text + colorReset
}
