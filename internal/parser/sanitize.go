package parser

import (
	"regexp"
	"strings"

	"github.com/bimmerbailey/drai/internal/prompt"
)

var (
	placeholderRe     = regexp.MustCompile(`(?i)\[Your\s*(?:signature|name|credentials?)\]\s*`)
	capsLineRe        = regexp.MustCompile(`^[A-Z]+(?:[ \t]+[A-Z]+)*$`)
	bareHeaderRe      = regexp.MustCompile(`(?i)^(?:differential\s*)?(?:diagnosis|treatment\s*plan|management|recommendations|plan)\s*:?$`)
	diagnosisHeaderRe = regexp.MustCompile(`(?i)\b(?:differential\s*)?diagnosis\b(?:\s*:)?`)
	treatmentHeaderRe = regexp.MustCompile(`(?i)\btreatment\s*plan\b(?:\s*:)?`)
)

// Document holds the views of a raw model response that the strategies
// read. It is built once per Parse call.
type Document struct {
	// Raw is the response exactly as the model returned it.
	Raw string

	// Cleaned has line endings normalized and placeholder artifacts and a
	// dangling all-caps last line removed.
	Cleaned string

	// Normalized is Cleaned with header variants rewritten to the canonical
	// "DIAGNOSIS:" and "TREATMENT PLAN:" forms.
	Normalized string
}

// NewDocument runs every sanitization rule over raw.
func NewDocument(raw string) Document {
	cleaned := StripTrailingCaps(StripPlaceholders(NormalizeNewlines(raw)))
	return Document{
		Raw:        raw,
		Cleaned:    cleaned,
		Normalized: NormalizeHeaders(cleaned),
	}
}

// Sanitize returns the fully normalized form of s. Sanitize(Sanitize(s))
// equals Sanitize(s).
func Sanitize(s string) string {
	return NewDocument(s).Normalized
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

// StripPlaceholders removes "[Your signature]", "[Your name]" and
// "[Your credentials]" along with any whitespace that follows them.
func StripPlaceholders(s string) string {
	return fixedPoint(s, func(in string) string {
		return placeholderRe.ReplaceAllString(in, "")
	})
}

// StripTrailingCaps removes a last line made only of upper-case words, such
// as a condition name the model left dangling after the treatment plan. The
// run must start its own line; "2. FLUIDS" or an inline "take ASPIRIN" are
// left alone.
//
// The line is kept when the line before it is upper-case or a section header,
// as in "TREATMENT PLAN:\nREST". At most one line is removed and the line that
// becomes last never qualifies, so a second pass changes nothing.
func StripTrailingCaps(s string) string {
	lines := strings.Split(s, "\n")
	last := lastNonBlank(lines, len(lines))
	if last < 0 || !capsLineRe.MatchString(strings.TrimSpace(lines[last])) {
		return s
	}
	prev := lastNonBlank(lines, last)
	if prev < 0 || opensSection(strings.TrimSpace(lines[prev])) {
		return s
	}
	return strings.Join(lines[:last], "\n")
}

// lastNonBlank returns the index of the last non-blank line before end, or -1.
func lastNonBlank(lines []string, end int) int {
	for i := end - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return -1
}

// opensSection reports whether a trailing caps line after line belongs to it:
// line is all upper-case (a header or a caps list item) or a bare header word.
func opensSection(line string) bool {
	if strings.ToUpper(line) == line && strings.ToLower(line) != line {
		return true
	}
	return bareHeaderRe.MatchString(line)
}

// NormalizeHeaders rewrites "diagnosis", "Differential Diagnosis:" and
// similar variants to DIAGNOSIS:, and "treatment plan" variants to
// TREATMENT PLAN:.
func NormalizeHeaders(s string) string {
	s = diagnosisHeaderRe.ReplaceAllLiteralString(s, prompt.DiagnosisHeader)
	return treatmentHeaderRe.ReplaceAllLiteralString(s, prompt.TreatmentHeader)
}

// fixedPoint applies fn until the text stops changing. Every rule passed here
// only ever shortens its input, so the loop terminates.
func fixedPoint(s string, fn func(string) string) string {
	for {
		next := fn(s)
		if next == s {
			return s
		}
		s = next
	}
}
