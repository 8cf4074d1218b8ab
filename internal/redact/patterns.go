package redact

import "regexp"

// Pattern is a built-in detector for one kind of sensitive value.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Type  string // placeholder prefix: [EMAIL:hash], [PHONE:hash], ...
}

var (
	// user@example.com
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// 555-123-4567, (555) 123-4567, +1 555 123 4567
	phoneRegex = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{3}\)|\b\d{3})[\s.-]?\d{3}[\s.-]?\d{4}\b`)

	// 1985-03-14, 03/14/1985, 14.03.1985
	dateRegex = regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}[/.]\d{1,2}[/.]\d{4})\b`)

	// 123-45-6789
	ssnRegex = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	ipv4Regex = regexp.MustCompile(`\b(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)
)

// BuiltInPatterns maps configuration names to patterns.
var BuiltInPatterns = map[string]Pattern{
	"email": {Name: "email", Regex: emailRegex, Type: "EMAIL"},
	"phone": {Name: "phone", Regex: phoneRegex, Type: "PHONE"},
	"date":  {Name: "date", Regex: dateRegex, Type: "DATE"},
	"ssn":   {Name: "ssn", Regex: ssnRegex, Type: "SSN"},
	"ipv4":  {Name: "ipv4", Regex: ipv4Regex, Type: "IPV4"},
}

// DefaultPatterns returns the pattern names enabled when none are configured.
func DefaultPatterns() []string {
	return []string{"email", "ssn", "phone", "date", "ipv4"}
}

// applyOrder fixes the order in which patterns run. SSNs must be replaced
// before phone numbers, and dates before IPv4 addresses.
var applyOrder = []string{"email", "ssn", "phone", "date", "ipv4"}

// GetPatterns returns the patterns matching names in application order.
// Unknown names are ignored.
func GetPatterns(names []string) []Pattern {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	patterns := make([]Pattern, 0, len(names))
	for _, n := range applyOrder {
		if want[n] {
			patterns = append(patterns, BuiltInPatterns[n])
		}
	}
	return patterns
}
