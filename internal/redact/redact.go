// Package redact replaces patient identifiers in text bound for debug logs.
//
// The same value always maps to the same placeholder, so a reader can still
// tell that two log lines mention the same email address or date without
// seeing it.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// literalType is the placeholder prefix for caller-supplied values such as
// the patient's name.
const literalType = "NAME"

// Redactor removes sensitive data while preserving correlation between
// identical values. It is safe for concurrent use.
type Redactor struct {
	enabled  bool
	patterns []Pattern

	mu      sync.RWMutex
	hashMap map[string]string // original value -> placeholder
}

// New creates a Redactor. If enabled is false, Redact returns text
// unchanged. An empty or entirely unknown pattern list selects
// DefaultPatterns.
func New(enabled bool, patternNames []string) *Redactor {
	patterns := GetPatterns(patternNames)
	if len(patterns) == 0 {
		patterns = GetPatterns(DefaultPatterns())
	}
	return &Redactor{
		enabled:  enabled,
		patterns: patterns,
		hashMap:  make(map[string]string),
	}
}

// Enabled reports whether redaction is active.
func (r *Redactor) Enabled() bool {
	return r != nil && r.enabled
}

// Redact replaces every literal and pattern match in text.
//
//	"Ada Lovelace, born 1985-03-14" -> "[NAME:5c1e], born [DATE:9b2a]"
//
// Literals are matched case-insensitively and longest first. Blank literals
// are ignored.
func (r *Redactor) Redact(text string, literals ...string) string {
	if !r.Enabled() {
		return text
	}

	result := r.redactLiterals(text, literals)
	for _, p := range r.patterns {
		result = p.Regex.ReplaceAllStringFunc(result, func(match string) string {
			return r.placeholder(match, p.Type)
		})
	}
	return result
}

func (r *Redactor) redactLiterals(text string, literals []string) string {
	alts := make([]string, 0, len(literals))
	for _, l := range literals {
		if l = strings.TrimSpace(l); l != "" {
			alts = append(alts, l)
		}
	}
	if len(alts) == 0 {
		return text
	}
	// Alternation is leftmost-first, so longer literals must come first.
	sort.Slice(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	for i, a := range alts {
		alts[i] = regexp.QuoteMeta(a)
	}

	re := regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return r.placeholder(strings.ToLower(match), literalType)
	})
}

// placeholder returns the stable placeholder for value.
func (r *Redactor) placeholder(value, typ string) string {
	r.mu.RLock()
	ph, ok := r.hashMap[value]
	r.mu.RUnlock()
	if ok {
		return ph
	}

	h := sha256.Sum256([]byte(value))
	ph = fmt.Sprintf("[%s:%s]", typ, hex.EncodeToString(h[:2]))

	r.mu.Lock()
	r.hashMap[value] = ph
	r.mu.Unlock()
	return ph
}

// Seen returns a copy of the value -> placeholder mappings made so far.
func (r *Redactor) Seen() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.hashMap))
	for k, v := range r.hashMap {
		out[k] = v
	}
	return out
}

// Reset forgets all mappings.
func (r *Redactor) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashMap = make(map[string]string)
}
