package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bimmerbailey/drai/internal/prompt"
)

// ErrNoMatch is wrapped by every strategy rejection. The wrapped message
// names the precondition that failed.
var ErrNoMatch = errors.New("strategy did not match")

// FallbackTreatment is the treatment plan of a fallback result. Callers can
// compare against it to detect degraded parsing.
const FallbackTreatment = "See diagnosis section for complete clinical assessment"

// EmptyDiagnosis is the diagnosis of a fallback result whose response held no
// text at all.
const EmptyDiagnosis = "No clinical assessment was returned by the model."

var (
	preambleRe = regexp.MustCompile(`(?i)thank you for providing the patient['’]s details\.?`)
	icdCodeRe  = regexp.MustCompile(`(?i)\bICD-11\s*:\s*([A-Z0-9][A-Z0-9.]*)`)

	// sectionEndRe finds the next all-caps header ("FOLLOW UP:", "NOTES:")
	// that ends a heuristic section. It must open a line, so an inline
	// "MDI:" inside a dosing note does not end the section.
	sectionEndRe = regexp.MustCompile(`\n[ \t]*[A-Z]{2,}(?:[ \t]+[A-Z]{2,})*:`)
)

// treatmentHeaders is the heuristic header vocabulary, in priority order.
var treatmentHeaders = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btreatment\s+plan\s*:`),
	regexp.MustCompile(`(?i)\bmanagement\s*:`),
	regexp.MustCompile(`(?i)\brecommendations\s*:`),
	regexp.MustCompile(`(?i)\bplan\s*:`),
}

// Strategy is one stage of the parsing pipeline.
type Strategy interface {
	// Tier identifies the stage to observers and in results.
	Tier() Tier

	// TryParse returns a result with a non-empty diagnosis and treatment
	// plan, or an error wrapping ErrNoMatch.
	TryParse(doc Document) (Result, error)
}

// StrictStrategy splits the normalized text on exactly one DIAGNOSIS: header
// followed by a TREATMENT PLAN: header.
type StrictStrategy struct{}

// Tier implements Strategy.
func (StrictStrategy) Tier() Tier { return TierStrict }

// TryParse implements Strategy.
func (StrictStrategy) TryParse(doc Document) (Result, error) {
	text := doc.Normalized

	if n := strings.Count(text, prompt.DiagnosisHeader); n != 1 {
		return Result{}, fmt.Errorf("%w: found %d %s headers, want 1", ErrNoMatch, n, prompt.DiagnosisHeader)
	}
	treatIdx := strings.Index(text, prompt.TreatmentHeader)
	if treatIdx < 0 {
		return Result{}, fmt.Errorf("%w: no %s header", ErrNoMatch, prompt.TreatmentHeader)
	}
	diagIdx := strings.Index(text, prompt.DiagnosisHeader)
	if diagIdx > treatIdx {
		return Result{}, fmt.Errorf("%w: %s precedes %s", ErrNoMatch, prompt.TreatmentHeader, prompt.DiagnosisHeader)
	}

	diagnosis := StripPreamble(text[diagIdx+len(prompt.DiagnosisHeader) : treatIdx])
	treatment := strings.TrimSpace(text[treatIdx+len(prompt.TreatmentHeader):])
	if diagnosis == "" {
		return Result{}, fmt.Errorf("%w: empty diagnosis section", ErrNoMatch)
	}
	if treatment == "" {
		return Result{}, fmt.Errorf("%w: empty treatment section", ErrNoMatch)
	}

	return Result{Diagnosis: diagnosis, TreatmentPlan: treatment}, nil
}

// HeuristicStrategy looks for a treatment-like section under alternative
// header names and treats the rest of the text as the diagnosis.
type HeuristicStrategy struct{}

// Tier implements Strategy.
func (HeuristicStrategy) Tier() Tier { return TierHeuristic }

// TryParse implements Strategy.
func (HeuristicStrategy) TryParse(doc Document) (Result, error) {
	text := doc.Cleaned

	for _, header := range treatmentHeaders {
		loc := header.FindStringIndex(text)
		if loc == nil {
			continue
		}

		start, bodyStart := loc[0], loc[1]
		end := len(text)
		if next := sectionEndRe.FindStringIndex(text[bodyStart:]); next != nil {
			end = bodyStart + next[0]
		}

		treatment := strings.TrimSpace(text[bodyStart:end])
		if treatment == "" {
			continue
		}

		diagnosis := strings.TrimSpace(text[:start] + text[end:])
		if diagnosis == "" {
			diagnosis = strings.TrimSpace(text)
		}
		return Result{Diagnosis: diagnosis, TreatmentPlan: treatment}, nil
	}

	return Result{}, fmt.Errorf("%w: no treatment-like section", ErrNoMatch)
}

// fallbackStrategy keeps the whole cleaned text as the diagnosis. It always
// succeeds and is not part of the configurable chain.
type fallbackStrategy struct{}

func (fallbackStrategy) Tier() Tier { return TierFallback }

func (fallbackStrategy) TryParse(doc Document) (Result, error) {
	diagnosis := strings.TrimSpace(doc.Cleaned)
	if diagnosis == "" {
		diagnosis = EmptyDiagnosis
	}
	return Result{Diagnosis: diagnosis, TreatmentPlan: FallbackTreatment}, nil
}

// StripPreamble removes the "Thank you for providing the patient's details."
// filler the model likes to open with, and trims the result.
func StripPreamble(s string) string {
	return strings.TrimSpace(preambleRe.ReplaceAllLiteralString(s, ""))
}

// ExtractICDCode returns the upper-cased code following the first "ICD-11:"
// in s, or "".
func ExtractICDCode(s string) string {
	m := icdCodeRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimRight(m[1], "."))
}
