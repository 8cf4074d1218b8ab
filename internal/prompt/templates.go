package prompt

import (
	"strings"
	"unicode"

	"github.com/bimmerbailey/drai/internal/llm"
	"github.com/bimmerbailey/drai/internal/record"
)

// consultationTemplate is the user-turn text. Placeholders are replaced in a
// single pass, so substituted values are never re-expanded.
const consultationTemplate = `**Medical Analysis Request**
Patient: {full_name} | DOB: {date_of_birth} | Blood: {blood_type}
**Critical Alerts**:
- Allergies: {allergies}
- Chronic Conditions: {chronic_conditions}
- Current Medications: {medications}

**Clinical History**:
{medical_history}

**Consultation Query**: {question}

**Required Output Format**:
DIAGNOSIS:
[Your clinical assessment including:
- Pathophysiology mechanism
- Diagnostic criteria met
- Differential diagnosis
- ICD-11 code]

TREATMENT PLAN:
[Your prescribed actions:
1. Primary pharmacotherapy (drug class, dose, frequency)
2. Adjuvant therapies
3. Lifestyle modifications
4. Monitoring parameters
5. Red flags requiring immediate attention]

**STRICT FORMAT REQUIREMENTS**:
- Start DIAGNOSIS section on new line
- Start TREATMENT PLAN section on new line after diagnosis
- Use EXACT section headers: "DIAGNOSIS:" and "TREATMENT PLAN:" in ALL CAPS
- Never include section headers in middle of sentences
- Do NOT include placeholders like [Your signature]
- Do NOT include your name or credentials
- Provide ONLY clinical content`

// Build returns the consultation prompt for pc and question.
//
// Build is pure: identical inputs give identical output. All eight fields are
// substituted textually; an empty field or question is inserted as an empty
// string.
func Build(pc record.PatientContext, question string) string {
	r := strings.NewReplacer(
		"{full_name}", clean(pc.FullName),
		"{date_of_birth}", clean(pc.DateOfBirth),
		"{blood_type}", clean(pc.BloodType),
		"{allergies}", clean(pc.Allergies),
		"{chronic_conditions}", clean(pc.ChronicConditions),
		"{medications}", clean(pc.Medications),
		"{medical_history}", formatHistory(pc.MedicalHistory),
		"{question}", clean(question),
	)
	return r.Replace(consultationTemplate)
}

// Messages returns Build's output as a user message preceded by the
// specialist system prompt.
func Messages(pc record.PatientContext, question string) []llm.Message {
	return []llm.Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: Build(pc, question)},
	}
}

// formatHistory renders history entries as a bulleted list, one per line.
func formatHistory(entries []string) string {
	var sb strings.Builder
	for _, e := range entries {
		e = clean(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(e)
	}
	return sb.String()
}

// clean drops control characters except newline and tab, and normalizes
// CRLF line endings.
func clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
