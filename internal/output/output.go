// Package output renders parse results and consultations for the CLI in
// text, JSON, or table form.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bimmerbailey/drai/internal/parser"
	"github.com/bimmerbailey/drai/internal/prompt"
	"github.com/bimmerbailey/drai/internal/record"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  bool
}

// New creates a new output Writer. Colour is decided once from mode and w.
func New(w io.Writer, format Format, mode ColorMode) *Writer {
	return &Writer{w: w, format: format, color: shouldColorize(mode, w)}
}

// resultView is the JSON shape of a parse result. Tier is shown here,
// unlike the API payload.
type resultView struct {
	Diagnosis     string `json:"diagnosis"`
	TreatmentPlan string `json:"treatment_plan"`
	DiagnosisCode string `json:"diagnosis_code,omitempty"`
	Tier          string `json:"tier"`
}

// WriteResult outputs a single parse result in the configured format.
func (wr *Writer) WriteResult(res parser.Result) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(resultView{
			Diagnosis:     res.Diagnosis,
			TreatmentPlan: res.TreatmentPlan,
			DiagnosisCode: res.DiagnosisCode,
			Tier:          res.Tier.String(),
		})
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tVALUE")
		fmt.Fprintln(tw, "-----\t-----")
		fmt.Fprintf(tw, "tier\t%s\n", wr.tier(res.Tier))
		fmt.Fprintf(tw, "code\t%s\n", res.DiagnosisCode)
		fmt.Fprintf(tw, "diagnosis\t%s\n", truncate(res.Diagnosis, 80))
		fmt.Fprintf(tw, "treatment\t%s\n", truncate(res.TreatmentPlan, 80))
		return tw.Flush()
	default:
		return wr.writeSections(res.Diagnosis, res.TreatmentPlan, res.DiagnosisCode, res.Tier)
	}
}

// WriteConsultation outputs one stored consultation.
func (wr *Writer) WriteConsultation(c record.Consultation) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(c)
	case FormatTable:
		return wr.WriteConsultations([]record.Consultation{c})
	default:
		fmt.Fprintf(wr.w, "Q: %s\n\n", c.Question)
		return wr.writeSections(c.Diagnosis, c.TreatmentPlan, c.DiagnosisCode, tierFromName(c.ParseTier))
	}
}

// WriteConsultations outputs a list of consultations.
func (wr *Writer) WriteConsultations(list []record.Consultation) error {
	switch wr.format {
	case FormatJSON:
		if list == nil {
			list = []record.Consultation{}
		}
		return wr.WriteJSON(list)
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tTIER\tCODE\tQUESTION")
		fmt.Fprintln(tw, "-------\t----\t----\t--------")
		for _, c := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				c.CreatedAt.UTC().Format(time.DateTime),
				wr.tier(tierFromName(c.ParseTier)),
				c.DiagnosisCode,
				truncate(c.Question, 60))
		}
		return tw.Flush()
	default:
		for i, c := range list {
			if i > 0 {
				fmt.Fprintln(wr.w, strings.Repeat("-", 40))
			}
			if err := wr.WriteConsultation(c); err != nil {
				return err
			}
		}
		return nil
	}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (wr *Writer) writeSections(diagnosis, treatment, code string, tier parser.Tier) error {
	fmt.Fprintln(wr.w, wr.header(prompt.DiagnosisHeader))
	fmt.Fprintln(wr.w, diagnosis)
	if code != "" {
		fmt.Fprintf(wr.w, "ICD-11: %s\n", code)
	}
	fmt.Fprintln(wr.w)
	fmt.Fprintln(wr.w, wr.header(prompt.TreatmentHeader))
	fmt.Fprintln(wr.w, treatment)
	fmt.Fprintln(wr.w)
	_, err := fmt.Fprintf(wr.w, "parsed: %s\n", wr.tier(tier))
	return err
}

func (wr *Writer) header(s string) string {
	if wr.color {
		return ColorizeHeader(s)
	}
	return s
}

func (wr *Writer) tier(t parser.Tier) string {
	if wr.color {
		return ColorizeTier(t, t.String())
	}
	return t.String()
}

func tierFromName(name string) parser.Tier {
	for _, t := range []parser.Tier{parser.TierStrict, parser.TierHeuristic, parser.TierFallback} {
		if t.String() == name {
			return t
		}
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
