// Package record defines the medical record and consultation types shared
// by the prompt builder, the persistence layer and the HTTP surface.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the layout used for dates of birth on the wire and in prompts.
const DateLayout = "2006-01-02"

// ErrInvalidRecord is returned by [MedicalRecord.Validate].
var ErrInvalidRecord = errors.New("record: invalid medical record")

// bloodTypes lists the accepted blood type values. Empty is also accepted.
var bloodTypes = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
	"O+": true, "O-": true,
	"Unknown": true,
}

// MedicalRecord is a patient's stored record. It is reachable without
// authentication through its NFC ID.
type MedicalRecord struct {
	ID                uuid.UUID      `json:"id"`
	NFCID             string         `json:"nfc_id"`
	FullName          string         `json:"full_name"`
	DateOfBirth       Date           `json:"date_of_birth"`
	BloodType         string         `json:"blood_type,omitempty"`
	Allergies         string         `json:"allergies,omitempty"`
	ChronicConditions string         `json:"chronic_conditions,omitempty"`
	Medications       string         `json:"medications,omitempty"`
	MedicalHistory    MedicalHistory `json:"medical_history"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Validate checks the fields a caller is allowed to supply.
func (r *MedicalRecord) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidRecord)
	}
	if r.BloodType != "" && !bloodTypes[r.BloodType] {
		return fmt.Errorf("%w: unknown blood type %q", ErrInvalidRecord, r.BloodType)
	}
	return nil
}

// PatientContext returns the read-only view of r consumed by the prompt builder.
func (r *MedicalRecord) PatientContext() PatientContext {
	return PatientContext{
		FullName:          r.FullName,
		DateOfBirth:       r.DateOfBirth.String(),
		BloodType:         r.BloodType,
		Allergies:         r.Allergies,
		ChronicConditions: r.ChronicConditions,
		Medications:       r.Medications,
		MedicalHistory:    append([]string(nil), r.MedicalHistory...),
	}
}

// PatientContext is the plain-text patient summary substituted into a prompt.
// Every field may be empty.
type PatientContext struct {
	FullName          string   `json:"full_name"`
	DateOfBirth       string   `json:"date_of_birth"`
	BloodType         string   `json:"blood_type"`
	Allergies         string   `json:"allergies"`
	ChronicConditions string   `json:"chronic_conditions"`
	Medications       string   `json:"medications"`
	MedicalHistory    []string `json:"medical_history"`
}

// Consultation is a persisted question/answer pair for a medical record.
type Consultation struct {
	ID              uuid.UUID `json:"id"`
	MedicalRecordID uuid.UUID `json:"medical_record"`
	Question        string    `json:"question"`
	Diagnosis       string    `json:"diagnosis"`
	TreatmentPlan   string    `json:"treatment_plan"`
	DiagnosisCode   string    `json:"diagnosis_code,omitempty"`
	ParseTier       string    `json:"parse_tier"`
	CreatedAt       time.Time `json:"created_at"`
}

// MedicalHistory is an ordered list of history entries. On decode it also
// accepts a single newline-separated string, which older clients send.
type MedicalHistory []string

// UnmarshalJSON implements json.Unmarshaler.
func (h *MedicalHistory) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*h = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*h = compactHistory(list)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("medical_history must be a list or a string: %w", err)
	}
	*h = compactHistory(strings.Split(text, "\n"))
	return nil
}

// MarshalJSON implements json.Marshaler. A nil history encodes as [].
func (h MedicalHistory) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(h))
}

func compactHistory(entries []string) MedicalHistory {
	out := make(MedicalHistory, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Date is a calendar date without time of day, encoded as "2006-01-02".
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "2006-01-02" string. The empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// String returns the date formatted with [DateLayout], or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
