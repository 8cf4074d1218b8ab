// Package store persists medical records and consultations.
//
// Two Repository implementations exist: Postgres for deployments and Memory
// for tests and single-process runs without a database.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/bimmerbailey/drai/internal/record"
)

var (
	// ErrNotFound is returned when a record or consultation does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when a unique key (id or nfc_id) is taken.
	ErrConflict = errors.New("store: conflict")
)

// Repository is the persistence contract used by the consultation service.
// Implementations must be safe for concurrent use.
type Repository interface {
	// CreateRecord inserts rec. It returns ErrConflict if rec.ID or
	// rec.NFCID is already used.
	CreateRecord(ctx context.Context, rec *record.MedicalRecord) error

	// RecordByNFCID returns the record whose NFC ID is nfcID.
	RecordByNFCID(ctx context.Context, nfcID string) (*record.MedicalRecord, error)

	// CreateConsultation inserts c. It returns ErrNotFound if the
	// referenced record does not exist.
	CreateConsultation(ctx context.Context, c *record.Consultation) error

	// Consultation returns the consultation with the given id.
	Consultation(ctx context.Context, id uuid.UUID) (*record.Consultation, error)

	// ConsultationsByRecord lists a record's consultations, newest first.
	ConsultationsByRecord(ctx context.Context, recordID uuid.UUID) ([]record.Consultation, error)

	Ping(ctx context.Context) error
	Close() error
}
