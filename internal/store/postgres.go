package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/bimmerbailey/drai/internal/record"
)

const (
	recordsTable       = "medical_records"
	consultationsTable = "consultations"

	// Postgres SQLSTATE codes.
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var recordColumns = []interface{}{
	"id", "nfc_id", "full_name", "date_of_birth", "blood_type", "allergies",
	"chronic_conditions", "medications", "medical_history", "created_at", "updated_at",
}

var consultationColumns = []interface{}{
	"id", "medical_record_id", "question", "diagnosis", "treatment_plan",
	"diagnosis_code", "parse_tier", "created_at",
}

// Postgres is a Repository backed by PostgreSQL.
type Postgres struct {
	db     *sql.DB
	qb     *goqu.Database
	logger *slog.Logger
}

var _ Repository = (*Postgres)(nil)

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		db:     db,
		qb:     goqu.New("postgres", db),
		logger: logger,
	}
}

// Open connects to dsn and pings it with exponential backoff until ctx is
// done or maxWait elapses.
func Open(ctx context.Context, dsn string, maxOpenConns int, maxWait time.Duration, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	ping := func() error { return db.PingContext(ctx) }
	notify := func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	logger.Info("connected to database")
	return NewPostgres(db, logger), nil
}

func (p *Postgres) CreateRecord(ctx context.Context, rec *record.MedicalRecord) error {
	history, err := json.Marshal(rec.MedicalHistory)
	if err != nil {
		return fmt.Errorf("encoding medical history: %w", err)
	}

	row := goqu.Record{
		"id":                 rec.ID.String(),
		"nfc_id":             rec.NFCID,
		"full_name":          rec.FullName,
		"date_of_birth":      nullDate(rec.DateOfBirth),
		"blood_type":         rec.BloodType,
		"allergies":          rec.Allergies,
		"chronic_conditions": rec.ChronicConditions,
		"medications":        rec.Medications,
		"medical_history":    string(history),
		"created_at":         rec.CreatedAt,
		"updated_at":         rec.UpdatedAt,
	}

	query, args, err := p.qb.Insert(recordsTable).Rows(row).ToSQL()
	if err != nil {
		return fmt.Errorf("building record insert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "inserting record")
	}
	return nil
}

func (p *Postgres) RecordByNFCID(ctx context.Context, nfcID string) (*record.MedicalRecord, error) {
	query, args, err := p.qb.Select(recordColumns...).From(recordsTable).
		Where(goqu.Ex{"nfc_id": nfcID}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building record query: %w", err)
	}

	var (
		rec     record.MedicalRecord
		dob     sql.NullTime
		history []byte
	)
	err = p.db.QueryRowContext(ctx, query, args...).Scan(
		&rec.ID, &rec.NFCID, &rec.FullName, &dob, &rec.BloodType, &rec.Allergies,
		&rec.ChronicConditions, &rec.Medications, &history, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, "querying record")
	}

	if dob.Valid {
		rec.DateOfBirth = record.NewDate(dob.Time.Year(), dob.Time.Month(), dob.Time.Day())
	}
	if err := json.Unmarshal(history, &rec.MedicalHistory); err != nil {
		return nil, fmt.Errorf("decoding medical history: %w", err)
	}
	return &rec, nil
}

func (p *Postgres) CreateConsultation(ctx context.Context, c *record.Consultation) error {
	row := goqu.Record{
		"id":                c.ID.String(),
		"medical_record_id": c.MedicalRecordID.String(),
		"question":          c.Question,
		"diagnosis":         c.Diagnosis,
		"treatment_plan":    c.TreatmentPlan,
		"diagnosis_code":    c.DiagnosisCode,
		"parse_tier":        c.ParseTier,
		"created_at":        c.CreatedAt,
	}

	query, args, err := p.qb.Insert(consultationsTable).Rows(row).ToSQL()
	if err != nil {
		return fmt.Errorf("building consultation insert: %w", err)
	}
	if _, err := p.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "inserting consultation")
	}
	return nil
}

func (p *Postgres) Consultation(ctx context.Context, id uuid.UUID) (*record.Consultation, error) {
	query, args, err := p.qb.Select(consultationColumns...).From(consultationsTable).
		Where(goqu.Ex{"id": id.String()}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building consultation query: %w", err)
	}

	c, err := scanConsultation(p.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "querying consultation")
	}
	return c, nil
}

func (p *Postgres) ConsultationsByRecord(ctx context.Context, recordID uuid.UUID) ([]record.Consultation, error) {
	query, args, err := p.qb.Select(consultationColumns...).From(consultationsTable).
		Where(goqu.Ex{"medical_record_id": recordID.String()}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building consultations query: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "listing consultations")
	}
	defer rows.Close()

	var out []record.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning consultation: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing consultations: %w", err)
	}
	return out, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanConsultation(s scanner) (*record.Consultation, error) {
	var c record.Consultation
	err := s.Scan(&c.ID, &c.MedicalRecordID, &c.Question, &c.Diagnosis,
		&c.TreatmentPlan, &c.DiagnosisCode, &c.ParseTier, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func nullDate(d record.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsZero()}
}

// translate maps driver errors onto ErrNotFound and ErrConflict.
func translate(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
