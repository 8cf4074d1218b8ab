package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bimmerbailey/drai/internal/record"
)

// Memory is a Repository backed by maps. Values are copied on the way in
// and out so callers never share state with the store.
type Memory struct {
	mu            sync.RWMutex
	records       map[uuid.UUID]record.MedicalRecord
	byNFC         map[string]uuid.UUID
	consultations map[uuid.UUID]record.Consultation
}

var _ Repository = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		records:       make(map[uuid.UUID]record.MedicalRecord),
		byNFC:         make(map[string]uuid.UUID),
		consultations: make(map[uuid.UUID]record.Consultation),
	}
}

func (m *Memory) CreateRecord(_ context.Context, rec *record.MedicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return ErrConflict
	}
	if _, ok := m.byNFC[rec.NFCID]; ok {
		return ErrConflict
	}

	stored := *rec
	stored.MedicalHistory = append(record.MedicalHistory(nil), rec.MedicalHistory...)
	m.records[rec.ID] = stored
	m.byNFC[rec.NFCID] = rec.ID
	return nil
}

func (m *Memory) RecordByNFCID(_ context.Context, nfcID string) (*record.MedicalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byNFC[nfcID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.records[id]
	rec.MedicalHistory = append(record.MedicalHistory(nil), rec.MedicalHistory...)
	return &rec, nil
}

func (m *Memory) CreateConsultation(_ context.Context, c *record.Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[c.MedicalRecordID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.consultations[c.ID]; ok {
		return ErrConflict
	}
	m.consultations[c.ID] = *c
	return nil
}

func (m *Memory) Consultation(_ context.Context, id uuid.UUID) (*record.Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.consultations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ConsultationsByRecord(_ context.Context, recordID uuid.UUID) ([]record.Consultation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []record.Consultation
	for _, c := range m.consultations {
		if c.MedicalRecordID == recordID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
