// Package cache holds public medical-record lookups keyed by NFC ID.
package cache

import (
	"context"
	"errors"

	"github.com/bimmerbailey/drai/internal/record"
)

// ErrMiss is returned by Get when no entry exists.
var ErrMiss = errors.New("cache: miss")

// RecordCache caches public record lookups. Implementations must be safe for
// concurrent use. A failing cache never blocks a lookup; callers log the
// error and fall through to the store.
type RecordCache interface {
	Get(ctx context.Context, nfcID string) (*record.MedicalRecord, error)
	Set(ctx context.Context, rec *record.MedicalRecord) error
	Invalidate(ctx context.Context, nfcID string) error
	Close() error
}

// Nop is a RecordCache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) (*record.MedicalRecord, error) { return nil, ErrMiss }
func (Nop) Set(context.Context, *record.MedicalRecord) error            { return nil }
func (Nop) Invalidate(context.Context, string) error                    { return nil }
func (Nop) Close() error                                                { return nil }
