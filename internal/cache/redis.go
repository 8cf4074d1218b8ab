package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bimmerbailey/drai/internal/record"
)

const keyPrefix = "drai:record:"

// Redis stores records as JSON with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ RecordCache = (*Redis)(nil)

// Options configures NewRedis.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, opts Options) (*Redis, error) {
	if opts.TTL <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: opts.TTL}, nil
}

// Key returns the Redis key for nfcID.
func Key(nfcID string) string {
	return keyPrefix + nfcID
}

func (r *Redis) Get(ctx context.Context, nfcID string) (*record.MedicalRecord, error) {
	data, err := r.client.Get(ctx, Key(nfcID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var rec record.MedicalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding cached record: %w", err)
	}
	return &rec, nil
}

func (r *Redis) Set(ctx context.Context, rec *record.MedicalRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := r.client.Set(ctx, Key(rec.NFCID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, nfcID string) error {
	if err := r.client.Del(ctx, Key(nfcID)).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
