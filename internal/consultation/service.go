// Package consultation ties the record store, the prompt builder, the model
// provider and the response parser together. It is the only caller of the
// parser in the server.
package consultation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bimmerbailey/drai/internal/cache"
	"github.com/bimmerbailey/drai/internal/llm"
	"github.com/bimmerbailey/drai/internal/parser"
	"github.com/bimmerbailey/drai/internal/prompt"
	"github.com/bimmerbailey/drai/internal/record"
	"github.com/bimmerbailey/drai/internal/redact"
	"github.com/bimmerbailey/drai/internal/store"
)

// maxNFCAttempts bounds NFC ID regeneration when the store reports a clash.
const maxNFCAttempts = 5

// ErrEmptyQuestion is returned by Consult when the question is blank.
var ErrEmptyQuestion = errors.New("consultation: question is required")

// Config holds the service settings taken from the process configuration.
type Config struct {
	// PublicBaseURL prefixes the nfc_url of public records.
	PublicBaseURL string

	// DegradedRetries is how many extra model calls Consult makes when the
	// parse only reaches the fallback tier.
	DegradedRetries int

	// Timeout bounds a single model call. Zero means no extra bound.
	Timeout time.Duration

	ChatOptions *llm.ChatOptions
}

// PublicRecord is a medical record as served to NFC readers.
type PublicRecord struct {
	record.MedicalRecord
	NFCURL string `json:"nfc_url"`
}

// Health reports the state of the service's dependencies.
type Health struct {
	Status         string `json:"status"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	ModelAvailable bool   `json:"model_available"`
	Database       string `json:"database"`
}

// Healthy reports whether every dependency is usable.
func (h Health) Healthy() bool { return h.Status == "ok" }

// Service implements record and consultation use cases.
type Service struct {
	repo     store.Repository
	cache    cache.RecordCache
	provider llm.Provider
	parser   *parser.Parser
	redactor *redact.Redactor
	cfg      Config
	logger   *slog.Logger

	now      func() time.Time
	newNFCID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithParser replaces the default parser.
func WithParser(p *parser.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithRedactor sets the redactor applied to patient text in debug logs.
func WithRedactor(r *redact.Redactor) Option {
	return func(s *Service) { s.redactor = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNFCGenerator overrides record.NewNFCID.
func WithNFCGenerator(gen func() string) Option {
	return func(s *Service) { s.newNFCID = gen }
}

// New creates a Service. A nil cache disables caching.
func New(repo store.Repository, c cache.RecordCache, provider llm.Provider, cfg Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository cannot be nil")
	}
	if provider == nil {
		return nil, errors.New("provider cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.DegradedRetries < 0 {
		return nil, fmt.Errorf("degraded retries must be >= 0, got %d", cfg.DegradedRetries)
	}
	if c == nil {
		c = cache.Nop{}
	}

	s := &Service{
		repo:     repo,
		cache:    c,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		newNFCID: record.NewNFCID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = parser.New(parser.WithObserver(parser.LogObserver(logger)))
	}
	if s.redactor == nil {
		s.redactor = redact.New(true, nil)
	}
	return s, nil
}

// CreateRecord validates rec, assigns its ID and NFC ID, and stores it.
// Caller-supplied ID, NFC ID and timestamps are ignored.
func (s *Service) CreateRecord(ctx context.Context, rec record.MedicalRecord) (*PublicRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec.ID = uuid.New()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	var err error
	for attempt := 1; attempt <= maxNFCAttempts; attempt++ {
		rec.NFCID = s.newNFCID()
		err = s.repo.CreateRecord(ctx, &rec)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		s.logger.Warn("nfc id collision, regenerating", "attempt", attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}

	s.logger.Info("record created", "record_id", rec.ID, "nfc_id", rec.NFCID)
	if err := s.cache.Set(ctx, &rec); err != nil {
		s.logger.Warn("caching new record failed", "nfc_id", rec.NFCID, "error", err)
	}
	return s.public(&rec), nil
}

// PublicRecord returns the record with the given NFC ID.
func (s *Service) PublicRecord(ctx context.Context, nfcID string) (*PublicRecord, error) {
	rec, err := s.lookup(ctx, nfcID)
	if err != nil {
		return nil, err
	}
	return s.public(rec), nil
}

// Consult answers question for the record with the given NFC ID and stores
// the result. A blank question fails with ErrEmptyQuestion before anything
// else happens. Provider errors are wrapped and still match the llm
// sentinels.
func (s *Service) Consult(ctx context.Context, nfcID, question string) (*record.Consultation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	rec, err := s.lookup(ctx, nfcID)
	if err != nil {
		return nil, err
	}

	res, err := s.Ask(ctx, rec.PatientContext(), question)
	if err != nil {
		return nil, err
	}

	c := &record.Consultation{
		ID:              uuid.New(),
		MedicalRecordID: rec.ID,
		Question:        question,
		Diagnosis:       res.Diagnosis,
		TreatmentPlan:   res.TreatmentPlan,
		DiagnosisCode:   res.DiagnosisCode,
		ParseTier:       res.Tier.String(),
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateConsultation(ctx, c); err != nil {
		return nil, fmt.Errorf("saving consultation: %w", err)
	}

	s.logger.Info("consultation stored",
		"consultation_id", c.ID,
		"nfc_id", rec.NFCID,
		"tier", c.ParseTier,
		"diagnosis_code", c.DiagnosisCode)
	return c, nil
}

// Ask builds the prompt for pc and question, calls the model and parses the
// answer. When the parse only reaches the fallback tier the model is asked
// again, up to DegradedRetries times; the first non-degraded result wins,
// otherwise the last one is returned. Nothing is stored.
func (s *Service) Ask(ctx context.Context, pc record.PatientContext, question string) (parser.Result, error) {
	messages := prompt.Messages(pc, question)
	s.debugText("prompt built", messages[len(messages)-1].Content, pc)

	var res parser.Result
	for attempt := 0; attempt <= s.cfg.DegradedRetries; attempt++ {
		raw, err := s.chat(ctx, messages)
		if err != nil {
			return parser.Result{}, err
		}
		s.debugText("model answered", raw, pc)

		res = s.parser.Parse(raw)
		if !res.Tier.Degraded() {
			return res, nil
		}
		s.logger.Warn("model output unstructured", "attempt", attempt+1, "max_attempts", s.cfg.DegradedRetries+1)
	}
	return res, nil
}

// AskStream is Ask with a single model call whose output is passed to
// onChunk as it arrives.
func (s *Service) AskStream(ctx context.Context, pc record.PatientContext, question string, onChunk func(string)) (parser.Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	events, err := s.provider.ChatStream(ctx, prompt.Messages(pc, question), s.cfg.ChatOptions)
	if err != nil {
		return parser.Result{}, fmt.Errorf("consulting model: %w", err)
	}

	var sb strings.Builder
	for ev := range events {
		if ev.Error != nil {
			return parser.Result{}, fmt.Errorf("consulting model: %w", ev.Error)
		}
		sb.WriteString(ev.Content)
		if onChunk != nil && ev.Content != "" {
			onChunk(ev.Content)
		}
	}
	return s.parser.Parse(sb.String()), nil
}

// Consultation returns a stored consultation.
func (s *Service) Consultation(ctx context.Context, id uuid.UUID) (*record.Consultation, error) {
	return s.repo.Consultation(ctx, id)
}

// Consultations lists the consultations of a record, newest first.
func (s *Service) Consultations(ctx context.Context, nfcID string) ([]record.Consultation, error) {
	rec, err := s.lookup(ctx, nfcID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ConsultationsByRecord(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []record.Consultation{}
	}
	return list, nil
}

// Health checks the provider, the configured model and the database.
func (s *Service) Health(ctx context.Context) Health {
	model := s.provider.Model()
	if s.cfg.ChatOptions != nil && s.cfg.ChatOptions.Model != "" {
		model = s.cfg.ChatOptions.Model
	}
	h := Health{Status: "ok", Provider: "ok", Model: model, Database: "ok"}

	if err := s.provider.Heartbeat(ctx); err != nil {
		s.logger.Warn("provider heartbeat failed", "error", err)
		h.Status, h.Provider = "degraded", "unreachable"
	} else if ok, err := s.provider.ModelAvailable(ctx, model); err != nil || !ok {
		h.Status = "degraded"
	} else {
		h.ModelAvailable = true
	}

	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Warn("database ping failed", "error", err)
		h.Status, h.Database = "degraded", "unreachable"
	}
	return h
}

func (s *Service) chat(ctx context.Context, messages []llm.Message) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := s.now()
	resp, err := s.provider.Chat(ctx, messages, s.cfg.ChatOptions)
	if err != nil {
		return "", fmt.Errorf("consulting model: %w", err)
	}
	s.logger.Debug("model call finished",
		"model", resp.Model,
		"tokens_total", resp.TokensTotal,
		"elapsed", s.now().Sub(start))
	return resp.Content, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// lookup finds a record by NFC ID, trying the cache first. Malformed IDs
// are reported as store.ErrNotFound.
func (s *Service) lookup(ctx context.Context, nfcID string) (*record.MedicalRecord, error) {
	id, err := record.NormalizeNFCID(nfcID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	rec, err := s.cache.Get(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("record cache read failed", "nfc_id", id, "error", err)
	}

	rec, err = s.repo.RecordByNFCID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, rec); err != nil {
		s.logger.Warn("record cache write failed", "nfc_id", id, "error", err)
	}
	return rec, nil
}

func (s *Service) public(rec *record.MedicalRecord) *PublicRecord {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return &PublicRecord{
		MedicalRecord: *rec,
		NFCURL:        base + "/record/" + rec.NFCID,
	}
}

// debugText logs patient-bearing text with identifiers redacted.
func (s *Service) debugText(msg, text string, pc record.PatientContext) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	s.logger.Debug(msg, "text", s.redactor.Redact(text, pc.FullName))
}
