// Package api exposes medical records and consultations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bimmerbailey/drai/internal/consultation"
	"github.com/bimmerbailey/drai/internal/record"
)

// Service is the subset of consultation.Service the handlers use.
type Service interface {
	CreateRecord(ctx context.Context, rec record.MedicalRecord) (*consultation.PublicRecord, error)
	PublicRecord(ctx context.Context, nfcID string) (*consultation.PublicRecord, error)
	Consult(ctx context.Context, nfcID, question string) (*record.Consultation, error)
	Consultation(ctx context.Context, id uuid.UUID) (*record.Consultation, error)
	Consultations(ctx context.Context, nfcID string) ([]record.Consultation, error)
	Health(ctx context.Context) consultation.Health
}

// NewRouter returns the HTTP handler for the whole API. Trailing slashes
// on request paths are optional.
func NewRouter(svc Service, logger *slog.Logger) http.Handler {
	h := &Handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors)

	r.Get("/healthz", h.Health)
	r.Route("/api/medical", func(r chi.Router) {
		RegisterRoutes(r, h)
	})
	return r
}

// RegisterRoutes mounts the record and consultation endpoints on r.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/record", h.CreateRecord)
	r.Get("/record/{nfcID}", h.GetRecord)
	r.Get("/record/{nfcID}/consultations", h.ListConsultations)
	r.Post("/consultation/{nfcID}", h.Consult)
	r.Get("/consultation/{id}", h.GetConsultation)
}

// cors allows every origin, matching the public NFC landing page setup.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
