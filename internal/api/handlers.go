package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bimmerbailey/drai/internal/consultation"
	"github.com/bimmerbailey/drai/internal/llm"
	"github.com/bimmerbailey/drai/internal/record"
	"github.com/bimmerbailey/drai/internal/store"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// MsgAIUnavailable is the body sent when the model cannot be consulted.
const MsgAIUnavailable = "AI service error, please try again"

// Handler serves the API endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

type consultRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateRecord handles POST /api/medical/record.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec record.MedicalRecord
	if !h.decode(w, r, &rec) {
		return
	}

	created, err := h.svc.CreateRecord(r.Context(), rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetRecord handles GET /api/medical/record/{nfcID}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.PublicRecord(r.Context(), chi.URLParam(r, "nfcID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListConsultations handles GET /api/medical/record/{nfcID}/consultations.
func (h *Handler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Consultations(r.Context(), chi.URLParam(r, "nfcID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Consult handles POST /api/medical/consultation/{nfcID}.
func (h *Handler) Consult(w http.ResponseWriter, r *http.Request) {
	var req consultRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.svc.Consult(r.Context(), chi.URLParam(r, "nfcID"), req.Question)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetConsultation handles GET /api/medical/consultation/{id}.
func (h *Handler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid consultation id"})
		return
	}

	c, err := h.svc.Consultation(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.svc.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// fail maps a service error onto a status code and JSON body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	attrs := []any{"error", err, "status", status, "request_id", middleware.GetReqID(r.Context())}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", attrs...)
	} else {
		h.logger.Debug("request rejected", attrs...)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, consultation.ErrEmptyQuestion):
		return http.StatusBadRequest, "question is required"
	case errors.Is(err, record.ErrInvalidRecord):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, llm.ErrProviderUnavailable),
		errors.Is(err, llm.ErrModelNotFound),
		errors.Is(err, llm.ErrInvalidResponse),
		errors.Is(err, llm.ErrContextCanceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, MsgAIUnavailable
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
