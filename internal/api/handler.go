package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-curation/internal/curation"
	"ms-curation/internal/intake"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"
	"ms-curation/internal/search"
	servingdb "ms-curation/internal/serving/db"
	"ms-curation/internal/utils"
)

type Handler struct {
	Intake  *intake.Service
	Upsert  *curation.UpsertService
	Audit   *curation.AuditService
	Search  *search.Service
	Serving *servingdb.DB
	Ping    func() error

	PendingLimit     int
	QuarantinedLimit int

	Logger *logger.Logger
}

// statusForError maps the curation error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var validationErr *curation.ValidationError
	var notFoundErr *curation.NotFoundError
	var conflictErr *curation.ConflictError
	var translationErr *search.TranslationError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &translationErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, err error) {
	status := statusForError(err)
	h.Logger.Error("API", fmt.Sprintf("%s: %v", message, err))
	writeJSON(w, status, utils.ErrorResponse(message, err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ---------------- PUBLIC ----------------

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("database unreachable", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("healthy", map[string]string{
		"service":  "curation-service",
		"database": "connected",
	}))
}

func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.Upsert.ListVenues(r.Context())
	if err != nil {
		h.writeError(w, "Failed to list venues", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("venues", venues))
}

func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitEvent: failed to decode request body: %v", err))
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}
	req.SourceType = models.SourceUserSubmission

	source := intake.SourceIdentity{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	result, err := h.Intake.SubmitEvent(r.Context(), req, source)
	if err != nil {
		h.writeError(w, "Submission failed", err)
		return
	}

	h.Logger.LogAPI("POST", "/events", "201", result.EventID)
	writeJSON(w, http.StatusCreated, utils.SuccessResponse("Event submitted and pending review", result))
}

func (h *Handler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid days parameter", raw))
			return
		}
		days = parsed
	}

	events, err := h.Search.ListUpcoming(r.Context(), days)
	if err != nil {
		h.writeError(w, "Failed to list upcoming events", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("upcoming events", events))
}

func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	result, err := h.Search.Search(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, "Could not understand query", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("search results", result))
}

// ---------------- ADMIN ----------------

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	events, err := h.Audit.ListPending(r.Context(), h.PendingLimit)
	if err != nil {
		h.writeError(w, "Failed to list pending events", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("pending events", events))
}

func (h *Handler) ListQuarantined(w http.ResponseWriter, r *http.Request) {
	events, err := h.Audit.ListQuarantined(r.Context(), h.QuarantinedLimit)
	if err != nil {
		h.writeError(w, "Failed to list quarantined events", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("quarantined events", events))
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Audit.Stats(r.Context())
	if err != nil {
		h.writeError(w, "Failed to load stats", err)
		return
	}
	liveCount, err := h.Serving.CountLive(r.Context())
	if err != nil {
		h.writeError(w, "Failed to count live events", err)
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("stats", map[string]interface{}{
		"by_status": counts,
		"gold":      liveCount,
	}))
}

func (h *Handler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req struct {
		Approver string `json:"approver"`
		Note     string `json:"note"`
	}
	// The body is optional; approval with no note is the common case.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Approver == "" {
		req.Approver = "admin"
	}

	result, err := h.Audit.Approve(r.Context(), eventID, req.Approver, req.Note)
	if err != nil {
		h.writeError(w, "Approval failed", err)
		return
	}

	message := "Event approved and published"
	if result.Status == models.StatusQuarantined {
		message = "Event failed quality checks and was quarantined"
	} else if result.Published == 0 {
		message = "Event already processed"
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse(message, result))
}

func (h *Handler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	result, err := h.Audit.Reject(r.Context(), eventID, req.Reason)
	if err != nil {
		h.writeError(w, "Rejection failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Event rejected", result))
}

func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int `json:"limit"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Limit <= 0 {
		req.Limit = 500
	}

	summary, err := h.Audit.RunAudit(r.Context(), req.Limit)
	if err != nil {
		h.writeError(w, "Audit run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("audit complete", summary))
}
