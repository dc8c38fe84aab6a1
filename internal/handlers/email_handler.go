package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/repositories"
	"github.com/debriefhub/debriefhub/internal/services"
)

type EmailHandler struct {
	emails *services.EmailService
}

func NewEmailHandler(emails *services.EmailService) *EmailHandler {
	return &EmailHandler{emails: emails}
}

type draftEmailRequest struct {
	ValidationSessionID uuid.UUID `json:"validation_session_id"`
	Recipient           string    `json:"recipient"`
}

func (h *EmailHandler) Draft(w http.ResponseWriter, r *http.Request) {
	var req draftEmailRequest
	if err := decodeJSON(r, &req); err != nil || req.Recipient == "" {
		respondError(w, http.StatusBadRequest, "validation_session_id and recipient are required")
		return
	}

	email, err := h.emails.DraftFollowUp(r.Context(), req.ValidationSessionID, req.Recipient)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "validation session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to draft email")
		return
	}
	respondJSON(w, http.StatusCreated, email)
}

type emailApprovalRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty"`
}

func (h *EmailHandler) Approve(w http.ResponseWriter, r *http.Request) {
	emailID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	var req emailApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email, err := h.emails.Approve(r.Context(), emailID, userIDFromContext(r.Context()), req.Approved, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondError(w, http.StatusNotFound, "email not found")
		case errors.Is(err, services.ErrEmailNotDraft):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to record approval")
		}
		return
	}
	respondJSON(w, http.StatusOK, email)
}

type scheduleEmailRequest struct {
	SendAt time.Time `json:"send_at"`
}

func (h *EmailHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	emailID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	var req scheduleEmailRequest
	if err := decodeJSON(r, &req); err != nil || req.SendAt.IsZero() {
		respondError(w, http.StatusBadRequest, "send_at is required")
		return
	}

	email, err := h.emails.Schedule(r.Context(), emailID, req.SendAt)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondError(w, http.StatusNotFound, "email not found")
		case errors.Is(err, services.ErrEmailNotApproved):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to schedule email")
		}
		return
	}
	respondJSON(w, http.StatusOK, email)
}

func (h *EmailHandler) Get(w http.ResponseWriter, r *http.Request) {
	emailID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid email id")
		return
	}

	email, err := h.emails.GetByID(r.Context(), emailID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "email not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load email")
		return
	}
	respondJSON(w, http.StatusOK, email)
}
