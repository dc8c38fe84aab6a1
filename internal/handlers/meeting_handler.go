package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
	"github.com/debriefhub/debriefhub/internal/services"
)

type MeetingHandler struct {
	meetings *services.MeetingService
}

func NewMeetingHandler(meetings *services.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

type createMeetingRequest struct {
	LeadID          *uuid.UUID `json:"lead_id,omitempty"`
	Title           string     `json:"title"`
	Attendees       []string   `json:"attendees"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	RecurrenceRule  string     `json:"recurrence_rule,omitempty"`
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.ScheduledAt.IsZero() {
		respondError(w, http.StatusBadRequest, "title and scheduled_at are required")
		return
	}

	meeting := &models.Meeting{
		UserID:          userIDFromContext(r.Context()),
		LeadID:          req.LeadID,
		Title:           req.Title,
		Attendees:       req.Attendees,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		RecurrenceRule:  req.RecurrenceRule,
	}
	if err := h.meetings.Create(r.Context(), meeting); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, meeting)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	meeting, err := h.meetings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "meeting not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	respondJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	meeting, err := h.meetings.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "meeting not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load meeting")
		return
	}
	if meeting.UserID != userIDFromContext(r.Context()) {
		respondError(w, http.StatusForbidden, "meeting belongs to another user")
		return
	}

	var req createMeetingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title != "" {
		meeting.Title = req.Title
	}
	if !req.ScheduledAt.IsZero() {
		meeting.ScheduledAt = req.ScheduledAt
	}
	if req.DurationMinutes > 0 {
		meeting.DurationMinutes = req.DurationMinutes
	}
	if req.Attendees != nil {
		meeting.Attendees = req.Attendees
	}
	if req.RecurrenceRule != "" {
		meeting.RecurrenceRule = req.RecurrenceRule
	}

	if err := h.meetings.Update(r.Context(), meeting); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.meetings.ListByUser(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	respondJSON(w, http.StatusOK, meetings)
}
