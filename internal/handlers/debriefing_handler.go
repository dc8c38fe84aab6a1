package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/repositories"
	"github.com/debriefhub/debriefhub/internal/services"
)

type DebriefingHandler struct {
	debriefings *services.DebriefingService
}

func NewDebriefingHandler(debriefings *services.DebriefingService) *DebriefingHandler {
	return &DebriefingHandler{debriefings: debriefings}
}

type scheduleDebriefingRequest struct {
	MeetingID uuid.UUID `json:"meeting_id"`
}

func (h *DebriefingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleDebriefingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.debriefings.ScheduleDebriefing(r.Context(), req.MeetingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "meeting not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to schedule debriefing")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *DebriefingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.debriefings.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "debriefing session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *DebriefingHandler) Start(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	question, err := h.debriefings.StartDebriefing(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotActive) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to start debriefing")
		return
	}
	respondJSON(w, http.StatusOK, question)
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *DebriefingHandler) Answer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req answerRequest
	if err := decodeJSON(r, &req); err != nil || req.Answer == "" {
		respondError(w, http.StatusBadRequest, "answer is required")
		return
	}

	question, err := h.debriefings.SubmitAnswer(r.Context(), id, req.Answer)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotActive) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to record answer")
		return
	}

	if question == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "completed"})
		return
	}
	respondJSON(w, http.StatusOK, question)
}

func (h *DebriefingHandler) Insights(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	insights, err := h.debriefings.ListInsights(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list insights")
		return
	}
	respondJSON(w, http.StatusOK, insights)
}
