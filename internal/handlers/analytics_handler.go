package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/debriefhub/debriefhub/internal/services"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// sinceParam reads a "days" query parameter, defaulting to 30.
func sinceParam(r *http.Request) (time.Time, bool) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return time.Time{}, false
		}
		days = parsed
	}
	return time.Now().AddDate(0, 0, -days), true
}

func (h *AnalyticsHandler) DebriefingStats(w http.ResponseWriter, r *http.Request) {
	since, ok := sinceParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}

	stats, err := h.analytics.GetDebriefingStats(r.Context(), userIDFromContext(r.Context()), since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute debriefing stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AnalyticsHandler) SyncStats(w http.ResponseWriter, r *http.Request) {
	since, ok := sinceParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}

	stats, err := h.analytics.GetSyncStats(r.Context(), since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute sync stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *AnalyticsHandler) MeetingVolume(w http.ResponseWriter, r *http.Request) {
	since, ok := sinceParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid days parameter")
		return
	}

	volume, err := h.analytics.GetMeetingVolume(r.Context(), userIDFromContext(r.Context()), since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute meeting volume")
		return
	}
	respondJSON(w, http.StatusOK, volume)
}
