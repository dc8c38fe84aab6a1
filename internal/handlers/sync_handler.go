package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
	"github.com/debriefhub/debriefhub/internal/services"
)

// opportunityCacheTTL bounds staleness of remote opportunity details served
// from the in-process cache.
const opportunityCacheTTL = 5 * time.Minute

type SyncHandler struct {
	sync     *services.SyncService
	approval *services.ApprovalService
	tracker  *services.SyncTracker
	records  repositories.SyncRecordRepository
	oppCache *gocache.Cache
}

func NewSyncHandler(
	sync *services.SyncService,
	approval *services.ApprovalService,
	tracker *services.SyncTracker,
	records repositories.SyncRecordRepository,
) *SyncHandler {
	return &SyncHandler{
		sync:     sync,
		approval: approval,
		tracker:  tracker,
		records:  records,
		oppCache: gocache.New(opportunityCacheTTL, 10*time.Minute),
	}
}

type validationReviewRequest struct {
	Summary     *string                `json:"summary"`
	KeyPoints   []string               `json:"key_points"`
	ActionItems []string               `json:"action_items"`
	NextSteps   []string               `json:"next_steps"`
	CRMUpdates  map[string]interface{} `json:"crm_updates"`
}

// SubmitReview lets the rep correct the extracted summary and the proposed
// CRM field updates, completing the validation session. Omitted fields keep
// the AI-proposed values.
func (h *SyncHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req validationReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.approval.SubmitReview(r.Context(), sessionID, services.ValidationReview{
		Summary:     req.Summary,
		KeyPoints:   req.KeyPoints,
		ActionItems: req.ActionItems,
		NextSteps:   req.NextSteps,
		CRMUpdates:  req.CRMUpdates,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidationAlreadyCompleted) {
			respondError(w, http.StatusConflict, "validation session already completed")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "validation session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update validation session")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type approveRequest struct {
	Systems []string `json:"systems"`
}

func (h *SyncHandler) Approve(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req approveRequest
	if err := decodeJSON(r, &req); err != nil || len(req.Systems) == 0 {
		respondError(w, http.StatusBadRequest, "systems list is required")
		return
	}

	systems := make([]crm.System, 0, len(req.Systems))
	for _, name := range req.Systems {
		system, err := crm.ParseSystem(name)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		systems = append(systems, system)
	}

	results, err := h.approval.ApproveCRMUpdates(r.Context(), sessionID, systems)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "validation session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to approve updates")
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *SyncHandler) Reject(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.approval.RejectCRMUpdates(r.Context(), sessionID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "validation session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to reject updates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

func (h *SyncHandler) Retry(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	result, err := h.sync.RetryFailedSync(r.Context(), recordID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "sync record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to retry sync")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *SyncHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	records, err := h.records.ListBySession(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sync records")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *SyncHandler) MeetingStatus(w http.ResponseWriter, r *http.Request) {
	meetingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid meeting id")
		return
	}

	summary, err := h.tracker.GetSyncStatus(r.Context(), meetingID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.tracker.GetSyncHealthMetrics(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute health metrics")
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

func (h *SyncHandler) FailedOperations(w http.ResponseWriter, r *http.Request) {
	hoursBack := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid hours parameter")
			return
		}
		hoursBack = parsed
	}

	failed, err := h.tracker.GetFailedOperations(r.Context(), hoursBack)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list failed operations")
		return
	}
	respondJSON(w, http.StatusOK, failed)
}

// OpportunityDetails proxies the remote CRM opportunity, cached in process
// to keep repeat lookups off the rate-limited remote APIs.
func (h *SyncHandler) OpportunityDetails(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	system, err := crm.ParseSystem(chi.URLParam(r, "system"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("%s:%s", leadID, system)
	if cached, ok := h.oppCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	details, err := h.sync.GetOpportunityDetails(r.Context(), leadID, system)
	if err != nil {
		if errors.Is(err, crm.ErrLeadNotLinked) {
			respondError(w, http.StatusConflict, "lead is not linked to this CRM system")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "lead not found")
			return
		}
		respondError(w, http.StatusBadGateway, "failed to fetch opportunity details")
		return
	}

	h.oppCache.Set(cacheKey, details, opportunityCacheTTL)
	respondJSON(w, http.StatusOK, details)
}

type stageUpdateRequest struct {
	Stage string `json:"stage"`
}

// UpdateOpportunityStage pushes a stage change straight to the remote CRM,
// outside the validation workflow. The cached opportunity snapshot is
// dropped so the next read reflects the change.
func (h *SyncHandler) UpdateOpportunityStage(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid lead id")
		return
	}
	system, err := crm.ParseSystem(chi.URLParam(r, "system"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req stageUpdateRequest
	if err := decodeJSON(r, &req); err != nil || req.Stage == "" {
		respondError(w, http.StatusBadRequest, "stage is required")
		return
	}

	if err := h.sync.UpdateOpportunityStage(r.Context(), leadID, system, req.Stage); err != nil {
		if errors.Is(err, crm.ErrLeadNotLinked) {
			respondError(w, http.StatusConflict, "lead is not linked to this CRM system")
			return
		}
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "lead not found")
			return
		}
		respondError(w, http.StatusBadGateway, "failed to update opportunity stage")
		return
	}

	h.oppCache.Delete(fmt.Sprintf("%s:%s", leadID, system))
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type bulkSyncRequest struct {
	Systems []string `json:"systems"`
}

// BulkSync re-runs the fan-out for an already approved validation session,
// for example after a new CRM system is configured.
func (h *SyncHandler) BulkSync(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req bulkSyncRequest
	if err := decodeJSON(r, &req); err != nil || len(req.Systems) == 0 {
		respondError(w, http.StatusBadRequest, "systems list is required")
		return
	}
	systems := make([]crm.System, 0, len(req.Systems))
	for _, name := range req.Systems {
		system, err := crm.ParseSystem(name)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		systems = append(systems, system)
	}

	results := h.sync.SyncToMultipleCRMs(r.Context(), sessionID, systems)
	respondJSON(w, http.StatusOK, results)
}

type statusReportRequest struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ReportStatus lets external workers report a sync record's terminal state.
// Served without auth so out-of-process integrations can call it.
func (h *SyncHandler) ReportStatus(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req statusReportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := models.SyncStatus(req.Status)
	switch status {
	case models.SyncPending, models.SyncInProgress, models.SyncCompleted, models.SyncFailed, models.SyncRetrying:
	default:
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.records.UpdateStatus(r.Context(), recordID, status, req.ErrorMessage); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(w, http.StatusNotFound, "sync record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
