package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/events"
	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

var (
	ErrValidationNotCompleted = errors.New("validation session is not completed")
	ErrSystemNotConfigured    = errors.New("CRM system is not configured")
)

// syncCacheTTL bounds the idempotency short-circuit: a repeat sync for the
// same (session, system) within this window returns the cached success
// without a second remote call. Best-effort only; there is no distributed
// lock, so two concurrent callers can both miss and both sync.
const syncCacheTTL = 1 * time.Hour

// SyncResult is the structured per-system outcome handed to handlers and
// tasks. CRM client failures are converted into it; typed errors do not cross
// the service boundary.
type SyncResult struct {
	CRMSystem      string            `json:"crm_system"`
	Status         models.SyncStatus `json:"status"`
	RemoteRecordID string            `json:"remote_record_id,omitempty"`
	Message        string            `json:"message,omitempty"`
	Error          string            `json:"error,omitempty"`
	Cached         bool              `json:"cached,omitempty"`
}

// TaskResult is the outcome of creating one follow-up task. Task creation is
// not all-or-nothing; each item carries its own result.
type TaskResult struct {
	ActionItem   string `json:"action_item"`
	RemoteTaskID string `json:"remote_task_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SyncService orchestrates pushing validated meeting outcomes into the
// configured CRM systems and recording the results.
type SyncService struct {
	clients     map[crm.System]crm.Client
	records     repositories.SyncRecordRepository
	validations repositories.ValidationRepository
	debriefings repositories.DebriefingRepository
	meetings    repositories.MeetingRepository
	leads       repositories.LeadRepository
	cache       repositories.Cache
	tracker     *SyncTracker
	publisher   events.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

func NewSyncService(
	clients map[crm.System]crm.Client,
	records repositories.SyncRecordRepository,
	validations repositories.ValidationRepository,
	debriefings repositories.DebriefingRepository,
	meetings repositories.MeetingRepository,
	leads repositories.LeadRepository,
	cache repositories.Cache,
	tracker *SyncTracker,
	publisher events.Publisher,
	logger *slog.Logger,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &SyncService{
		clients:     clients,
		records:     records,
		validations: validations,
		debriefings: debriefings,
		meetings:    meetings,
		leads:       leads,
		cache:       cache,
		tracker:     tracker,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

func syncCacheKey(sessionID uuid.UUID, system crm.System) string {
	return fmt.Sprintf("synccache:%s:%s", sessionID, system)
}

// SyncMeetingOutcome pushes one validation session's approved outcome to one
// CRM system.
func (s *SyncService) SyncMeetingOutcome(ctx context.Context, sessionID uuid.UUID, system crm.System) (*SyncResult, error) {
	return s.syncOutcome(ctx, sessionID, system, 0)
}

func (s *SyncService) syncOutcome(ctx context.Context, sessionID uuid.UUID, system crm.System, retryCount int) (*SyncResult, error) {
	// Idempotency short-circuit: a prior success within the TTL is returned
	// without touching the remote.
	if remoteID, hit, err := s.cache.Get(ctx, syncCacheKey(sessionID, system)); err != nil {
		s.logger.WarnContext(ctx, "sync cache lookup failed", "error", err)
	} else if hit {
		return &SyncResult{
			CRMSystem:      string(system),
			Status:         models.SyncCompleted,
			RemoteRecordID: remoteID,
			Message:        "already synced",
			Cached:         true,
		}, nil
	}

	client, ok := s.clients[system]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSystemNotConfigured, system)
	}

	session, err := s.validations.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation session: %w", err)
	}
	if session.Status != models.ValidationCompleted {
		return nil, ErrValidationNotCompleted
	}

	meeting, lead, err := s.resolveLead(ctx, session)
	if err != nil {
		return nil, err
	}

	payload := buildMeetingPayload(session, meeting)
	formatted := crm.FormatMeetingData(system, payload)

	recordID := ""
	if lead != nil {
		recordID = lead.CRMIDs[string(system)]
	}
	if recordID == "" {
		// Business error: surfaced immediately, not retried.
		result := &SyncResult{
			CRMSystem: string(system),
			Status:    models.SyncFailed,
			Message:   "sync failed",
			Error:     crm.ErrLeadNotLinked.Error(),
		}
		s.persistResult(ctx, session, meeting, system, formatted, retryCount, result, models.OpMeetingOutcome)
		return result, nil
	}

	s.publishEvent(ctx, events.SubjectSyncStarted, session.ID, system)

	remoteID, callErr := client.UpdateRecord(ctx, recordID, payload)

	result := &SyncResult{CRMSystem: string(system)}
	if callErr != nil {
		result.Status = models.SyncFailed
		result.Message = "sync failed"
		result.Error = callErr.Error()
		s.publishEvent(ctx, events.SubjectSyncFailed, session.ID, system)
	} else {
		result.Status = models.SyncCompleted
		result.Message = "sync completed"
		result.RemoteRecordID = remoteID
		s.publishEvent(ctx, events.SubjectSyncCompleted, session.ID, system)

		if err := s.cache.Set(ctx, syncCacheKey(sessionID, system), remoteID, syncCacheTTL); err != nil {
			s.logger.WarnContext(ctx, "failed to set sync cache", "error", err)
		}
	}

	s.persistResult(ctx, session, meeting, system, formatted, retryCount, result, models.OpMeetingOutcome)
	return result, nil
}

// persistResult upserts the authoritative SyncRecord and appends a best-effort
// tracker entry. Tracker failures are logged, never propagated.
func (s *SyncService) persistResult(
	ctx context.Context,
	session *models.ValidationSession,
	meeting *models.Meeting,
	system crm.System,
	payload map[string]interface{},
	retryCount int,
	result *SyncResult,
	op models.SyncOperation,
) {
	record := &models.SyncRecord{
		ValidationSessionID: session.ID,
		CRMSystem:           string(system),
		Status:              result.Status,
		RemoteRecordID:      result.RemoteRecordID,
		ErrorMessage:        result.Error,
		RetryCount:          retryCount,
		Payload:             payload,
	}
	if result.Status == models.SyncCompleted {
		now := s.now()
		record.SyncedAt = &now
	}

	if err := s.records.Upsert(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist sync record",
			"validation_session_id", session.ID, "crm_system", system, "error", err)
	}

	if s.tracker != nil && meeting != nil {
		if _, err := s.tracker.TrackSyncOperation(ctx, meeting.ID, op, string(system), result.Status, retryCount, result.Error); err != nil {
			s.logger.WarnContext(ctx, "failed to track sync operation", "error", err)
		}
	}
}

func (s *SyncService) publishEvent(ctx context.Context, subject string, sessionID uuid.UUID, system crm.System) {
	event := map[string]interface{}{
		"validation_session_id": sessionID.String(),
		"crm_system":            string(system),
		"timestamp":             s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish sync event", "subject", subject, "error", err)
	}
}

// resolveLead walks validation session -> debriefing session -> meeting -> lead.
// A meeting without a lead resolves to (meeting, nil, nil).
func (s *SyncService) resolveLead(ctx context.Context, session *models.ValidationSession) (*models.Meeting, *models.Lead, error) {
	debriefing, err := s.debriefings.GetSession(ctx, session.DebriefingSessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load debriefing session: %w", err)
	}
	meeting, err := s.meetings.GetByID(ctx, debriefing.MeetingID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load meeting: %w", err)
	}
	if meeting.LeadID == nil {
		return meeting, nil, nil
	}
	lead, err := s.leads.GetByID(ctx, *meeting.LeadID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load lead: %w", err)
	}
	return meeting, lead, nil
}

// buildMeetingPayload assembles the canonical payload from the validation
// session's approved data. Stage and amount come from the approved CRM
// updates map when present.
func buildMeetingPayload(session *models.ValidationSession, meeting *models.Meeting) crm.MeetingPayload {
	payload := crm.MeetingPayload{
		Summary:     session.ApprovedSummary,
		KeyPoints:   session.ApprovedKeyPoints,
		ActionItems: session.ApprovedActionItems,
		NextSteps:   session.ApprovedNextSteps,
	}
	if meeting != nil {
		payload.DurationMinutes = meeting.DurationMinutes
	}
	if stage, ok := session.ApprovedCRMUpdates["stage"].(string); ok {
		payload.Stage = stage
	}
	switch amount := session.ApprovedCRMUpdates["amount"].(type) {
	case float64:
		payload.Amount = amount
	case int:
		payload.Amount = float64(amount)
	}
	return payload
}

// CreateFollowUpTasks creates one remote task per approved action item.
// Partial failure is possible; each item carries its own outcome.
func (s *SyncService) CreateFollowUpTasks(ctx context.Context, sessionID uuid.UUID, system crm.System) ([]TaskResult, error) {
	client, ok := s.clients[system]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSystemNotConfigured, system)
	}

	session, err := s.validations.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation session: %w", err)
	}
	if session.Status != models.ValidationCompleted {
		return nil, ErrValidationNotCompleted
	}

	meeting, lead, err := s.resolveLead(ctx, session)
	if err != nil {
		return nil, err
	}

	recordID := ""
	if lead != nil {
		recordID = lead.CRMIDs[string(system)]
	}
	if recordID == "" {
		return nil, crm.ErrLeadNotLinked
	}

	dueDate := s.now().AddDate(0, 0, 3)
	results := make([]TaskResult, 0, len(session.ApprovedActionItems))
	failed := 0
	for _, item := range session.ApprovedActionItems {
		task := crm.TaskPayload{
			Subject:     item,
			Description: fmt.Sprintf("Follow-up from meeting %q", meeting.Title),
			DueDate:     dueDate,
		}
		result := TaskResult{ActionItem: item}
		taskID, err := client.CreateTask(ctx, recordID, task)
		if err != nil {
			result.Error = err.Error()
			failed++
		} else {
			result.RemoteTaskID = taskID
		}
		results = append(results, result)
	}

	status := models.SyncCompleted
	errMsg := ""
	if failed > 0 {
		status = models.SyncFailed
		errMsg = fmt.Sprintf("%d of %d tasks failed", failed, len(results))
	}
	if s.tracker != nil {
		if _, err := s.tracker.TrackSyncOperation(ctx, meeting.ID, models.OpFollowUpTasks, string(system), status, 0, errMsg); err != nil {
			s.logger.WarnContext(ctx, "failed to track task sync", "error", err)
		}
	}

	return results, nil
}

// SyncToMultipleCRMs fans out sequentially to each requested system. One
// system's failure does not block the others.
func (s *SyncService) SyncToMultipleCRMs(ctx context.Context, sessionID uuid.UUID, systems []crm.System) map[string]*SyncResult {
	results := make(map[string]*SyncResult, len(systems))
	for _, system := range systems {
		result, err := s.syncOutcome(ctx, sessionID, system, 0)
		if err != nil {
			result = &SyncResult{
				CRMSystem: string(system),
				Status:    models.SyncFailed,
				Message:   "sync failed",
				Error:     err.Error(),
			}
		}
		results[string(system)] = result
	}
	return results
}

// RetryFailedSync clears the idempotency cache and re-invokes the sync for the
// record's (session, system) pair. Transient failures inside the client are
// retried by its own backoff; this is the operator-facing retry.
func (s *SyncService) RetryFailedSync(ctx context.Context, recordID uuid.UUID) (*SyncResult, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync record: %w", err)
	}

	system, err := crm.ParseSystem(record.CRMSystem)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, syncCacheKey(record.ValidationSessionID, system)); err != nil {
		s.logger.WarnContext(ctx, "failed to clear sync cache before retry", "error", err)
	}

	if err := s.records.UpdateStatus(ctx, record.ID, models.SyncRetrying, ""); err != nil {
		s.logger.WarnContext(ctx, "failed to mark sync record retrying", "error", err)
	}

	return s.syncOutcome(ctx, record.ValidationSessionID, system, record.RetryCount+1)
}

// UpdateOpportunityStage pushes only a stage change for a lead.
func (s *SyncService) UpdateOpportunityStage(ctx context.Context, leadID uuid.UUID, system crm.System, stage string) error {
	client, ok := s.clients[system]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSystemNotConfigured, system)
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("failed to load lead: %w", err)
	}
	recordID := lead.CRMIDs[string(system)]
	if recordID == "" {
		return crm.ErrLeadNotLinked
	}
	return client.UpdateOpportunityStage(ctx, recordID, stage)
}

// GetOpportunityDetails fetches the remote opportunity for a lead.
func (s *SyncService) GetOpportunityDetails(ctx context.Context, leadID uuid.UUID, system crm.System) (map[string]interface{}, error) {
	client, ok := s.clients[system]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSystemNotConfigured, system)
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead: %w", err)
	}
	recordID := lead.CRMIDs[string(system)]
	if recordID == "" {
		return nil, crm.ErrLeadNotLinked
	}
	return client.GetOpportunityDetails(ctx, recordID)
}
