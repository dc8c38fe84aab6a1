package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

// ApprovalService gates CRM writes behind explicit rep approval. Nothing
// reaches a remote system until the validation session's updates are approved
// through it.
type ApprovalService struct {
	validations repositories.ValidationRepository
	records     repositories.SyncRecordRepository
	sync        *SyncService
	logger      *slog.Logger
	now         func() time.Time
}

func NewApprovalService(
	validations repositories.ValidationRepository,
	records repositories.SyncRecordRepository,
	sync *SyncService,
	logger *slog.Logger,
) *ApprovalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{
		validations: validations,
		records:     records,
		sync:        sync,
		logger:      logger,
		now:         time.Now,
	}
}

// ErrValidationAlreadyCompleted is returned when a rep edits a session that
// has already been completed and possibly synced.
var ErrValidationAlreadyCompleted = errors.New("validation session already completed")

// ValidationReview carries the rep's corrections to the extracted summary.
// Nil fields keep the proposed value.
type ValidationReview struct {
	Summary     *string
	KeyPoints   []string
	ActionItems []string
	NextSteps   []string
	CRMUpdates  map[string]interface{}
}

// SubmitReview applies the rep's corrections and completes the validation
// session, making it the source of truth for CRM sync payloads. Sessions
// that already completed must be rejected first to reopen them.
func (a *ApprovalService) SubmitReview(ctx context.Context, sessionID uuid.UUID, review ValidationReview) (*models.ValidationSession, error) {
	session, err := a.validations.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation session: %w", err)
	}
	if session.Status == models.ValidationCompleted {
		return nil, ErrValidationAlreadyCompleted
	}

	if review.Summary != nil {
		session.ApprovedSummary = *review.Summary
	}
	if review.KeyPoints != nil {
		session.ApprovedKeyPoints = review.KeyPoints
	}
	if review.ActionItems != nil {
		session.ApprovedActionItems = review.ActionItems
	}
	if review.NextSteps != nil {
		session.ApprovedNextSteps = review.NextSteps
	}
	if review.CRMUpdates != nil {
		session.ApprovedCRMUpdates = review.CRMUpdates
	}

	session.Status = models.ValidationCompleted
	now := a.now()
	session.CompletedAt = &now
	if err := a.validations.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update validation session: %w", err)
	}
	return session, nil
}

// ApproveCRMUpdates marks the validation session completed, seeds a pending
// SyncRecord per target system, then runs the sync fan-out.
func (a *ApprovalService) ApproveCRMUpdates(ctx context.Context, sessionID uuid.UUID, systems []crm.System) (map[string]*SyncResult, error) {
	session, err := a.validations.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation session: %w", err)
	}

	if session.Status != models.ValidationCompleted {
		session.Status = models.ValidationCompleted
		now := a.now()
		session.CompletedAt = &now
		if err := a.validations.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to complete validation session: %w", err)
		}
	}

	// Seed placeholders so the records surface as pending before the fan-out
	// runs. Seed never touches an existing row, so re-approving a session
	// that already synced leaves the completed record and its payload alone.
	for _, system := range systems {
		if err := a.records.Seed(ctx, session.ID, string(system)); err != nil {
			a.logger.WarnContext(ctx, "failed to seed pending sync record",
				"validation_session_id", session.ID, "crm_system", system, "error", err)
		}
	}

	return a.sync.SyncToMultipleCRMs(ctx, session.ID, systems), nil
}

// RejectCRMUpdates clears the proposed CRM updates so a corrected set can be
// submitted. The rest of the approved content is kept.
func (a *ApprovalService) RejectCRMUpdates(ctx context.Context, sessionID uuid.UUID) error {
	session, err := a.validations.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load validation session: %w", err)
	}

	session.ApprovedCRMUpdates = map[string]interface{}{}
	session.Status = models.ValidationInReview
	session.CompletedAt = nil
	if err := a.validations.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update validation session: %w", err)
	}
	return nil
}
