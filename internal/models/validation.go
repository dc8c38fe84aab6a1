package models

import (
	"time"

	"github.com/google/uuid"
)

type ValidationStatus string

const (
	ValidationPending   ValidationStatus = "pending"
	ValidationInReview  ValidationStatus = "in_review"
	ValidationCompleted ValidationStatus = "completed"
)

// ValidationSession is the rep's reviewed and corrected version of the
// AI-generated meeting summary. Once completed it is the source of truth for
// CRM sync payloads.
type ValidationSession struct {
	ID                  uuid.UUID              `json:"id"`
	DebriefingSessionID uuid.UUID              `json:"debriefing_session_id"`
	Status              ValidationStatus       `json:"status"`
	ApprovedSummary     string                 `json:"approved_summary"`
	ApprovedKeyPoints   []string               `json:"approved_key_points"`
	ApprovedActionItems []string               `json:"approved_action_items"`
	ApprovedNextSteps   []string               `json:"approved_next_steps"`
	ApprovedCRMUpdates  map[string]interface{} `json:"approved_crm_updates"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}
