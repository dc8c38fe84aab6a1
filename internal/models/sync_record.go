package models

import (
	"time"

	"github.com/google/uuid"
)

type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
	SyncRetrying   SyncStatus = "retrying"
)

// SyncOperation is the kind of synchronization unit. Immutable once recorded.
type SyncOperation string

const (
	OpMeetingOutcome SyncOperation = "meeting_outcome"
	OpFollowUpTasks  SyncOperation = "follow_up_tasks"
	OpLeadUpdate     SyncOperation = "lead_update"
)

// SyncRecord is the persisted outcome of one attempt (or retry chain) to push
// a validation session's data to one CRM system. At most one record exists per
// (validation session, crm system) pair; retries mutate the same record.
type SyncRecord struct {
	ID                  uuid.UUID              `json:"id"`
	ValidationSessionID uuid.UUID              `json:"validation_session_id"`
	CRMSystem           string                 `json:"crm_system"`
	Status              SyncStatus             `json:"status"`
	RemoteRecordID      string                 `json:"remote_record_id,omitempty"`
	ErrorMessage        string                 `json:"error_message,omitempty"`
	RetryCount          int                    `json:"retry_count"`
	Payload             map[string]interface{} `json:"payload"`
	CreatedAt           time.Time              `json:"created_at"`
	SyncedAt            *time.Time             `json:"synced_at,omitempty"`
}

// TrackedOperation is the ephemeral cache-resident audit entry, distinct from
// SyncRecord. Used for dashboards and health metrics, not the system of record.
type TrackedOperation struct {
	TrackingID string        `json:"tracking_id"`
	MeetingID  uuid.UUID     `json:"meeting_id"`
	Operation  SyncOperation `json:"operation"`
	CRMSystem  string        `json:"crm_system"`
	Status     SyncStatus    `json:"status"`
	RetryCount int           `json:"retry_count"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
