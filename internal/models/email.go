package models

import (
	"time"

	"github.com/google/uuid"
)

type EmailStatus string

const (
	EmailDraft     EmailStatus = "draft"
	EmailApproved  EmailStatus = "approved"
	EmailRejected  EmailStatus = "rejected"
	EmailScheduled EmailStatus = "scheduled"
	EmailSent      EmailStatus = "sent"
)

// DraftEmail is a follow-up email generated from a completed validation
// session, pending rep approval before it can be scheduled.
type DraftEmail struct {
	ID                  uuid.UUID   `json:"id"`
	ValidationSessionID uuid.UUID   `json:"validation_session_id"`
	Recipient           string      `json:"recipient"`
	Subject             string      `json:"subject"`
	Body                string      `json:"body"`
	Status              EmailStatus `json:"status"`
	ScheduledFor        *time.Time  `json:"scheduled_for,omitempty"`
	SentAt              *time.Time  `json:"sent_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           *time.Time  `json:"updated_at,omitempty"`
}

type EmailApproval struct {
	ID         uuid.UUID  `json:"id"`
	EmailID    uuid.UUID  `json:"email_id"`
	ApproverID uuid.UUID  `json:"approver_id"`
	Approved   bool       `json:"approved"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
