package models

import (
	"time"

	"github.com/google/uuid"
)

type Meeting struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	LeadID          *uuid.UUID `json:"lead_id,omitempty"`
	Title           string     `json:"title"`
	Attendees       []string   `json:"attendees"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	// RecurrenceRule is an RFC 5545 RRULE string for recurring meetings.
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
	// ConsolidatedInto points to the meeting this one was merged into when
	// back-to-back meetings with the same lead are consolidated.
	ConsolidatedInto *uuid.UUID `json:"consolidated_into,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

// Lead is the prospect a meeting (and its CRM sync) is attached to.
// CRMIDs maps a CRM system identifier to the remote record id in that system.
type Lead struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Company   string            `json:"company"`
	CRMIDs    map[string]string `json:"crm_ids"`
	Stage     string            `json:"stage"`
	Amount    float64           `json:"amount"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}
