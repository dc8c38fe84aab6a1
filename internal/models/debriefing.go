package models

import (
	"time"

	"github.com/google/uuid"
)

type DebriefingStatus string

const (
	DebriefingScheduled  DebriefingStatus = "scheduled"
	DebriefingInProgress DebriefingStatus = "in_progress"
	DebriefingCompleted  DebriefingStatus = "completed"
	DebriefingExpired    DebriefingStatus = "expired"
)

// DebriefingSession is the conversational Q&A flow collecting structured data
// from a rep after a meeting.
type DebriefingSession struct {
	ID              uuid.UUID        `json:"id"`
	MeetingID       uuid.UUID        `json:"meeting_id"`
	UserID          uuid.UUID        `json:"user_id"`
	Status          DebriefingStatus `json:"status"`
	CurrentQuestion int              `json:"current_question"`
	StartedAt       *time.Time       `json:"started_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	ExpiresAt       time.Time        `json:"expires_at"`
	CreatedAt       time.Time        `json:"created_at"`
}

type DebriefingQuestion struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Sequence   int        `json:"sequence"`
	Prompt     string     `json:"prompt"`
	Answer     string     `json:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

type InsightCategory string

const (
	InsightSummary    InsightCategory = "summary"
	InsightKeyPoint   InsightCategory = "key_point"
	InsightActionItem InsightCategory = "action_item"
	InsightNextStep   InsightCategory = "next_step"
	InsightSentiment  InsightCategory = "sentiment"
)

type DebriefingInsight struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	Category   InsightCategory `json:"category"`
	Content    string          `json:"content"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
}
