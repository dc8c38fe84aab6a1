package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConsolidationPair names a meeting to fold into the one preceding it.
type ConsolidationPair struct {
	MeetingID uuid.UUID
	IntoID    uuid.UUID
}

type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Meeting, error)
	Update(ctx context.Context, meeting *models.Meeting) error
	// Consolidate marks a meeting as merged into another.
	Consolidate(ctx context.Context, meetingID, intoID uuid.UUID) error
	// FindBackToBack returns pairs of meetings for the same lead where the
	// second starts within gap of the first ending.
	FindBackToBack(ctx context.Context, gap time.Duration) ([]ConsolidationPair, error)
	// ListRecurring returns meetings carrying a recurrence rule.
	ListRecurring(ctx context.Context) ([]*models.Meeting, error)
	// ExistsAt reports whether the user already has a meeting with this title
	// at this time. Guards recurring materialization against duplicates.
	ExistsAt(ctx context.Context, userID uuid.UUID, title string, at time.Time) (bool, error)
	// RecentlyUpdatedIDs returns ids of meetings touched since the cutoff,
	// used by the sync tracker's failed-operation scan.
	RecentlyUpdatedIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
}

type DebriefingRepository interface {
	CreateSession(ctx context.Context, session *models.DebriefingSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.DebriefingSession, error)
	ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.DebriefingSession, error)
	UpdateSession(ctx context.Context, session *models.DebriefingSession) error
	// ListOverdue returns scheduled or in-progress sessions past their expiry.
	ListOverdue(ctx context.Context, now time.Time) ([]*models.DebriefingSession, error)

	CreateQuestion(ctx context.Context, question *models.DebriefingQuestion) error
	ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingQuestion, error)
	AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string, answeredAt time.Time) error

	CreateInsight(ctx context.Context, insight *models.DebriefingInsight) error
	ListInsights(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingInsight, error)
}

type ValidationRepository interface {
	Create(ctx context.Context, session *models.ValidationSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error)
	GetByDebriefingSession(ctx context.Context, debriefingID uuid.UUID) (*models.ValidationSession, error)
	Update(ctx context.Context, session *models.ValidationSession) error
}

type SyncRecordRepository interface {
	// Upsert inserts the record or, when one already exists for the same
	// (validation session, crm system) pair, mutates that row in place.
	// retry_count never decreases.
	Upsert(ctx context.Context, record *models.SyncRecord) error
	// Seed inserts a pending row only when none exists for the pair yet.
	// An existing record keeps its status and payload untouched.
	Seed(ctx context.Context, sessionID uuid.UUID, crmSystem string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SyncRecord, error)
	GetBySessionAndSystem(ctx context.Context, sessionID uuid.UUID, crmSystem string) (*models.SyncRecord, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.SyncRecord, error)
	ListByStatus(ctx context.Context, status models.SyncStatus, limit int) ([]*models.SyncRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error
}

type EmailRepository interface {
	Create(ctx context.Context, email *models.DraftEmail) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DraftEmail, error)
	Update(ctx context.Context, email *models.DraftEmail) error
	// ListDue returns approved, scheduled emails whose send time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*models.DraftEmail, error)
	CreateApproval(ctx context.Context, approval *models.EmailApproval) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.APISession) error
	GetByID(ctx context.Context, id string) (*models.APISession, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}

// TrackingRepository stores the ephemeral TrackedOperation audit entries.
// Entries expire after their TTL; eviction silently drops history.
type TrackingRepository interface {
	Put(ctx context.Context, op *models.TrackedOperation, ttl time.Duration) error
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*models.TrackedOperation, error)
}

// Cache is the small key-value surface used for sync idempotency and
// opportunity detail caching.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
