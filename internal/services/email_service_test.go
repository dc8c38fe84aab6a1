package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

type fakeEmails struct {
	emails    map[uuid.UUID]*models.DraftEmail
	approvals []*models.EmailApproval
}

func newFakeEmails() *fakeEmails {
	return &fakeEmails{emails: make(map[uuid.UUID]*models.DraftEmail)}
}

func (f *fakeEmails) Create(ctx context.Context, email *models.DraftEmail) error {
	if email.ID == uuid.Nil {
		email.ID = uuid.New()
	}
	email.CreatedAt = time.Now()
	f.emails[email.ID] = email
	return nil
}

func (f *fakeEmails) GetByID(ctx context.Context, id uuid.UUID) (*models.DraftEmail, error) {
	if e, ok := f.emails[id]; ok {
		return e, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeEmails) Update(ctx context.Context, email *models.DraftEmail) error {
	if _, ok := f.emails[email.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.emails[email.ID] = email
	return nil
}

func (f *fakeEmails) ListDue(ctx context.Context, now time.Time) ([]*models.DraftEmail, error) {
	var out []*models.DraftEmail
	for _, e := range f.emails {
		if e.Status == models.EmailScheduled && e.ScheduledFor != nil && !e.ScheduledFor.After(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEmails) CreateApproval(ctx context.Context, approval *models.EmailApproval) error {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	f.approvals = append(f.approvals, approval)
	return nil
}

func newEmailFixture(t *testing.T) (*EmailService, *fakeEmails, uuid.UUID) {
	t.Helper()

	validations := newFakeValidations()
	session := &models.ValidationSession{
		Status:              models.ValidationCompleted,
		ApprovedSummary:     "Covered renewal pricing",
		ApprovedActionItems: []string{"Send revised quote"},
		ApprovedNextSteps:   []string{"Technical review Thursday"},
	}
	require.NoError(t, validations.Create(context.Background(), session))

	emails := newFakeEmails()
	return NewEmailService(emails, validations, slog.Default()), emails, session.ID
}

func TestDraftFollowUp_BuildsBodyFromValidation(t *testing.T) {
	service, _, sessionID := newEmailFixture(t)

	email, err := service.DraftFollowUp(context.Background(), sessionID, "buyer@acme.example")
	require.NoError(t, err)

	assert.Equal(t, models.EmailDraft, email.Status)
	assert.Equal(t, "buyer@acme.example", email.Recipient)
	assert.Contains(t, email.Body, "Covered renewal pricing")
	assert.Contains(t, email.Body, "- Technical review Thursday")
	assert.Contains(t, email.Body, "- Send revised quote")
}

func TestEmailLifecycle_ApproveScheduleSend(t *testing.T) {
	service, emails, sessionID := newEmailFixture(t)
	ctx := context.Background()

	var delivered []uuid.UUID
	service.send = func(ctx context.Context, email *models.DraftEmail) error {
		delivered = append(delivered, email.ID)
		return nil
	}

	email, err := service.DraftFollowUp(ctx, sessionID, "buyer@acme.example")
	require.NoError(t, err)

	// Scheduling before approval is rejected.
	_, err = service.Schedule(ctx, email.ID, time.Now())
	assert.ErrorIs(t, err, ErrEmailNotApproved)

	approved, err := service.Approve(ctx, email.ID, uuid.New(), true, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.EmailApproved, approved.Status)
	require.Len(t, emails.approvals, 1)

	_, err = service.Schedule(ctx, email.ID, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	sent, err := service.SendDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []uuid.UUID{email.ID}, delivered)

	got, err := service.GetByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EmailSent, got.Status)
	assert.NotNil(t, got.SentAt)
}

func TestApprove_RejectionKeepsEmailOut(t *testing.T) {
	service, _, sessionID := newEmailFixture(t)
	ctx := context.Background()

	email, err := service.DraftFollowUp(ctx, sessionID, "buyer@acme.example")
	require.NoError(t, err)

	rejected, err := service.Approve(ctx, email.ID, uuid.New(), false, "tone is off")
	require.NoError(t, err)
	assert.Equal(t, models.EmailRejected, rejected.Status)

	// A second approval decision on a non-draft is refused.
	_, err = service.Approve(ctx, email.ID, uuid.New(), true, "")
	assert.ErrorIs(t, err, ErrEmailNotDraft)
}
