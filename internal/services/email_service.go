package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

var (
	ErrEmailNotApproved = errors.New("email has not been approved")
	ErrEmailNotDraft    = errors.New("email is not in draft state")
)

// EmailService drafts post-meeting follow-up emails from validation session
// content and walks them through approval, scheduling, and dispatch.
type EmailService struct {
	emails      repositories.EmailRepository
	validations repositories.ValidationRepository
	logger      *slog.Logger
	now         func() time.Time
	// send performs the actual delivery. Injectable so tests and the default
	// log-only build do not need an SMTP provider.
	send func(ctx context.Context, email *models.DraftEmail) error
}

func NewEmailService(
	emails repositories.EmailRepository,
	validations repositories.ValidationRepository,
	logger *slog.Logger,
) *EmailService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &EmailService{
		emails:      emails,
		validations: validations,
		logger:      logger,
		now:         time.Now,
	}
	s.send = s.logSend
	return s
}

// logSend is the default delivery: record it and move on. A real provider can
// replace it at wiring time.
func (e *EmailService) logSend(ctx context.Context, email *models.DraftEmail) error {
	e.logger.InfoContext(ctx, "sending follow-up email",
		"email_id", email.ID, "recipient", email.Recipient, "subject", email.Subject)
	return nil
}

// DraftFollowUp generates a follow-up email from the validation session's
// approved content.
func (e *EmailService) DraftFollowUp(ctx context.Context, sessionID uuid.UUID, recipient string) (*models.DraftEmail, error) {
	session, err := e.validations.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load validation session: %w", err)
	}

	var body strings.Builder
	body.WriteString("Hi,\n\nThank you for your time in our recent meeting.\n\n")
	if session.ApprovedSummary != "" {
		body.WriteString(session.ApprovedSummary)
		body.WriteString("\n\n")
	}
	if len(session.ApprovedNextSteps) > 0 {
		body.WriteString("Next steps:\n")
		for _, step := range session.ApprovedNextSteps {
			body.WriteString("- ")
			body.WriteString(step)
			body.WriteString("\n")
		}
		body.WriteString("\n")
	}
	if len(session.ApprovedActionItems) > 0 {
		body.WriteString("On our side, we will:\n")
		for _, item := range session.ApprovedActionItems {
			body.WriteString("- ")
			body.WriteString(item)
			body.WriteString("\n")
		}
		body.WriteString("\n")
	}
	body.WriteString("Best regards")

	email := &models.DraftEmail{
		ValidationSessionID: session.ID,
		Recipient:           recipient,
		Subject:             "Follow-up on our recent meeting",
		Body:                body.String(),
		Status:              models.EmailDraft,
	}
	if err := e.emails.Create(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to create draft email: %w", err)
	}
	return email, nil
}

// Approve records the approval decision. Approved emails become schedulable;
// rejected ones stay editable as drafts do.
func (e *EmailService) Approve(ctx context.Context, emailID, approverID uuid.UUID, approved bool, notes string) (*models.DraftEmail, error) {
	email, err := e.emails.GetByID(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email: %w", err)
	}
	if email.Status != models.EmailDraft {
		return nil, ErrEmailNotDraft
	}

	approval := &models.EmailApproval{
		EmailID:    email.ID,
		ApproverID: approverID,
		Approved:   approved,
		Notes:      notes,
	}
	if err := e.emails.CreateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}

	if approved {
		email.Status = models.EmailApproved
	} else {
		email.Status = models.EmailRejected
	}
	if err := e.emails.Update(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to update email: %w", err)
	}
	return email, nil
}

// Schedule queues an approved email for sending at the given time.
func (e *EmailService) Schedule(ctx context.Context, emailID uuid.UUID, sendAt time.Time) (*models.DraftEmail, error) {
	email, err := e.emails.GetByID(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email: %w", err)
	}
	if email.Status != models.EmailApproved {
		return nil, ErrEmailNotApproved
	}

	email.Status = models.EmailScheduled
	email.ScheduledFor = &sendAt
	if err := e.emails.Update(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to schedule email: %w", err)
	}
	return email, nil
}

// SendDue dispatches every scheduled email whose send time has passed.
// Returns how many were sent.
func (e *EmailService) SendDue(ctx context.Context) (int, error) {
	due, err := e.emails.ListDue(ctx, e.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due emails: %w", err)
	}

	sent := 0
	for _, email := range due {
		if err := e.send(ctx, email); err != nil {
			e.logger.WarnContext(ctx, "failed to send email", "email_id", email.ID, "error", err)
			continue
		}
		email.Status = models.EmailSent
		now := e.now()
		email.SentAt = &now
		if err := e.emails.Update(ctx, email); err != nil {
			e.logger.WarnContext(ctx, "failed to mark email sent", "email_id", email.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (e *EmailService) GetByID(ctx context.Context, emailID uuid.UUID) (*models.DraftEmail, error) {
	return e.emails.GetByID(ctx, emailID)
}
