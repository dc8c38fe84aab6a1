package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

// consolidationGap is the maximum idle time between two meetings with the
// same lead for them to count as back-to-back.
const consolidationGap = 15 * time.Minute

// materializeHorizon is how far ahead recurring meetings get concrete
// occurrences created.
const materializeHorizon = 14 * 24 * time.Hour

// MeetingService owns meeting CRUD plus the two background behaviors:
// consolidating back-to-back meetings and materializing recurring ones.
type MeetingService struct {
	meetings repositories.MeetingRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewMeetingService(meetings repositories.MeetingRepository, logger *slog.Logger) *MeetingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeetingService{
		meetings: meetings,
		logger:   logger,
		now:      time.Now,
	}
}

func (m *MeetingService) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.RecurrenceRule != "" {
		// Reject malformed rules up front rather than at materialization time.
		if _, err := rrule.StrToRRule(meeting.RecurrenceRule); err != nil {
			return fmt.Errorf("invalid recurrence rule: %w", err)
		}
	}
	return m.meetings.Create(ctx, meeting)
}

func (m *MeetingService) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	return m.meetings.GetByID(ctx, id)
}

func (m *MeetingService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Meeting, error) {
	return m.meetings.ListByUserID(ctx, userID)
}

func (m *MeetingService) Update(ctx context.Context, meeting *models.Meeting) error {
	if meeting.RecurrenceRule != "" {
		if _, err := rrule.StrToRRule(meeting.RecurrenceRule); err != nil {
			return fmt.Errorf("invalid recurrence rule: %w", err)
		}
	}
	return m.meetings.Update(ctx, meeting)
}

// ConsolidateBackToBack folds meetings that start within the gap of a
// previous meeting with the same lead into that meeting. Returns how many
// were consolidated.
func (m *MeetingService) ConsolidateBackToBack(ctx context.Context) (int, error) {
	pairs, err := m.meetings.FindBackToBack(ctx, consolidationGap)
	if err != nil {
		return 0, fmt.Errorf("failed to find back-to-back meetings: %w", err)
	}

	consolidated := 0
	folded := make(map[uuid.UUID]bool)
	for _, pair := range pairs {
		// A meeting already folded this pass cannot fold or absorb again.
		if folded[pair.MeetingID] || folded[pair.IntoID] {
			continue
		}
		if err := m.meetings.Consolidate(ctx, pair.MeetingID, pair.IntoID); err != nil {
			m.logger.WarnContext(ctx, "failed to consolidate meeting",
				"meeting_id", pair.MeetingID, "into", pair.IntoID, "error", err)
			continue
		}
		folded[pair.MeetingID] = true
		consolidated++
	}
	return consolidated, nil
}

// MaterializeRecurring creates concrete meeting rows for upcoming occurrences
// of every recurring meeting, out to the horizon. Returns how many were
// created.
func (m *MeetingService) MaterializeRecurring(ctx context.Context) (int, error) {
	recurring, err := m.meetings.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recurring meetings: %w", err)
	}

	now := m.now()
	horizon := now.Add(materializeHorizon)

	created := 0
	for _, meeting := range recurring {
		rule, err := rrule.StrToRRule(meeting.RecurrenceRule)
		if err != nil {
			m.logger.WarnContext(ctx, "skipping meeting with invalid recurrence rule",
				"meeting_id", meeting.ID, "error", err)
			continue
		}
		rule.DTStart(meeting.ScheduledAt)

		for _, occurrence := range rule.Between(now, horizon, true) {
			if occurrence.Equal(meeting.ScheduledAt) {
				continue
			}
			exists, err := m.meetings.ExistsAt(ctx, meeting.UserID, meeting.Title, occurrence)
			if err != nil {
				m.logger.WarnContext(ctx, "failed to check occurrence", "meeting_id", meeting.ID, "error", err)
				continue
			}
			if exists {
				continue
			}

			instance := &models.Meeting{
				UserID:          meeting.UserID,
				LeadID:          meeting.LeadID,
				Title:           meeting.Title,
				Attendees:       meeting.Attendees,
				ScheduledAt:     occurrence,
				DurationMinutes: meeting.DurationMinutes,
			}
			if err := m.meetings.Create(ctx, instance); err != nil {
				m.logger.WarnContext(ctx, "failed to materialize occurrence",
					"meeting_id", meeting.ID, "occurrence", occurrence, "error", err)
				continue
			}
			created++
		}
	}
	return created, nil
}
