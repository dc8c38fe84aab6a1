package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/debriefhub/debriefhub/internal/models"
	"github.com/debriefhub/debriefhub/internal/repositories"
)

// trackingTTL bounds how long tracked operations stay queryable. Health
// metrics and dashboards only look at recent history.
const trackingTTL = 24 * time.Hour

// SyncTracker keeps an ephemeral per-meeting audit trail of sync operations
// in Redis, separate from the durable SyncRecord rows.
type SyncTracker struct {
	tracking repositories.TrackingRepository
	meetings repositories.MeetingRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewSyncTracker(tracking repositories.TrackingRepository, meetings repositories.MeetingRepository, logger *slog.Logger) *SyncTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncTracker{
		tracking: tracking,
		meetings: meetings,
		logger:   logger,
		now:      time.Now,
	}
}

// TrackSyncOperation appends one entry to the meeting's audit trail and
// returns its tracking id.
func (t *SyncTracker) TrackSyncOperation(
	ctx context.Context,
	meetingID uuid.UUID,
	operation models.SyncOperation,
	crmSystem string,
	status models.SyncStatus,
	retryCount int,
	errMsg string,
) (string, error) {
	op := &models.TrackedOperation{
		TrackingID: uuid.New().String(),
		MeetingID:  meetingID,
		Operation:  operation,
		CRMSystem:  crmSystem,
		Status:     status,
		RetryCount: retryCount,
		Error:      errMsg,
		Timestamp:  t.now().UTC(),
	}
	if err := t.tracking.Put(ctx, op, trackingTTL); err != nil {
		return "", fmt.Errorf("failed to store tracked operation: %w", err)
	}
	return op.TrackingID, nil
}

// SyncStatusSummary aggregates one meeting's tracked operations.
type SyncStatusSummary struct {
	MeetingID  uuid.UUID                  `json:"meeting_id"`
	Total      int                        `json:"total"`
	Completed  int                        `json:"completed"`
	Failed     int                        `json:"failed"`
	Pending    int                        `json:"pending"`
	BySystem   map[string]int             `json:"by_system"`
	Operations []*models.TrackedOperation `json:"operations"`
}

// GetSyncStatus summarizes all tracked operations for one meeting.
func (t *SyncTracker) GetSyncStatus(ctx context.Context, meetingID uuid.UUID) (*SyncStatusSummary, error) {
	ops, err := t.tracking.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked operations: %w", err)
	}

	summary := &SyncStatusSummary{
		MeetingID:  meetingID,
		Total:      len(ops),
		BySystem:   make(map[string]int),
		Operations: ops,
	}
	for _, op := range ops {
		summary.BySystem[op.CRMSystem]++
		switch op.Status {
		case models.SyncCompleted:
			summary.Completed++
		case models.SyncFailed:
			summary.Failed++
		default:
			summary.Pending++
		}
	}
	return summary, nil
}

// GetFailedOperations scans recently updated meetings and collects their
// failed tracked operations from the last hoursBack hours.
func (t *SyncTracker) GetFailedOperations(ctx context.Context, hoursBack int) ([]*models.TrackedOperation, error) {
	cutoff := t.now().Add(-time.Duration(hoursBack) * time.Hour)

	meetingIDs, err := t.meetings.RecentlyUpdatedIDs(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently updated meetings: %w", err)
	}

	var failed []*models.TrackedOperation
	for _, id := range meetingIDs {
		ops, err := t.tracking.ListByMeeting(ctx, id)
		if err != nil {
			t.logger.WarnContext(ctx, "failed to list tracked operations", "meeting_id", id, "error", err)
			continue
		}
		for _, op := range ops {
			if op.Status == models.SyncFailed && op.Timestamp.After(cutoff) {
				failed = append(failed, op)
			}
		}
	}
	return failed, nil
}

// HealthMetrics reports per-system failure rates over the last 24 hours.
type HealthMetrics struct {
	Systems   map[string]*SystemHealth `json:"systems"`
	Overall   string                   `json:"overall"`
	Generated time.Time                `json:"generated_at"`
}

type SystemHealth struct {
	Total       int     `json:"total"`
	Failed      int     `json:"failed"`
	FailureRate float64 `json:"failure_rate"`
	State       string  `json:"state"`
}

// healthState maps a failure rate to a traffic-light state. Above 20% is
// critical, above 10% warning, otherwise healthy.
func healthState(rate float64) string {
	switch {
	case rate > 0.2:
		return "critical"
	case rate > 0.1:
		return "warning"
	default:
		return "healthy"
	}
}

// GetSyncHealthMetrics computes per-system failure rates from the tracked
// operations of the last 24 hours.
func (t *SyncTracker) GetSyncHealthMetrics(ctx context.Context) (*HealthMetrics, error) {
	cutoff := t.now().Add(-trackingTTL)

	meetingIDs, err := t.meetings.RecentlyUpdatedIDs(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list recently updated meetings: %w", err)
	}

	metrics := &HealthMetrics{
		Systems:   make(map[string]*SystemHealth),
		Overall:   "healthy",
		Generated: t.now().UTC(),
	}
	for _, id := range meetingIDs {
		ops, err := t.tracking.ListByMeeting(ctx, id)
		if err != nil {
			t.logger.WarnContext(ctx, "failed to list tracked operations", "meeting_id", id, "error", err)
			continue
		}
		for _, op := range ops {
			health, ok := metrics.Systems[op.CRMSystem]
			if !ok {
				health = &SystemHealth{}
				metrics.Systems[op.CRMSystem] = health
			}
			health.Total++
			if op.Status == models.SyncFailed {
				health.Failed++
			}
		}
	}

	worst := 0.0
	for _, health := range metrics.Systems {
		if health.Total > 0 {
			health.FailureRate = float64(health.Failed) / float64(health.Total)
		}
		health.State = healthState(health.FailureRate)
		if health.FailureRate > worst {
			worst = health.FailureRate
		}
	}
	metrics.Overall = healthState(worst)
	return metrics, nil
}
