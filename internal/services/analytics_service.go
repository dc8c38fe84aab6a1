package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnalyticsService answers aggregate questions directly against Postgres.
// Read-only; it never goes through the repositories.
type AnalyticsService struct {
	db *pgxpool.Pool
}

func NewAnalyticsService(db *pgxpool.Pool) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// DebriefingStats summarizes a rep's debriefing discipline over a window.
type DebriefingStats struct {
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Expired         int     `json:"expired"`
	CompletionRate  float64 `json:"completion_rate"`
	AvgDurationSecs float64 `json:"avg_duration_secs"`
	Insights        int     `json:"insights"`
}

func (a *AnalyticsService) GetDebriefingStats(ctx context.Context, userID uuid.UUID, since time.Time) (*DebriefingStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE s.status = 'completed'),
		       COUNT(*) FILTER (WHERE s.status = 'expired'),
		       COALESCE(AVG(EXTRACT(EPOCH FROM s.completed_at - s.started_at)), 0),
		       (SELECT COUNT(*) FROM debriefing_insights i
		        JOIN debriefing_sessions ds ON ds.id = i.session_id
		        WHERE ds.user_id = $1 AND i.created_at >= $2)
		FROM debriefing_sessions s
		WHERE s.user_id = $1 AND s.created_at >= $2`

	stats := &DebriefingStats{}
	err := a.db.QueryRow(ctx, query, userID, since).Scan(
		&stats.Total, &stats.Completed, &stats.Expired, &stats.AvgDurationSecs, &stats.Insights,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query debriefing stats: %w", err)
	}
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}

// SyncStats summarizes sync outcomes per CRM system over a window.
type SyncStats struct {
	CRMSystem   string  `json:"crm_system"`
	Total       int     `json:"total"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	AvgRetries  float64 `json:"avg_retries"`
}

func (a *AnalyticsService) GetSyncStats(ctx context.Context, since time.Time) ([]*SyncStats, error) {
	query := `
		SELECT crm_system,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COALESCE(AVG(retry_count), 0)
		FROM sync_records
		WHERE created_at >= $1
		GROUP BY crm_system
		ORDER BY crm_system`

	rows, err := a.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync stats: %w", err)
	}
	defer rows.Close()

	var out []*SyncStats
	for rows.Next() {
		stats := &SyncStats{}
		if err := rows.Scan(&stats.CRMSystem, &stats.Total, &stats.Completed, &stats.Failed, &stats.AvgRetries); err != nil {
			return nil, fmt.Errorf("failed to scan sync stats: %w", err)
		}
		if stats.Total > 0 {
			stats.SuccessRate = float64(stats.Completed) / float64(stats.Total)
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// MeetingVolume is one day's meeting count for a rep.
type MeetingVolume struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

func (a *AnalyticsService) GetMeetingVolume(ctx context.Context, userID uuid.UUID, since time.Time) ([]*MeetingVolume, error) {
	query := `
		SELECT date_trunc('day', scheduled_at) AS day, COUNT(*)
		FROM meetings
		WHERE user_id = $1 AND scheduled_at >= $2 AND consolidated_into IS NULL
		GROUP BY day
		ORDER BY day`

	rows, err := a.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query meeting volume: %w", err)
	}
	defer rows.Close()

	var out []*MeetingVolume
	for rows.Next() {
		volume := &MeetingVolume{}
		if err := rows.Scan(&volume.Day, &volume.Count); err != nil {
			return nil, fmt.Errorf("failed to scan meeting volume: %w", err)
		}
		out = append(out, volume)
	}
	return out, rows.Err()
}
