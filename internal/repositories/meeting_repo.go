package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/debriefhub/debriefhub/internal/models"
)

type PostgresMeetingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMeetingRepository(pool *pgxpool.Pool) *PostgresMeetingRepository {
	return &PostgresMeetingRepository{pool: pool}
}

const meetingColumns = `id, user_id, lead_id, title, attendees, scheduled_at,
	duration_minutes, recurrence_rule, consolidated_into, created_at, updated_at`

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(
		&m.ID, &m.UserID, &m.LeadID, &m.Title, &m.Attendees, &m.ScheduledAt,
		&m.DurationMinutes, &m.RecurrenceRule, &m.ConsolidatedInto,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan meeting: %w", err)
	}
	return &m, nil
}

func (r *PostgresMeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	query := `INSERT INTO meetings (user_id, lead_id, title, attendees, scheduled_at, duration_minutes, recurrence_rule)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		meeting.UserID, meeting.LeadID, meeting.Title, meeting.Attendees,
		meeting.ScheduledAt, meeting.DurationMinutes, meeting.RecurrenceRule,
	).Scan(&meeting.ID, &meeting.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

func (r *PostgresMeetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	return scanMeeting(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresMeetingRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
              WHERE user_id = $1 AND consolidated_into IS NULL
              ORDER BY scheduled_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meetings: %w", err)
	}
	return meetings, nil
}

func (r *PostgresMeetingRepository) Update(ctx context.Context, meeting *models.Meeting) error {
	query := `UPDATE meetings
              SET title = $1, attendees = $2, scheduled_at = $3, duration_minutes = $4,
                  lead_id = $5, recurrence_rule = $6, updated_at = NOW()
              WHERE id = $7`

	result, err := r.pool.Exec(ctx, query,
		meeting.Title, meeting.Attendees, meeting.ScheduledAt, meeting.DurationMinutes,
		meeting.LeadID, meeting.RecurrenceRule, meeting.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresMeetingRepository) Consolidate(ctx context.Context, meetingID, intoID uuid.UUID) error {
	query := `UPDATE meetings SET consolidated_into = $1, updated_at = NOW()
              WHERE id = $2 AND consolidated_into IS NULL`

	result, err := r.pool.Exec(ctx, query, intoID, meetingID)
	if err != nil {
		return fmt.Errorf("failed to consolidate meeting: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresMeetingRepository) FindBackToBack(ctx context.Context, gap time.Duration) ([]ConsolidationPair, error) {
	// Self-join: b starts within the gap after a ends, same lead, neither
	// already consolidated.
	query := `SELECT b.id, a.id
              FROM meetings a
              JOIN meetings b ON a.lead_id = b.lead_id AND a.id <> b.id
              WHERE a.lead_id IS NOT NULL
                AND a.consolidated_into IS NULL AND b.consolidated_into IS NULL
                AND b.scheduled_at >= a.scheduled_at + (a.duration_minutes || ' minutes')::interval
                AND b.scheduled_at <= a.scheduled_at + (a.duration_minutes || ' minutes')::interval + $1::interval`

	rows, err := r.pool.Query(ctx, query, gap.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query back-to-back meetings: %w", err)
	}
	defer rows.Close()

	var pairs []ConsolidationPair
	for rows.Next() {
		var p ConsolidationPair
		if err := rows.Scan(&p.MeetingID, &p.IntoID); err != nil {
			return nil, fmt.Errorf("failed to scan consolidation pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating consolidation pairs: %w", err)
	}
	return pairs, nil
}

func (r *PostgresMeetingRepository) ListRecurring(ctx context.Context) ([]*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
              WHERE recurrence_rule <> '' AND consolidated_into IS NULL`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring meetings: %w", err)
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring meetings: %w", err)
	}
	return meetings, nil
}

func (r *PostgresMeetingRepository) ExistsAt(ctx context.Context, userID uuid.UUID, title string, at time.Time) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM meetings
	              WHERE user_id = $1 AND title = $2 AND scheduled_at = $3
	          )`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, title, at).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check meeting existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresMeetingRepository) RecentlyUpdatedIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM meetings WHERE COALESCE(updated_at, created_at) >= $1`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent meetings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan meeting id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meeting ids: %w", err)
	}
	return ids, nil
}
