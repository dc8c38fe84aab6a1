package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/debriefhub/debriefhub/internal/models"
)

type PostgresValidationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresValidationRepository(pool *pgxpool.Pool) *PostgresValidationRepository {
	return &PostgresValidationRepository{pool: pool}
}

const validationColumns = `id, debriefing_session_id, status, approved_summary,
	approved_key_points, approved_action_items, approved_next_steps,
	approved_crm_updates, completed_at, created_at`

func scanValidationSession(row pgx.Row) (*models.ValidationSession, error) {
	var v models.ValidationSession
	err := row.Scan(
		&v.ID, &v.DebriefingSessionID, &v.Status, &v.ApprovedSummary,
		&v.ApprovedKeyPoints, &v.ApprovedActionItems, &v.ApprovedNextSteps,
		&v.ApprovedCRMUpdates, &v.CompletedAt, &v.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan validation session: %w", err)
	}
	return &v, nil
}

func (r *PostgresValidationRepository) Create(ctx context.Context, session *models.ValidationSession) error {
	query := `INSERT INTO validation_sessions
              (debriefing_session_id, status, approved_summary, approved_key_points,
               approved_action_items, approved_next_steps, approved_crm_updates)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		session.DebriefingSessionID, session.Status, session.ApprovedSummary,
		session.ApprovedKeyPoints, session.ApprovedActionItems,
		session.ApprovedNextSteps, session.ApprovedCRMUpdates,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create validation session: %w", err)
	}
	return nil
}

func (r *PostgresValidationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ValidationSession, error) {
	query := `SELECT ` + validationColumns + ` FROM validation_sessions WHERE id = $1`
	return scanValidationSession(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresValidationRepository) GetByDebriefingSession(ctx context.Context, debriefingID uuid.UUID) (*models.ValidationSession, error) {
	query := `SELECT ` + validationColumns + ` FROM validation_sessions WHERE debriefing_session_id = $1`
	return scanValidationSession(r.pool.QueryRow(ctx, query, debriefingID))
}

func (r *PostgresValidationRepository) Update(ctx context.Context, session *models.ValidationSession) error {
	query := `UPDATE validation_sessions
              SET status = $1, approved_summary = $2, approved_key_points = $3,
                  approved_action_items = $4, approved_next_steps = $5,
                  approved_crm_updates = $6, completed_at = $7
              WHERE id = $8`

	result, err := r.pool.Exec(ctx, query,
		session.Status, session.ApprovedSummary, session.ApprovedKeyPoints,
		session.ApprovedActionItems, session.ApprovedNextSteps,
		session.ApprovedCRMUpdates, session.CompletedAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update validation session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
