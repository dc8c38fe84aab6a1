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

type PostgresEmailRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEmailRepository(pool *pgxpool.Pool) *PostgresEmailRepository {
	return &PostgresEmailRepository{pool: pool}
}

const emailColumns = `id, validation_session_id, recipient, subject, body,
	status, scheduled_for, sent_at, created_at, updated_at`

func scanEmail(row pgx.Row) (*models.DraftEmail, error) {
	var e models.DraftEmail
	err := row.Scan(
		&e.ID, &e.ValidationSessionID, &e.Recipient, &e.Subject, &e.Body,
		&e.Status, &e.ScheduledFor, &e.SentAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan email: %w", err)
	}
	return &e, nil
}

func (r *PostgresEmailRepository) Create(ctx context.Context, email *models.DraftEmail) error {
	query := `INSERT INTO draft_emails (validation_session_id, recipient, subject, body, status)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		email.ValidationSessionID, email.Recipient, email.Subject, email.Body, email.Status,
	).Scan(&email.ID, &email.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create draft email: %w", err)
	}
	return nil
}

func (r *PostgresEmailRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DraftEmail, error) {
	query := `SELECT ` + emailColumns + ` FROM draft_emails WHERE id = $1`
	return scanEmail(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresEmailRepository) Update(ctx context.Context, email *models.DraftEmail) error {
	query := `UPDATE draft_emails
              SET recipient = $1, subject = $2, body = $3, status = $4,
                  scheduled_for = $5, sent_at = $6, updated_at = NOW()
              WHERE id = $7`

	result, err := r.pool.Exec(ctx, query,
		email.Recipient, email.Subject, email.Body, email.Status,
		email.ScheduledFor, email.SentAt, email.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update draft email: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresEmailRepository) ListDue(ctx context.Context, now time.Time) ([]*models.DraftEmail, error) {
	query := `SELECT ` + emailColumns + ` FROM draft_emails
              WHERE status = 'scheduled' AND scheduled_for <= $1
              ORDER BY scheduled_for ASC`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due emails: %w", err)
	}
	defer rows.Close()

	var emails []*models.DraftEmail
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due emails: %w", err)
	}
	return emails, nil
}

func (r *PostgresEmailRepository) CreateApproval(ctx context.Context, approval *models.EmailApproval) error {
	query := `INSERT INTO email_approvals (email_id, approver_id, approved, notes)
              VALUES ($1, $2, $3, $4)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		approval.EmailID, approval.ApproverID, approval.Approved, approval.Notes,
	).Scan(&approval.ID, &approval.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create email approval: %w", err)
	}
	return nil
}
