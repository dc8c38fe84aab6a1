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

type PostgresLeadRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresLeadRepository(pool *pgxpool.Pool) *PostgresLeadRepository {
	return &PostgresLeadRepository{pool: pool}
}

func (r *PostgresLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	query := `INSERT INTO leads (name, company, crm_ids, stage, amount)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		lead.Name, lead.Company, lead.CRMIDs, lead.Stage, lead.Amount,
	).Scan(&lead.ID, &lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	query := `SELECT id, name, company, crm_ids, stage, amount, created_at, updated_at
              FROM leads WHERE id = $1`

	var lead models.Lead
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&lead.ID, &lead.Name, &lead.Company, &lead.CRMIDs,
		&lead.Stage, &lead.Amount, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

func (r *PostgresLeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	query := `UPDATE leads
              SET name = $1, company = $2, crm_ids = $3, stage = $4, amount = $5, updated_at = NOW()
              WHERE id = $6`

	result, err := r.pool.Exec(ctx, query,
		lead.Name, lead.Company, lead.CRMIDs, lead.Stage, lead.Amount, lead.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
