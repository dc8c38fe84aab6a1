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

type PostgresSyncRecordRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresSyncRecordRepository(pool *pgxpool.Pool) *PostgresSyncRecordRepository {
	return &PostgresSyncRecordRepository{pool: pool}
}

const syncRecordColumns = `id, validation_session_id, crm_system, status,
	COALESCE(remote_record_id, ''), COALESCE(error_message, ''), retry_count,
	payload, created_at, synced_at`

func scanSyncRecord(row pgx.Row) (*models.SyncRecord, error) {
	var rec models.SyncRecord
	err := row.Scan(
		&rec.ID, &rec.ValidationSessionID, &rec.CRMSystem, &rec.Status,
		&rec.RemoteRecordID, &rec.ErrorMessage, &rec.RetryCount,
		&rec.Payload, &rec.CreatedAt, &rec.SyncedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync record: %w", err)
	}
	return &rec, nil
}

// Upsert relies on the unique (validation_session_id, crm_system) constraint:
// a second sync attempt for the same pair mutates the existing row. The
// GREATEST guard keeps retry_count from ever decreasing.
func (r *PostgresSyncRecordRepository) Upsert(ctx context.Context, record *models.SyncRecord) error {
	query := `INSERT INTO sync_records
              (validation_session_id, crm_system, status, remote_record_id,
               error_message, retry_count, payload, synced_at)
              VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
              ON CONFLICT (validation_session_id, crm_system) DO UPDATE SET
                  status = EXCLUDED.status,
                  remote_record_id = COALESCE(EXCLUDED.remote_record_id, sync_records.remote_record_id),
                  error_message = EXCLUDED.error_message,
                  retry_count = GREATEST(sync_records.retry_count, EXCLUDED.retry_count),
                  payload = EXCLUDED.payload,
                  synced_at = COALESCE(EXCLUDED.synced_at, sync_records.synced_at)
              RETURNING id, retry_count, created_at`

	err := r.pool.QueryRow(ctx, query,
		record.ValidationSessionID, record.CRMSystem, record.Status,
		record.RemoteRecordID, record.ErrorMessage, record.RetryCount,
		record.Payload, record.SyncedAt,
	).Scan(&record.ID, &record.RetryCount, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sync record: %w", err)
	}
	return nil
}

// Seed creates the pending placeholder row for a newly approved target
// system. DO NOTHING keeps a prior sync's status and payload intact when the
// pair already exists.
func (r *PostgresSyncRecordRepository) Seed(ctx context.Context, sessionID uuid.UUID, crmSystem string) error {
	query := `INSERT INTO sync_records (validation_session_id, crm_system, status)
              VALUES ($1, $2, $3)
              ON CONFLICT (validation_session_id, crm_system) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, sessionID, crmSystem, models.SyncPending); err != nil {
		return fmt.Errorf("failed to seed sync record: %w", err)
	}
	return nil
}

func (r *PostgresSyncRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE id = $1`
	return scanSyncRecord(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresSyncRecordRepository) GetBySessionAndSystem(ctx context.Context, sessionID uuid.UUID, crmSystem string) (*models.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records
              WHERE validation_session_id = $1 AND crm_system = $2`
	return scanSyncRecord(r.pool.QueryRow(ctx, query, sessionID, crmSystem))
}

func (r *PostgresSyncRecordRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records
              WHERE validation_session_id = $1 ORDER BY crm_system ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncRecord
	for rows.Next() {
		rec, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync records: %w", err)
	}
	return records, nil
}

func (r *PostgresSyncRecordRepository) ListByStatus(ctx context.Context, status models.SyncStatus, limit int) ([]*models.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records
              WHERE status = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records by status: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncRecord
	for rows.Next() {
		rec, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync records: %w", err)
	}
	return records, nil
}

func (r *PostgresSyncRecordRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SyncStatus, errorMessage string) error {
	query := `UPDATE sync_records
              SET status = $1,
                  error_message = NULLIF($2, ''),
                  synced_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE synced_at END
              WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, status, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to update sync record status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
