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

type PostgresDebriefingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDebriefingRepository(pool *pgxpool.Pool) *PostgresDebriefingRepository {
	return &PostgresDebriefingRepository{pool: pool}
}

const debriefingColumns = `id, meeting_id, user_id, status, current_question,
	started_at, completed_at, expires_at, created_at`

func scanDebriefingSession(row pgx.Row) (*models.DebriefingSession, error) {
	var s models.DebriefingSession
	err := row.Scan(
		&s.ID, &s.MeetingID, &s.UserID, &s.Status, &s.CurrentQuestion,
		&s.StartedAt, &s.CompletedAt, &s.ExpiresAt, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan debriefing session: %w", err)
	}
	return &s, nil
}

func (r *PostgresDebriefingRepository) CreateSession(ctx context.Context, session *models.DebriefingSession) error {
	query := `INSERT INTO debriefing_sessions (meeting_id, user_id, status, current_question, expires_at)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		session.MeetingID, session.UserID, session.Status, session.CurrentQuestion, session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create debriefing session: %w", err)
	}
	return nil
}

func (r *PostgresDebriefingRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.DebriefingSession, error) {
	query := `SELECT ` + debriefingColumns + ` FROM debriefing_sessions WHERE id = $1`
	return scanDebriefingSession(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresDebriefingRepository) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]*models.DebriefingSession, error) {
	query := `SELECT ` + debriefingColumns + ` FROM debriefing_sessions
              WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debriefing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.DebriefingSession
	for rows.Next() {
		s, err := scanDebriefingSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debriefing sessions: %w", err)
	}
	return sessions, nil
}

func (r *PostgresDebriefingRepository) UpdateSession(ctx context.Context, session *models.DebriefingSession) error {
	query := `UPDATE debriefing_sessions
              SET status = $1, current_question = $2, started_at = $3, completed_at = $4, expires_at = $5
              WHERE id = $6`

	result, err := r.pool.Exec(ctx, query,
		session.Status, session.CurrentQuestion, session.StartedAt,
		session.CompletedAt, session.ExpiresAt, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debriefing session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDebriefingRepository) ListOverdue(ctx context.Context, now time.Time) ([]*models.DebriefingSession, error) {
	query := `SELECT ` + debriefingColumns + ` FROM debriefing_sessions
              WHERE status IN ('scheduled', 'in_progress') AND expires_at < $1`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.DebriefingSession
	for rows.Next() {
		s, err := scanDebriefingSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overdue sessions: %w", err)
	}
	return sessions, nil
}

func (r *PostgresDebriefingRepository) CreateQuestion(ctx context.Context, question *models.DebriefingQuestion) error {
	query := `INSERT INTO debriefing_questions (session_id, sequence, prompt)
              VALUES ($1, $2, $3)
              RETURNING id`

	err := r.pool.QueryRow(ctx, query, question.SessionID, question.Sequence, question.Prompt).
		Scan(&question.ID)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (r *PostgresDebriefingRepository) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingQuestion, error) {
	query := `SELECT id, session_id, sequence, prompt, COALESCE(answer, ''), answered_at
              FROM debriefing_questions
              WHERE session_id = $1 ORDER BY sequence ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.DebriefingQuestion
	for rows.Next() {
		var q models.DebriefingQuestion
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Sequence, &q.Prompt, &q.Answer, &q.AnsweredAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

func (r *PostgresDebriefingRepository) AnswerQuestion(ctx context.Context, questionID uuid.UUID, answer string, answeredAt time.Time) error {
	query := `UPDATE debriefing_questions SET answer = $1, answered_at = $2 WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, answer, answeredAt, questionID)
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresDebriefingRepository) CreateInsight(ctx context.Context, insight *models.DebriefingInsight) error {
	query := `INSERT INTO debriefing_insights (session_id, category, content, confidence)
              VALUES ($1, $2, $3, $4)
              RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		insight.SessionID, insight.Category, insight.Content, insight.Confidence,
	).Scan(&insight.ID, &insight.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create insight: %w", err)
	}
	return nil
}

func (r *PostgresDebriefingRepository) ListInsights(ctx context.Context, sessionID uuid.UUID) ([]*models.DebriefingInsight, error) {
	query := `SELECT id, session_id, category, content, confidence, created_at
              FROM debriefing_insights
              WHERE session_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	var insights []*models.DebriefingInsight
	for rows.Next() {
		var in models.DebriefingInsight
		if err := rows.Scan(&in.ID, &in.SessionID, &in.Category, &in.Content, &in.Confidence, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, &in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}
	return insights, nil
}
