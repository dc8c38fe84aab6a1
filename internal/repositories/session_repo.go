package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/debriefhub/debriefhub/internal/models"
)

const sessionPrefix = "session:"
const userSessionsPrefix = "user:%s:sessions"

type RedisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func (r *RedisSessionRepository) Create(ctx context.Context, session *models.APISession) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Session key expires with the session itself.
	ttl := time.Until(session.ExpiresAt)
	key := sessionPrefix + session.ID

	if err := r.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	// Secondary index: set of session ids per user.
	userKey := fmt.Sprintf(userSessionsPrefix, session.UserID)
	if err := r.client.SAdd(ctx, userKey, session.ID).Err(); err != nil {
		return fmt.Errorf("failed to add session to user sessions: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) GetByID(ctx context.Context, id string) (*models.APISession, error) {
	jsonData, err := r.client.Get(ctx, sessionPrefix+id).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.APISession
	if err := json.Unmarshal([]byte(jsonData), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	session, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	userKey := fmt.Sprintf(userSessionsPrefix, session.UserID)
	if err := r.client.SRem(ctx, userKey, id).Err(); err != nil {
		return fmt.Errorf("failed to remove session from user sessions: %w", err)
	}

	if err := r.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	userKey := fmt.Sprintf(userSessionsPrefix, userID)
	sessionIDs, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get user sessions: %w", err)
	}

	for _, id := range sessionIDs {
		if err := r.Delete(ctx, id); err != nil && err != ErrNotFound {
			return fmt.Errorf("failed to delete session %s: %w", id, err)
		}
	}
	return nil
}
