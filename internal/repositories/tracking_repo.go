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

const (
	trackedOpPrefix       = "syncop:"
	meetingOpsPrefix      = "meeting:%s:syncops"
)

// RedisTrackingRepository stores TrackedOperation entries: one key per entry
// plus a per-meeting list of tracking ids, both TTL'd. When an entry key
// expires before the list does, ListByMeeting simply skips it.
type RedisTrackingRepository struct {
	client *redis.Client
}

func NewRedisTrackingRepository(client *redis.Client) *RedisTrackingRepository {
	return &RedisTrackingRepository{client: client}
}

func (r *RedisTrackingRepository) Put(ctx context.Context, op *models.TrackedOperation, ttl time.Duration) error {
	jsonData, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal tracked operation: %w", err)
	}

	if err := r.client.Set(ctx, trackedOpPrefix+op.TrackingID, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set tracked operation: %w", err)
	}

	meetingKey := fmt.Sprintf(meetingOpsPrefix, op.MeetingID)
	if err := r.client.RPush(ctx, meetingKey, op.TrackingID).Err(); err != nil {
		return fmt.Errorf("failed to append tracking id to meeting list: %w", err)
	}
	if err := r.client.Expire(ctx, meetingKey, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set meeting list TTL: %w", err)
	}
	return nil
}

func (r *RedisTrackingRepository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*models.TrackedOperation, error) {
	meetingKey := fmt.Sprintf(meetingOpsPrefix, meetingID)
	trackingIDs, err := r.client.LRange(ctx, meetingKey, 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting tracking ids: %w", err)
	}

	var ops []*models.TrackedOperation
	for _, id := range trackingIDs {
		jsonData, err := r.client.Get(ctx, trackedOpPrefix+id).Result()
		if err == redis.Nil {
			// Entry evicted; history is best-effort.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get tracked operation %s: %w", id, err)
		}

		var op models.TrackedOperation
		if err := json.Unmarshal([]byte(jsonData), &op); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tracked operation %s: %w", id, err)
		}
		ops = append(ops, &op)
	}
	return ops, nil
}
