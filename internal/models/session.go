package models

import (
	"time"

	"github.com/google/uuid"
)

// APISession is a rep's login session, held in Redis with a TTL.
type APISession struct {
	ID        string    `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
