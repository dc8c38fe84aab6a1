// Package events publishes sync and debriefing lifecycle events to NATS so
// downstream consumers (dashboards, the websocket layer) can react without
// polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects published by this service.
const (
	SubjectSyncStarted         = "debrief.sync.started"
	SubjectSyncCompleted       = "debrief.sync.completed"
	SubjectSyncFailed          = "debrief.sync.failed"
	SubjectDebriefingCompleted = "debrief.debriefing.completed"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
	Close()
}

type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.DrainTimeout(10*time.Second),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				logger.Error("async NATS error", "error", err, "subject", s.Subject)
			} else {
				logger.Error("async NATS error outside subscription", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn.IsClosed() || p.conn.IsDraining() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Error("error draining NATS connection", "error", err)
	}
}

// NoopPublisher is used when NATS is not configured and in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NoopPublisher) Close() {}
