package crm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/debriefhub/debriefhub/internal/config"
)

// System identifies one of the supported CRM integrations. The set is closed:
// adding a system means adding a case to NewClient and a client implementation.
type System string

const (
	Salesforce System = "salesforce"
	HubSpot    System = "hubspot"
	Creatio    System = "creatio"
	SAPC4C     System = "sapc4c"
)

// ParseSystem validates a CRM system identifier from the API or the database.
func ParseSystem(s string) (System, error) {
	switch System(s) {
	case Salesforce, HubSpot, Creatio, SAPC4C:
		return System(s), nil
	}
	return "", fmt.Errorf("unknown CRM system %q", s)
}

// MeetingPayload is the canonical internal representation of a validated
// meeting outcome. Each client maps it onto its own field names.
type MeetingPayload struct {
	Summary         string
	KeyPoints       []string
	ActionItems     []string
	NextSteps       []string
	DurationMinutes int
	Stage           string
	Amount          float64
}

// TaskPayload is the canonical representation of one follow-up task.
type TaskPayload struct {
	Subject     string
	Description string
	DueDate     time.Time
}

// Client wraps one external CRM's REST API behind a uniform interface.
// Implementations handle authentication, rate limiting and retries internally;
// callers only see the typed errors declared in errors.go.
type Client interface {
	System() System

	// UpdateRecord pushes a meeting outcome onto the opportunity/deal record
	// and returns the remote record id.
	UpdateRecord(ctx context.Context, recordID string, p MeetingPayload) (string, error)

	// CreateTask creates one follow-up task attached to the record and returns
	// the remote task id.
	CreateTask(ctx context.Context, recordID string, t TaskPayload) (string, error)

	UpdateOpportunityStage(ctx context.Context, recordID, stage string) error

	GetOpportunityDetails(ctx context.Context, recordID string) (map[string]interface{}, error)
}

// NewClient builds the client for a system from its credentials. The switch is
// exhaustive over the System enum.
func NewClient(system System, creds config.CRMCredentials, logger *slog.Logger) (Client, error) {
	base := newBaseClient(system, creds, logger)
	switch system {
	case Salesforce:
		return &salesforceClient{base}, nil
	case HubSpot:
		return &hubspotClient{base}, nil
	case Creatio:
		return &creatioClient{base}, nil
	case SAPC4C:
		return &sapC4CClient{base}, nil
	}
	return nil, fmt.Errorf("unknown CRM system %q", system)
}

// NewClients builds one client per configured system.
func NewClients(cfg map[string]config.CRMCredentials, logger *slog.Logger) (map[System]Client, error) {
	clients := make(map[System]Client, len(cfg))
	for name, creds := range cfg {
		system, err := ParseSystem(name)
		if err != nil {
			return nil, err
		}
		client, err := NewClient(system, creds, logger)
		if err != nil {
			return nil, err
		}
		clients[system] = client
	}
	return clients, nil
}
