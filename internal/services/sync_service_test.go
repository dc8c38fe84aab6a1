package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/events"
	"github.com/debriefhub/debriefhub/internal/models"
)

type syncFixture struct {
	service     *SyncService
	client      *fakeCRMClient
	records     *fakeSyncRecords
	validations *fakeValidations
	debriefings *fakeDebriefings
	meetings    *fakeMeetings
	leads       *fakeLeads
	cache       *fakeCache
	publisher   *fakePublisher

	sessionID uuid.UUID
	meetingID uuid.UUID
	leadID    uuid.UUID
}

// newSyncFixture wires a completed validation session, its debriefing and
// meeting, and a lead linked to Salesforce record "sf-001".
func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	ctx := context.Background()

	f := &syncFixture{
		client:      &fakeCRMClient{system: crm.Salesforce},
		records:     newFakeSyncRecords(),
		validations: newFakeValidations(),
		debriefings: newFakeDebriefings(),
		meetings:    newFakeMeetings(),
		leads:       newFakeLeads(),
		cache:       newFakeCache(),
		publisher:   &fakePublisher{},
	}

	lead := &models.Lead{
		Name:   "Acme Corp",
		CRMIDs: map[string]string{"salesforce": "sf-001"},
	}
	require.NoError(t, f.leads.Create(ctx, lead))
	f.leadID = lead.ID

	meeting := &models.Meeting{
		UserID:          uuid.New(),
		LeadID:          &lead.ID,
		Title:           "Renewal call",
		ScheduledAt:     time.Now(),
		DurationMinutes: 30,
	}
	require.NoError(t, f.meetings.Create(ctx, meeting))
	f.meetingID = meeting.ID

	debriefing := &models.DebriefingSession{
		MeetingID: meeting.ID,
		UserID:    meeting.UserID,
		Status:    models.DebriefingCompleted,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.debriefings.CreateSession(ctx, debriefing))

	validation := &models.ValidationSession{
		DebriefingSessionID: debriefing.ID,
		Status:              models.ValidationCompleted,
		ApprovedSummary:     "Discussed renewal",
		ApprovedActionItems: []string{"Send proposal", "Book demo"},
		ApprovedCRMUpdates:  map[string]interface{}{"stage": "Negotiation", "amount": 12000.0},
	}
	require.NoError(t, f.validations.Create(ctx, validation))
	f.sessionID = validation.ID

	tracker := NewSyncTracker(newFakeTracking(), f.meetings, slog.Default())
	f.service = NewSyncService(
		map[crm.System]crm.Client{crm.Salesforce: f.client},
		f.records, f.validations, f.debriefings, f.meetings, f.leads,
		f.cache, tracker, f.publisher, slog.Default(),
	)
	return f
}

func TestSyncMeetingOutcome_Success(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	result, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	assert.Equal(t, models.SyncCompleted, result.Status)
	assert.Equal(t, "sf-001", result.RemoteRecordID)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, f.client.updateCalls)

	// Approved CRM updates flow into the payload.
	assert.Equal(t, "Negotiation", f.client.lastPayload.Stage)
	assert.Equal(t, 12000.0, f.client.lastPayload.Amount)

	// The persisted record snapshots system-specific field names.
	record, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, models.SyncCompleted, record.Status)
	assert.Equal(t, "Negotiation", record.Payload["StageName"])
	assert.NotNil(t, record.SyncedAt)

	assert.Equal(t, []string{events.SubjectSyncStarted, events.SubjectSyncCompleted}, f.publisher.subjects())
}

func TestSyncMeetingOutcome_SecondCallHitsCache(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	result, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, models.SyncCompleted, result.Status)
	assert.Equal(t, "sf-001", result.RemoteRecordID)
	assert.Equal(t, 1, f.client.updateCalls, "cached result must not hit the remote again")
}

func TestSyncMeetingOutcome_FailureBecomesResultNotError(t *testing.T) {
	f := newSyncFixture(t)
	f.client.updateErr = &crm.APIError{System: crm.Salesforce, StatusCode: 500, Message: "boom"}
	ctx := context.Background()

	result, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err, "CRM failures surface as result objects")

	assert.Equal(t, models.SyncFailed, result.Status)
	assert.Contains(t, result.Error, "boom")

	record, rerr := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, rerr)
	assert.Equal(t, models.SyncFailed, record.Status)
	assert.Contains(t, record.ErrorMessage, "boom")

	assert.Equal(t, []string{events.SubjectSyncStarted, events.SubjectSyncFailed}, f.publisher.subjects())
}

func TestSyncMeetingOutcome_LeadNotLinked(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	lead, err := f.leads.GetByID(ctx, f.leadID)
	require.NoError(t, err)
	lead.CRMIDs = map[string]string{"hubspot": "deal-9"}

	result, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	assert.Equal(t, models.SyncFailed, result.Status)
	assert.Equal(t, crm.ErrLeadNotLinked.Error(), result.Error)
	assert.Zero(t, f.client.updateCalls, "no remote call without a linked record")
}

func TestSyncMeetingOutcome_ValidationNotCompleted(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	session, err := f.validations.GetByID(ctx, f.sessionID)
	require.NoError(t, err)
	session.Status = models.ValidationInReview

	_, err = f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	assert.ErrorIs(t, err, ErrValidationNotCompleted)
}

func TestSyncMeetingOutcome_UnconfiguredSystem(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.service.SyncMeetingOutcome(context.Background(), f.sessionID, crm.HubSpot)
	assert.ErrorIs(t, err, ErrSystemNotConfigured)
}

func TestRetryFailedSync_ClearsCacheAndIncrementsRetryCount(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.client.updateErr = &crm.APIError{System: crm.Salesforce, StatusCode: 503, Message: "unavailable"}
	_, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	record, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, 0, record.RetryCount)

	// Remote recovers; the retry succeeds and bumps the count.
	f.client.updateErr = nil
	result, err := f.service.RetryFailedSync(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncCompleted, result.Status)

	record, err = f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, 1, record.RetryCount)
	assert.Empty(t, record.ErrorMessage)
}

func TestRetryFailedSync_RetryCountNeverDecreases(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.client.updateErr = &crm.APIError{System: crm.Salesforce, StatusCode: 503, Message: "down"}
	_, err := f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	record, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)

	// Two failed retries, then a plain re-sync with retryCount 0.
	for i := 0; i < 2; i++ {
		_, err = f.service.RetryFailedSync(ctx, record.ID)
		require.NoError(t, err)
	}
	_, err = f.service.SyncMeetingOutcome(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)

	record, err = f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, 2, record.RetryCount, "a later attempt cannot shrink the retry count")
}

func TestCreateFollowUpTasks_PartialFailure(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	results, err := f.service.CreateFollowUpTasks(ctx, f.sessionID, crm.Salesforce)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Empty(t, r.Error)
		assert.NotEmpty(t, r.RemoteTaskID)
	}
	assert.Equal(t, 2, f.client.taskCalls)
}

func TestSyncToMultipleCRMs_OneFailureDoesNotBlockOthers(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	hubspot := &fakeCRMClient{
		system:    crm.HubSpot,
		updateErr: &crm.APIError{System: crm.HubSpot, StatusCode: 500, Message: "hub down"},
	}
	f.service.clients[crm.HubSpot] = hubspot

	lead, err := f.leads.GetByID(ctx, f.leadID)
	require.NoError(t, err)
	lead.CRMIDs["hubspot"] = "deal-7"

	results := f.service.SyncToMultipleCRMs(ctx, f.sessionID, []crm.System{crm.HubSpot, crm.Salesforce})
	require.Len(t, results, 2)

	assert.Equal(t, models.SyncFailed, results["hubspot"].Status)
	assert.Equal(t, models.SyncCompleted, results["salesforce"].Status)
	assert.Equal(t, 1, f.client.updateCalls)
}
