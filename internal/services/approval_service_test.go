package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debriefhub/debriefhub/internal/crm"
	"github.com/debriefhub/debriefhub/internal/models"
)

func newApprovalFixture(t *testing.T) (*ApprovalService, *syncFixture) {
	t.Helper()
	f := newSyncFixture(t)
	return NewApprovalService(f.validations, f.records, f.service, slog.Default()), f
}

func TestApproveCRMUpdates_CompletesSessionAndSyncs(t *testing.T) {
	approval, f := newApprovalFixture(t)
	ctx := context.Background()

	// Start from an in-review session; approval must complete it.
	session, err := f.validations.GetByID(ctx, f.sessionID)
	require.NoError(t, err)
	session.Status = models.ValidationInReview
	session.CompletedAt = nil

	results, err := approval.ApproveCRMUpdates(ctx, f.sessionID, []crm.System{crm.Salesforce})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.SyncCompleted, results["salesforce"].Status)

	session, err = f.validations.GetByID(ctx, f.sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.ValidationCompleted, session.Status)
	assert.NotNil(t, session.CompletedAt)

	record, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, models.SyncCompleted, record.Status)
}

func TestRejectCRMUpdates_ClearsProposedUpdates(t *testing.T) {
	approval, f := newApprovalFixture(t)
	ctx := context.Background()

	require.NoError(t, approval.RejectCRMUpdates(ctx, f.sessionID))

	session, err := f.validations.GetByID(ctx, f.sessionID)
	require.NoError(t, err)
	assert.Empty(t, session.ApprovedCRMUpdates)
	assert.Equal(t, models.ValidationInReview, session.Status)
	assert.Nil(t, session.CompletedAt)
	// The rest of the approved content survives.
	assert.Equal(t, "Discussed renewal", session.ApprovedSummary)
}

func TestApproveCRMUpdates_ReapprovalKeepsSyncedRecord(t *testing.T) {
	approval, f := newApprovalFixture(t)
	ctx := context.Background()

	results, err := approval.ApproveCRMUpdates(ctx, f.sessionID, []crm.System{crm.Salesforce})
	require.NoError(t, err)
	require.Equal(t, models.SyncCompleted, results["salesforce"].Status)

	// Approving again returns the cached success and must not disturb the
	// persisted record or its payload snapshot.
	results, err = approval.ApproveCRMUpdates(ctx, f.sessionID, []crm.System{crm.Salesforce})
	require.NoError(t, err)
	assert.True(t, results["salesforce"].Cached)

	record, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, models.SyncCompleted, record.Status)
	assert.Equal(t, "Negotiation", record.Payload["StageName"])
	assert.NotNil(t, record.SyncedAt)
	assert.Equal(t, 1, f.client.updateCalls)
}

func TestSubmitReview_AppliesCorrectionsAndCompletes(t *testing.T) {
	approval, f := newApprovalFixture(t)
	ctx := context.Background()

	session, err := f.validations.GetByID(ctx, f.sessionID)
	require.NoError(t, err)
	session.Status = models.ValidationPending
	session.CompletedAt = nil

	summary := "Corrected summary"
	updated, err := approval.SubmitReview(ctx, f.sessionID, ValidationReview{
		Summary:    &summary,
		NextSteps:  []string{"Send contract"},
		CRMUpdates: map[string]interface{}{"stage": "Proposal", "amount": 75000.0},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ValidationCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "Corrected summary", updated.ApprovedSummary)
	assert.Equal(t, []string{"Send contract"}, updated.ApprovedNextSteps)
	assert.Equal(t, "Proposal", updated.ApprovedCRMUpdates["stage"])
	// Untouched fields keep the proposed values.
	assert.Equal(t, []string{"Send proposal", "Book demo"}, updated.ApprovedActionItems)

	// A completed session cannot be edited again.
	_, err = approval.SubmitReview(ctx, f.sessionID, ValidationReview{Summary: &summary})
	assert.ErrorIs(t, err, ErrValidationAlreadyCompleted)
}

func TestReviewApproveSync_TwoSystems(t *testing.T) {
	approval, f := newApprovalFixture(t)
	ctx := context.Background()

	hubspot := &fakeCRMClient{system: crm.HubSpot}
	f.service.clients[crm.HubSpot] = hubspot

	lead, err := f.leads.GetByID(ctx, f.leadID)
	require.NoError(t, err)
	lead.CRMIDs["hubspot"] = "deal-7"

	// Reopen the session, submit corrected updates, then approve both systems.
	require.NoError(t, approval.RejectCRMUpdates(ctx, f.sessionID))

	_, err = approval.SubmitReview(ctx, f.sessionID, ValidationReview{
		CRMUpdates: map[string]interface{}{"stage": "Proposal", "amount": 75000.0},
	})
	require.NoError(t, err)

	results, err := approval.ApproveCRMUpdates(ctx, f.sessionID, []crm.System{crm.Salesforce, crm.HubSpot})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.SyncCompleted, results["salesforce"].Status)
	assert.Equal(t, models.SyncCompleted, results["hubspot"].Status)

	records, err := f.records.ListBySession(ctx, f.sessionID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	sf, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "salesforce")
	require.NoError(t, err)
	assert.Equal(t, "Proposal", sf.Payload["StageName"])
	assert.Equal(t, 75000.0, sf.Payload["Amount"])

	hs, err := f.records.GetBySessionAndSystem(ctx, f.sessionID, "hubspot")
	require.NoError(t, err)
	props, ok := hs.Payload["properties"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Proposal", props["dealstage"])
	assert.Equal(t, "75000", props["amount"])
}
