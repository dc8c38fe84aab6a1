package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePayload = MeetingPayload{
	Summary:         "Discussed renewal terms",
	KeyPoints:       []string{"Budget confirmed", "Timeline is Q3"},
	ActionItems:     []string{"Send proposal"},
	NextSteps:       []string{"Schedule technical review"},
	DurationMinutes: 45,
	Stage:           "Negotiation",
	Amount:          25000,
}

func TestFormatMeetingData_Salesforce(t *testing.T) {
	fields := FormatMeetingData(Salesforce, samplePayload)

	assert.Equal(t, "Negotiation", fields["StageName"])
	assert.Equal(t, 25000.0, fields["Amount"])
	assert.Equal(t, "Schedule technical review", fields["NextStep"])
	assert.Contains(t, fields["Description"], "Discussed renewal terms")
	assert.Contains(t, fields["Description"], "- Budget confirmed")
}

func TestFormatMeetingData_HubSpot(t *testing.T) {
	fields := FormatMeetingData(HubSpot, samplePayload)

	props, ok := fields["properties"].(map[string]string)
	require.True(t, ok, "hubspot fields must be nested under properties")
	assert.Equal(t, "Negotiation", props["dealstage"])
	assert.Equal(t, "25000", props["amount"])
	assert.Contains(t, props["meeting_notes"], "Send proposal")
}

func TestFormatMeetingData_Creatio(t *testing.T) {
	fields := FormatMeetingData(Creatio, samplePayload)

	assert.Equal(t, "Negotiation", fields["UsrStage"])
	assert.Equal(t, 25000.0, fields["Amount"])
	assert.Contains(t, fields["UsrMeetingNotes"], "Timeline is Q3")
}

func TestFormatMeetingData_SAPC4C(t *testing.T) {
	fields := FormatMeetingData(SAPC4C, samplePayload)

	assert.Equal(t, "Negotiation", fields["SalesStageCode"])
	assert.Equal(t, "25000.00", fields["ExpectedRevenueAmount"])
	assert.Contains(t, fields["Z_MeetingNotes_KUT"], "Discussed renewal terms")
}

func TestFormatMeetingData_OmitsEmptyOptionalFields(t *testing.T) {
	minimal := MeetingPayload{Summary: "Quick chat"}

	fields := FormatMeetingData(Salesforce, minimal)
	assert.NotContains(t, fields, "StageName")
	assert.NotContains(t, fields, "Amount")
	assert.NotContains(t, fields, "NextStep")

	props := FormatMeetingData(HubSpot, minimal)["properties"].(map[string]string)
	assert.NotContains(t, props, "dealstage")
	assert.NotContains(t, props, "amount")
}

func TestMeetingNotes_IncludesDuration(t *testing.T) {
	notes := meetingNotes(samplePayload)
	assert.Contains(t, notes, "Duration: 45 minutes")
}

func TestParseSystem(t *testing.T) {
	for _, name := range []string{"salesforce", "hubspot", "creatio", "sapc4c"} {
		system, err := ParseSystem(name)
		require.NoError(t, err)
		assert.Equal(t, name, string(system))
	}

	_, err := ParseSystem("dynamics")
	assert.Error(t, err)
}
