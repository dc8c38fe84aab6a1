package crm

import (
	"fmt"
	"strings"
)

// FormatMeetingData returns the system-specific field map a client would send
// for the payload. The sync orchestrator snapshots this onto the SyncRecord so
// the persisted payload matches the data sent over the wire.
func FormatMeetingData(system System, p MeetingPayload) map[string]interface{} {
	switch system {
	case Salesforce:
		return salesforceMeetingFields(p)
	case HubSpot:
		return hubspotMeetingFields(p)
	case Creatio:
		return creatioMeetingFields(p)
	case SAPC4C:
		return sapC4CMeetingFields(p)
	}
	return nil
}

// meetingNotes renders the canonical payload as a plain-text notes block.
// Every system stores this in its own free-text field; the structured fields
// (stage, amount) are mapped separately per system.
func meetingNotes(p MeetingPayload) string {
	var b strings.Builder

	b.WriteString("Meeting Summary:\n")
	b.WriteString(p.Summary)

	if len(p.KeyPoints) > 0 {
		b.WriteString("\n\nKey Points:\n")
		for _, kp := range p.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
	}
	if len(p.ActionItems) > 0 {
		b.WriteString("\nAction Items:\n")
		for _, ai := range p.ActionItems {
			fmt.Fprintf(&b, "- %s\n", ai)
		}
	}
	if len(p.NextSteps) > 0 {
		b.WriteString("\nNext Steps:\n")
		for _, ns := range p.NextSteps {
			fmt.Fprintf(&b, "- %s\n", ns)
		}
	}
	if p.DurationMinutes > 0 {
		fmt.Fprintf(&b, "\nDuration: %d minutes", p.DurationMinutes)
	}

	return strings.TrimRight(b.String(), "\n")
}
