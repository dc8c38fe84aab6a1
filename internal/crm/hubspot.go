package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

type hubspotClient struct {
	*baseClient
}

func (c *hubspotClient) System() System { return HubSpot }

// hubspotMeetingFields maps the canonical payload onto HubSpot deal
// properties. HubSpot property values are strings on the wire.
func hubspotMeetingFields(p MeetingPayload) map[string]interface{} {
	props := map[string]string{
		"meeting_notes": meetingNotes(p),
	}
	if p.Stage != "" {
		props["dealstage"] = p.Stage
	}
	if p.Amount > 0 {
		props["amount"] = strconv.FormatFloat(p.Amount, 'f', -1, 64)
	}
	return map[string]interface{}{"properties": props}
}

func (c *hubspotClient) formatTaskData(t TaskPayload) map[string]interface{} {
	return map[string]interface{}{
		"properties": map[string]string{
			"hs_task_subject": t.Subject,
			"hs_task_body":    t.Description,
			"hs_task_status":  "NOT_STARTED",
			"hs_timestamp":    strconv.FormatInt(t.DueDate.UnixMilli(), 10),
		},
	}
}

func (c *hubspotClient) UpdateRecord(ctx context.Context, recordID string, p MeetingPayload) (string, error) {
	path := "/crm/v3/objects/deals/" + recordID
	if _, err := c.doJSON(ctx, http.MethodPatch, path, hubspotMeetingFields(p)); err != nil {
		return "", err
	}
	return recordID, nil
}

func (c *hubspotClient) CreateTask(ctx context.Context, recordID string, t TaskPayload) (string, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/tasks", c.formatTaskData(t))
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to parse task response: %w", err)
	}

	// Associate the task with its deal; association failure does not undo the
	// task creation.
	assocPath := fmt.Sprintf("/crm/v3/objects/tasks/%s/associations/deals/%s/task_to_deal", created.ID, recordID)
	if _, err := c.doJSON(ctx, http.MethodPut, assocPath, nil); err != nil {
		c.logger.Warn("failed to associate task with deal", "task_id", created.ID, "deal_id", recordID, "error", err)
	}

	return created.ID, nil
}

func (c *hubspotClient) UpdateOpportunityStage(ctx context.Context, recordID, stage string) error {
	path := "/crm/v3/objects/deals/" + recordID
	body := map[string]interface{}{"properties": map[string]string{"dealstage": stage}}
	_, err := c.doJSON(ctx, http.MethodPatch, path, body)
	return err
}

func (c *hubspotClient) GetOpportunityDetails(ctx context.Context, recordID string) (map[string]interface{}, error) {
	path := "/crm/v3/objects/deals/" + recordID
	body, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID         string                 `json:"id"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse deal response: %w", err)
	}

	details := resp.Properties
	if details == nil {
		details = map[string]interface{}{}
	}
	details["id"] = resp.ID
	return details, nil
}
