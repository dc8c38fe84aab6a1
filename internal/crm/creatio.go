package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const creatioODataPath = "/0/odata"

type creatioClient struct {
	*baseClient
}

func (c *creatioClient) System() System { return Creatio }

// creatioMeetingFields maps the canonical payload onto Creatio OData
// Opportunity columns. Custom columns follow Creatio's Usr prefix convention.
func creatioMeetingFields(p MeetingPayload) map[string]interface{} {
	fields := map[string]interface{}{
		"UsrMeetingNotes": meetingNotes(p),
	}
	if p.Stage != "" {
		fields["UsrStage"] = p.Stage
	}
	if p.Amount > 0 {
		fields["Amount"] = p.Amount
	}
	return fields
}

func (c *creatioClient) formatTaskData(recordID string, t TaskPayload) map[string]interface{} {
	return map[string]interface{}{
		"Title":         t.Subject,
		"DetailedResult": t.Description,
		"DueDate":       t.DueDate.Format("2006-01-02T15:04:05Z"),
		"OpportunityId": recordID,
	}
}

func (c *creatioClient) UpdateRecord(ctx context.Context, recordID string, p MeetingPayload) (string, error) {
	path := fmt.Sprintf("%s/Opportunity(%s)", creatioODataPath, recordID)
	if _, err := c.doJSON(ctx, http.MethodPatch, path, creatioMeetingFields(p)); err != nil {
		return "", err
	}
	return recordID, nil
}

func (c *creatioClient) CreateTask(ctx context.Context, recordID string, t TaskPayload) (string, error) {
	body, err := c.doJSON(ctx, http.MethodPost, creatioODataPath+"/Activity", c.formatTaskData(recordID, t))
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to parse activity response: %w", err)
	}
	return created.ID, nil
}

func (c *creatioClient) UpdateOpportunityStage(ctx context.Context, recordID, stage string) error {
	path := fmt.Sprintf("%s/Opportunity(%s)", creatioODataPath, recordID)
	_, err := c.doJSON(ctx, http.MethodPatch, path, map[string]interface{}{"UsrStage": stage})
	return err
}

func (c *creatioClient) GetOpportunityDetails(ctx context.Context, recordID string) (map[string]interface{}, error) {
	path := fmt.Sprintf("%s/Opportunity(%s)", creatioODataPath, recordID)
	body, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var details map[string]interface{}
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("failed to parse opportunity response: %w", err)
	}
	return details, nil
}
