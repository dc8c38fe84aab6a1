package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const c4cODataPath = "/sap/c4c/odata/v1/c4codataapi"

type sapC4CClient struct {
	*baseClient
}

func (c *sapC4CClient) System() System { return SAPC4C }

// sapC4CMeetingFields maps the canonical payload onto SAP C4C opportunity fields.
func sapC4CMeetingFields(p MeetingPayload) map[string]interface{} {
	fields := map[string]interface{}{
		"Z_MeetingNotes_KUT": meetingNotes(p),
	}
	if p.Stage != "" {
		fields["SalesStageCode"] = p.Stage
	}
	if p.Amount > 0 {
		fields["ExpectedRevenueAmount"] = fmt.Sprintf("%.2f", p.Amount)
	}
	return fields
}

func (c *sapC4CClient) formatTaskData(recordID string, t TaskPayload) map[string]interface{} {
	return map[string]interface{}{
		"SubjectName":        t.Subject,
		"Notes":              t.Description,
		"DueDateTime":        t.DueDate.Format("2006-01-02T15:04:05Z"),
		"OpportunityID":      recordID,
		"LifeCycleStatusCode": "1",
	}
}

func (c *sapC4CClient) UpdateRecord(ctx context.Context, recordID string, p MeetingPayload) (string, error) {
	path := fmt.Sprintf("%s/OpportunityCollection('%s')", c4cODataPath, recordID)
	if _, err := c.doJSON(ctx, http.MethodPatch, path, sapC4CMeetingFields(p)); err != nil {
		return "", err
	}
	return recordID, nil
}

func (c *sapC4CClient) CreateTask(ctx context.Context, recordID string, t TaskPayload) (string, error) {
	body, err := c.doJSON(ctx, http.MethodPost, c4cODataPath+"/TaskCollection", c.formatTaskData(recordID, t))
	if err != nil {
		return "", err
	}

	// C4C wraps single results in a "d" envelope.
	var created struct {
		D struct {
			ObjectID string `json:"ObjectID"`
		} `json:"d"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to parse task response: %w", err)
	}
	return created.D.ObjectID, nil
}

func (c *sapC4CClient) UpdateOpportunityStage(ctx context.Context, recordID, stage string) error {
	path := fmt.Sprintf("%s/OpportunityCollection('%s')", c4cODataPath, recordID)
	_, err := c.doJSON(ctx, http.MethodPatch, path, map[string]interface{}{"SalesStageCode": stage})
	return err
}

func (c *sapC4CClient) GetOpportunityDetails(ctx context.Context, recordID string) (map[string]interface{}, error) {
	path := fmt.Sprintf("%s/OpportunityCollection('%s')", c4cODataPath, recordID)
	body, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		D map[string]interface{} `json:"d"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse opportunity response: %w", err)
	}
	if resp.D == nil {
		return map[string]interface{}{}, nil
	}
	return resp.D, nil
}
