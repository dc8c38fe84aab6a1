package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const salesforceAPIPath = "/services/data/v58.0/sobjects"

type salesforceClient struct {
	*baseClient
}

func (c *salesforceClient) System() System { return Salesforce }

// salesforceMeetingFields maps the canonical payload onto Salesforce
// Opportunity fields.
func salesforceMeetingFields(p MeetingPayload) map[string]interface{} {
	fields := map[string]interface{}{
		"Description": meetingNotes(p),
	}
	if p.Stage != "" {
		fields["StageName"] = p.Stage
	}
	if p.Amount > 0 {
		fields["Amount"] = p.Amount
	}
	if len(p.NextSteps) > 0 {
		fields["NextStep"] = strings.Join(p.NextSteps, "; ")
	}
	return fields
}

func (c *salesforceClient) formatTaskData(recordID string, t TaskPayload) map[string]interface{} {
	return map[string]interface{}{
		"Subject":      t.Subject,
		"Description":  t.Description,
		"WhatId":       recordID,
		"ActivityDate": t.DueDate.Format("2006-01-02"),
		"Status":       "Not Started",
	}
}

func (c *salesforceClient) UpdateRecord(ctx context.Context, recordID string, p MeetingPayload) (string, error) {
	path := fmt.Sprintf("%s/Opportunity/%s", salesforceAPIPath, recordID)
	if _, err := c.doJSON(ctx, http.MethodPatch, path, salesforceMeetingFields(p)); err != nil {
		return "", err
	}
	return recordID, nil
}

func (c *salesforceClient) CreateTask(ctx context.Context, recordID string, t TaskPayload) (string, error) {
	body, err := c.doJSON(ctx, http.MethodPost, salesforceAPIPath+"/Task", c.formatTaskData(recordID, t))
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("failed to parse task response: %w", err)
	}
	return created.ID, nil
}

func (c *salesforceClient) UpdateOpportunityStage(ctx context.Context, recordID, stage string) error {
	path := fmt.Sprintf("%s/Opportunity/%s", salesforceAPIPath, recordID)
	_, err := c.doJSON(ctx, http.MethodPatch, path, map[string]interface{}{"StageName": stage})
	return err
}

func (c *salesforceClient) GetOpportunityDetails(ctx context.Context, recordID string) (map[string]interface{}, error) {
	path := fmt.Sprintf("%s/Opportunity/%s", salesforceAPIPath, recordID)
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
