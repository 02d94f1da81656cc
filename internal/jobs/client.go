// Package jobs triggers the downstream batch job that republishes derived
// surveillance products after an edit.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wastewater-dashboards/surveillance-review/internal/models"
)

// TriggerError reports a failed or rejected job submission.
type TriggerError struct {
	JobID  string
	Status int
	Body   string
	Err    error
}

func (e *TriggerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("trigger job %s: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("trigger job %s: unexpected status %d: %s", e.JobID, e.Status, e.Body)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// Parameters are sent as the job's runtime parameters.
type Parameters struct {
	User    string                 `json:"user"`
	Changes []models.AuditLogEntry `json:"changes"`
}

type request struct {
	JobID         string     `json:"job_id"`
	JobParameters Parameters `json:"job_parameters"`
}

// Client posts run requests to a job execution endpoint.
type Client struct {
	http  *http.Client
	url   string
	jobID string
	token string
}

// NewClient returns nil when url is empty so callers can treat the trigger as
// optional.
func NewClient(httpClient *http.Client, url, jobID, token string) *Client {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, url: url, jobID: jobID, token: token}
}

// Trigger submits one run. Any non-2xx response is a TriggerError.
func (c *Client) Trigger(ctx context.Context, params Parameters) error {
	payload, err := json.Marshal(request{JobID: c.jobID, JobParameters: params})
	if err != nil {
		return &TriggerError{JobID: c.jobID, Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return &TriggerError{JobID: c.jobID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TriggerError{JobID: c.jobID, Err: fmt.Errorf("request job run: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TriggerError{JobID: c.jobID, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
