package agent

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrCallbackFailed indicates the control plane rejected or never
// received the provisioning callback.
var ErrCallbackFailed = errors.New("callback failed")

// JobRef is the job-tracking reference disclosed by the control plane
// in its callback response headers.
type JobRef struct {
	Node     string
	Location string
}

// Caller issues the provisioning callback against the control plane.
type Caller struct {
	ControllerURL string
	JobTemplateID int
	HTTPClient    *http.Client
}

// NewCaller builds a callback caller. Certificate validation is only
// disabled when explicitly requested for non-production use.
func NewCaller(controllerURL string, jobTemplateID int, insecureSkipVerify bool) *Caller {
	client := &http.Client{}
	if insecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Caller{ControllerURL: controllerURL, JobTemplateID: jobTemplateID, HTTPClient: client}
}

// Call posts the shared host config key to the job template callback
// endpoint and returns the job reference from the response headers.
func (c *Caller) Call(ctx context.Context, hostConfigKey string) (JobRef, error) {
	body, err := json.Marshal(map[string]string{"host_config_key": hostConfigKey})
	if err != nil {
		return JobRef{}, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	url := fmt.Sprintf("%s/api/v2/job_templates/%d/callback/", c.ControllerURL, c.JobTemplateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return JobRef{}, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return JobRef{}, fmt.Errorf("%w: %v", ErrCallbackFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return JobRef{}, fmt.Errorf("%w: %s", ErrCallbackFailed, resp.Status)
	}
	return JobRef{
		Node:     resp.Header.Get("X-API-Node"),
		Location: resp.Header.Get("Location"),
	}, nil
}
