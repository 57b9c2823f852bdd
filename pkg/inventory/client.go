package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zjpeterson/ztprov/pkg/config"
)

// Errors surfaced by the CMDB client.
var (
	ErrSourceUnavailable = errors.New("cmdb unavailable")
	ErrAuthFailed        = errors.New("cmdb authentication failed")
)

// Filter narrows a device query.
type Filter struct {
	Status   string
	Platform string
}

// Client interacts with the CMDB REST API.
type Client struct {
	cfg        config.CMDBConfig
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a CMDB client.
func NewClient(cfg config.CMDBConfig) *Client {
	return &Client{cfg: cfg, baseURL: sanitizeBaseURL(cfg.BaseURL), httpClient: &http.Client{}}
}

// Fetch returns all devices matching the filter, following pagination.
func (c *Client) Fetch(ctx context.Context, filter Filter) ([]Record, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: base url not configured", ErrSourceUnavailable)
	}
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", filter.Status)
	}
	if filter.Platform != "" {
		query.Set("platform", filter.Platform)
	}
	next := fmt.Sprintf("%s/api/dcim/devices/?%s", c.baseURL, query.Encode())
	var records []Record
	for next != "" {
		page, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Results...)
		next = page.Next
	}
	return records, nil
}

type devicePage struct {
	Count   int      `json:"count"`
	Next    string   `json:"next"`
	Results []Record `json:"results"`
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*devicePage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.cfg.Token)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuthFailed, resp.Status)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: unexpected status %s", ErrSourceUnavailable, resp.Status)
	}
	page := &devicePage{}
	if err := json.NewDecoder(resp.Body).Decode(page); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}
	return page, nil
}

func sanitizeBaseURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	return strings.TrimRight(trimmed, "/")
}
