// Package exchange wraps the exchangerate-api latest-rates endpoint.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.exchangerate-api.com"
	requestTimeout = 10 * time.Second
)

type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

type latestRatesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Latest returns the rate map for a base currency. A single request, no
// retries: any non-200 status or transport failure is terminal.
func (c *Client) Latest(ctx context.Context, base string) (map[string]float64, error) {
	reqURL := fmt.Sprintf("%s/v4/latest/%s", c.baseURL, strings.ToUpper(strings.TrimSpace(base)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out latestRatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("exchange decode: %w", err)
	}
	return out.Rates, nil
}
