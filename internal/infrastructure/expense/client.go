// Package expense provides the HTTP client for the external expense
// system consulted by the dashboard.
package expense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxResponseSize is the maximum allowed response size from the expense API (1MB)
const maxResponseSize = 1 * 1024 * 1024

// ErrExpenseUnavailable indicates the expense system could not be reached
// or returned an error response.
var ErrExpenseUnavailable = errors.New("expense: service unavailable")

// Config holds expense client settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Validate checks the configuration for required fields
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("expense: base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("expense: invalid base URL: %w", err)
	}
	return nil
}

// Client calls the expense system's HTTP API. It implements the
// dashboard's ExpenseProvider contract; expense figures are opaque
// totals in minor currency units and are never validated here.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new expense client with the given configuration
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// totalResponse is the wire format of the expense total endpoint
type totalResponse struct {
	TotalMinor int64  `json:"total_minor"`
	Currency   string `json:"currency"`
}

// TotalExpenses returns the total expenses in minor currency units for
// the given period, inclusive on both ends.
func (c *Client) TotalExpenses(ctx context.Context, from, to time.Time) (int64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/expenses/total", c.config.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("expense: failed to create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExpenseUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("expense: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: HTTP %d", ErrExpenseUnavailable, resp.StatusCode)
	}

	var total totalResponse
	if err := json.Unmarshal(body, &total); err != nil {
		return 0, fmt.Errorf("expense: failed to decode response: %w", err)
	}

	return total.TotalMinor, nil
}
