// Package helpers provides narrowly-scoped utilities for E2E testing.
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gti/selfheal-e2e/internal/healing"
	"github.com/gti/selfheal-e2e/internal/models"
)

// Response represents an HTTP response from the API.
type Response struct {
	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	StatusCode int

	// Body contains the raw response body bytes.
	Body []byte

	// Headers contains the response headers.
	Headers http.Header
}

// JSON unmarshals the response body into the provided value.
//
//	var events []models.HealingEvent
//	if err := resp.JSON(&events); err != nil {
//	    return err
//	}
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// APIClient provides HTTP request capabilities for E2E tests against the
// healing report service.
type APIClient struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

// NewAPIClient creates a new API client with the given base URL.
//
// The base URL should include the scheme and host (e.g., "http://localhost:8080").
// Do not include a trailing slash.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		headers: make(map[string]string),
		client:  &http.Client{},
	}
}

// SetHeader sets a header that will be included in all subsequent requests.
//
//	client.SetHeader("x-api-key", "test-api-key")
func (c *APIClient) SetHeader(key, value string) {
	c.headers[key] = value
}

// Call makes an HTTP request and returns the response.
//
//	resp, err := api.Call("GET", "/api/healings?locator=submit", nil)
//
//	resp, err := api.Call("POST", "/api/healings", models.RecordHealingRequest{
//	    Locator:  "submit",
//	    Found:    false,
//	    Attempts: 12,
//	})
//
// HTTP error status codes (4xx, 5xx) are NOT treated as errors; check
// resp.StatusCode instead.
func (c *APIClient) Call(method, path string, body any) (*Response, error) {
	return c.CallContext(context.Background(), method, path, body)
}

// CallContext is Call bound to ctx.
func (c *APIClient) CallContext(ctx context.Context, method, path string, body any) (*Response, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}

// HealingReporter posts every resolution outcome to the report service.
//
//	browser.SetReporter(helpers.NewHealingReporter(env.API, t.Name()))
type HealingReporter struct {
	api      *APIClient
	testName string
}

// NewHealingReporter creates a reporter tagging events with testName.
func NewHealingReporter(api *APIClient, testName string) *HealingReporter {
	return &HealingReporter{api: api, testName: testName}
}

// Report records summary for locator. Any non-201 response is an error.
func (r *HealingReporter) Report(ctx context.Context, locator string, summary healing.Summary) error {
	resp, err := r.api.CallContext(ctx, http.MethodPost, "/api/healings", NewRecordRequest(locator, r.testName, summary))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("report service returned %d: %s", resp.StatusCode, resp.String())
	}
	return nil
}

// NewRecordRequest converts a resolution summary into the service payload.
func NewRecordRequest(locator, testName string, summary healing.Summary) models.RecordHealingRequest {
	return models.RecordHealingRequest{
		Locator:    locator,
		Strategy:   summary.Strategy,
		Found:      summary.Found,
		Pass:       summary.Pass,
		Attempts:   summary.Attempts,
		DurationMS: summary.Elapsed.Milliseconds(),
		TestName:   testName,
	}
}
