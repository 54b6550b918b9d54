// Package xray uploads JUnit results to the Xray cloud REST API.
package xray

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	authenticatePath = "/api/v2/authenticate"
	importJUnitPath  = "/api/v2/import/execution/junit"

	defaultMaxTries = 4
)

var (
	// ErrMissingCredentials is returned when the client id or secret is empty.
	ErrMissingCredentials = errors.New("xray client id and secret are required")

	// ErrEmptyToken is returned when authentication succeeds with an empty token.
	ErrEmptyToken = errors.New("xray returned an empty token")
)

// StatusError is a non-2xx response from Xray.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// ImportResult is the body Xray returns for a successful import.
type ImportResult struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`

	// Raw is the undecoded response body.
	Raw json.RawMessage `json:"-"`
}

// Client talks to one Xray host.
type Client struct {
	baseURL    string
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	maxTries   uint
	logger     *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithBackOff sets the backoff policy used between retries. f is called once
// per request so policies with state start fresh.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(cl *Client) { cl.newBackOff = f }
}

// WithMaxTries bounds the attempts per request, including the first.
func WithMaxTries(n uint) Option {
	return func(cl *Client) { cl.maxTries = n }
}

// WithLogger replaces the default zap.S().Named("xray") logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for baseURL, e.g. https://xray.cloud.getxray.app.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		maxTries:   defaultMaxTries,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.S().Named("xray")
	}
	return c
}

// Authenticate exchanges API credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context, clientID, clientSecret string) (string, error) {
	if clientID == "" || clientSecret == "" {
		return "", ErrMissingCredentials
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     clientID,
		"client_secret": clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}

	body, err := c.do(ctx, "authenticate", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authenticatePath, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	// The token comes back as a bare JSON string.
	var token string
	if err := json.Unmarshal(body, &token); err != nil {
		token = strings.TrimSpace(string(body))
	}
	if token == "" {
		return "", ErrEmptyToken
	}
	return token, nil
}

// ImportJUnit uploads the JUnit XML file at path. A non-empty testExecKey
// attaches the results to that existing test execution.
func (c *Client) ImportJUnit(ctx context.Context, token, path, testExecKey string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read junit file: %w", err)
	}

	target := c.baseURL + importJUnitPath
	if testExecKey != "" {
		target += "?" + url.Values{"testExecutionKey": {testExecKey}}.Encode()
	}

	body, err := c.do(ctx, "import junit", func() (*http.Request, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Raw: json.RawMessage(body)}
	if err := json.Unmarshal(body, result); err != nil {
		c.logger.Debugw("import response is not a JSON object", "body", string(body))
	}
	return result, nil
}

// do sends the request built by newReq, retrying network errors, 429 and 5xx.
// newReq is called per attempt so the body can be replayed.
func (c *Client) do(ctx context.Context, op string, newReq func() (*http.Request, error)) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		req, err := newReq()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%s: failed to build request: %w", op, err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if retryable(resp.StatusCode) {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warnw("request failed, retrying", "op", op, "attempt", attempt, "retry_in", next, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
