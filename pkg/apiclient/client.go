package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/glintly/billing-go/pkg/observability"
)

// ErrNoCredential indicates no bearer credential was available. The check
// happens before any network call is made.
var ErrNoCredential = errors.New("no bearer credential available")

// TokenSource supplies the current bearer credential for backend requests.
// Session issuance and renewal live outside this module.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource backed by a fixed credential
type StaticToken string

// Token returns the static credential, or ErrNoCredential if empty
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoCredential
	}
	return string(t), nil
}

// APIError represents a non-success response from the billing backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("billing backend returned %d: %s", e.StatusCode, e.Message)
}

// Observer receives timing information for completed backend requests
type Observer func(method, path string, status int, duration time.Duration)

// Client is an HTTP client for the billing backend. All requests carry a
// bearer credential from the configured TokenSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *observability.Logger
	observe    Observer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the underlying HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithLogger sets the logger
func WithLogger(logger *observability.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver sets an observer for request metrics
func WithObserver(observe Observer) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// WithTracing wraps the client transport with OpenTelemetry instrumentation
func WithTracing() Option {
	return func(c *Client) {
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient.Transport = otelhttp.NewTransport(base)
	}
}

// New creates a billing backend client rooted at baseURL
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		tokens: tokens,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get issues a GET request and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

// Put issues a PUT request with a JSON body and decodes the response into out
func (c *Client) Put(ctx context.Context, path string, in, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE request
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	// Credential check happens before any network traffic.
	token, err := c.tokens.Token()
	if err != nil || token == "" {
		return ErrNoCredential
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.observe != nil {
			c.observe(method, path, 0, time.Since(start))
		}
		return fmt.Errorf("billing backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.observe != nil {
		c.observe(method, path, resp.StatusCode, time.Since(start))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
		c.logger.WithFields(map[string]interface{}{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Debug("billing backend rejected request")
		return apiErr
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// errorMessage extracts a best-effort human-readable message from an error
// response body. The backend writes {"error": "..."} but any body is accepted.
func errorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return http.StatusText(resp.StatusCode)
	}
	return msg
}
