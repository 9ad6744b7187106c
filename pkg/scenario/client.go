package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/scenario-ocr/pkg/normalize"
	"github.com/menta2k/scenario-ocr/pkg/types"
)

// RunPath is the scenario-run endpoint relative to the API base
const RunPath = "/v1/scenarios/run"

// DefaultTimeout bounds a blocking run; the service may process for minutes
const DefaultTimeout = 300 * time.Second

// HTTPError is returned when the API answers with a status other than 200
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the scenario-run API with a static bearer token
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its own Timeout, if
// any, still applies on top of the run deadline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the deadline applied to runs whose context has none. It is
// the only bound on a run made with the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL is empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("unsupported api base URL: %s (only http and https are supported)", baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full scenario-run URL
func (c *Client) Endpoint() string {
	return c.baseURL + RunPath
}

// Run posts the image and returns the decoded response body. Nested objects
// are *normalize.Object so their field order survives. Non-200 answers come
// back as *HTTPError; nothing is retried.
func (c *Client) Run(ctx context.Context, imgB64, user string) (types.APIResponse, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := c.sendRequest(ctx, types.NewRunRequest(imgB64, user))
	if err != nil {
		return nil, err
	}

	v, err := normalize.ParseJSON(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	switch root := v.(type) {
	case nil:
		// a literal null body still yields a mapping for the normalizer
		return types.APIResponse{}, nil
	case *normalize.Object:
		return root.Map(), nil
	default:
		return nil, fmt.Errorf("failed to parse response: expected a JSON object, got %T", v)
	}
}

func (c *Client) sendRequest(ctx context.Context, payload types.RunRequest) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
