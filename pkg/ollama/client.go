package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/scenario-ocr/pkg/types"
)

// DefaultPrompt asks the model for the text found in the image
const DefaultPrompt = `Extract all text visible in this image.
Return JSON only: {"text": "<all text, reading order, lines separated by \n>"}.
No markdown, no code fences, no comments.`

// DefaultTimeout bounds a run whose context has no deadline
const DefaultTimeout = 300 * time.Second

// Client runs the OCR scenario against a local Ollama vision model. The
// reply is wrapped as {"result": {"response": <content>}} so it normalizes
// like a hosted scenario run.
type Client struct {
	client  *api.Client
	model   string
	prompt  string
	timeout time.Duration
}

// NewClient creates a new Ollama client. Any path on ollamaURL (such as
// /api/chat) is dropped.
func NewClient(ollamaURL, model string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q needs scheme and host", ollamaURL)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model is empty")
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		prompt:  DefaultPrompt,
		timeout: DefaultTimeout,
	}, nil
}

// SetPrompt replaces the OCR prompt; an empty prompt is ignored
func (c *Client) SetPrompt(prompt string) {
	if prompt != "" {
		c.prompt = prompt
	}
}

// SetTimeout sets the deadline applied to runs whose context has none;
// non-positive values are ignored
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Timeout returns the run deadline in use
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Run sends the image to the model. user is not used by Ollama and is only
// echoed back in the wrapped result.
func (c *Client) Run(ctx context.Context, imgB64, user string) (types.APIResponse, error) {
	// CPU inference of vision models can take minutes
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: c.prompt,
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
	}

	var content string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}

	return Wrap(content, c.model, user), nil
}

// Wrap builds a scenario-shaped response around model output
func Wrap(content, model, user string) types.APIResponse {
	return types.APIResponse{
		"result": map[string]any{
			"response": content,
			"model":    model,
			"user":     user,
		},
	}
}
