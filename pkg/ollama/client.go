package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/parkwise/pkg/client"
	"github.com/menta2k/parkwise/pkg/types"
)

// DefaultURL is used when no server URL is configured
const DefaultURL = "http://localhost:11434"

// locationSchema constrains the reply to the single field we read
var locationSchema = json.RawMessage(`{
  "type": "object",
  "properties": {"locationDescription": {"type": "string"}},
  "required": ["locationDescription"]
}`)

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	timeout time.Duration
}

// NewClient creates a new Ollama client. Any path on ollamaURL (e.g. /api/chat) is ignored.
func NewClient(ollamaURL string, timeout time.Duration) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", ollamaURL)
	}

	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		timeout: timeout,
	}, nil
}

// Name identifies the backend in logs
func (c *Client) Name() string {
	return "ollama"
}

// LocateSpot sends the prompt and image to a local vision model
func (c *Client) LocateSpot(ctx context.Context, model, prompt string, img types.ImagePayload) (*types.SpotLocation, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	streamFalse := false
	options := map[string]any{}

	// MiniCPM-V drifts without these
	modelLower := strings.ToLower(model)
	if strings.Contains(modelLower, "minicpm-v") {
		options["temperature"] = 0.7
		options["top_p"] = 0.8
		options["num_ctx"] = 4096
	}

	req := &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(img.Data)},
			},
		},
		Stream:  &streamFalse,
		Format:  locationSchema,
		Options: options,
	}

	var responseContent strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}

	if responseContent.Len() == 0 {
		return nil, client.ErrEmptyResponse
	}

	return client.ParseSpotLocation(responseContent.String())
}
