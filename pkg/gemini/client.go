// Package gemini locates spots through the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/menta2k/parkwise/pkg/client"
	"github.com/menta2k/parkwise/pkg/types"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// responseSchema mirrors types.SpotLocation
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"locationDescription": {
			Type:        genai.TypeString,
			Description: "The description of the parking spot location within the parking lot.",
		},
	},
	Required: []string{"locationDescription"},
}

// Client wraps a genai client configured for the Gemini API backend
type Client struct {
	client  *genai.Client
	timeout time.Duration
}

// Options configures NewClient. BaseURL is only needed for proxies and tests.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a Gemini client
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Client{client: gc, timeout: opts.Timeout}, nil
}

// Name identifies the backend in logs
func (c *Client) Name() string {
	return "gemini"
}

// LocateSpot sends the image inline together with the prompt and asks for a JSON reply
func (c *Client) LocateSpot(ctx context.Context, model, prompt string, img types.ImagePayload) (*types.SpotLocation, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if model == "" {
		model = DefaultModel
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(img.Data, img.MediaType),
		}, genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, client.ErrEmptyResponse
	}

	return client.ParseSpotLocation(text)
}
