package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/parkwise/pkg/client"
	"github.com/menta2k/parkwise/pkg/types"
)

var _ client.VisionClient = (*Client)(nil)

func geminiReply(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Options{})
	assert.Error(t, err)
}

func TestLocateSpot(t *testing.T) {
	var body map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(geminiReply(`{"locationDescription": "Row C under the yellow sign."}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{APIKey: "test-key", BaseURL: srv.URL, Timeout: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())

	loc, err := c.LocateSpot(context.Background(), "", "where is my car?", types.ImagePayload{MediaType: "image/jpeg", Data: []byte("jpeg")})
	require.NoError(t, err)
	assert.Equal(t, "Row C under the yellow sign.", loc.LocationDescription)

	assert.True(t, strings.HasSuffix(path, DefaultModel+":generateContent"), path)
	raw, _ := json.Marshal(body)
	assert.Contains(t, string(raw), "where is my car?")
	assert.Contains(t, string(raw), "image/jpeg")
}

func TestLocateSpotServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.LocateSpot(context.Background(), "gemini-test", "p", types.ImagePayload{MediaType: "image/png", Data: []byte{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GenAI generate failed")
}

func TestLocateSpotEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.LocateSpot(context.Background(), "gemini-test", "p", types.ImagePayload{MediaType: "image/png", Data: []byte{1}})
	assert.ErrorIs(t, err, client.ErrEmptyResponse)
}
