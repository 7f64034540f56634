package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/menta2k/parkwise/pkg/analytics"
	"github.com/menta2k/parkwise/pkg/locator"
	"github.com/menta2k/parkwise/pkg/mockdata"
	"github.com/menta2k/parkwise/pkg/types"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type fakeVision struct {
	reply string
	err   error
	calls int
}

func (f *fakeVision) Name() string { return "fake" }

func (f *fakeVision) LocateSpot(ctx context.Context, model, prompt string, img types.ImagePayload) (*types.SpotLocation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &types.SpotLocation{LocationDescription: f.reply}, nil
}

func newTestServer(vc *fakeVision, maxImageBytes int) *Server {
	cfg := locator.DefaultConfig()
	if maxImageBytes > 0 {
		cfg.MaxImageBytes = maxImageBytes
	}
	return New(Options{Addr: "127.0.0.1:0"}, mockdata.Lot(), locator.NewWithConfig(vc, cfg), nil)
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func photo(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func locateBody(t *testing.T, uri string) []byte {
	t.Helper()
	b, err := json.Marshal(locateRequest{PhotoDataURI: uri})
	require.NoError(t, err)
	return b
}

func decodeLocate(t *testing.T, w *httptest.ResponseRecorder) locateResponse {
	t.Helper()
	var resp locateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(&fakeVision{}, 0)

	w := do(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Len(t, w.Header().Get(requestIDHeader), 36)

	const given = "6f1c2a9e-3b7d-4c1a-9f0e-2d5b8a7c4e11"
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, given)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, given, rec.Header().Get(requestIDHeader))

	// anything that is not a uuid is replaced
	for _, bad := range []string{"abc", "x\u001b[31mred", strings.Repeat("a", 4096)} {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(requestIDHeader, bad)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		id := rec.Header().Get(requestIDHeader)
		assert.NotEqual(t, bad, id)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
}

func TestListSpots(t *testing.T) {
	s := newTestServer(&fakeVision{}, 0)
	w := do(t, s, http.MethodGet, "/api/spots", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var spots []types.ParkingSpot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spots))
	assert.Equal(t, mockdata.Lot(), spots)
}

func TestRecommended(t *testing.T) {
	s := newTestServer(&fakeVision{}, 0)

	w := do(t, s, http.MethodGet, "/api/spots/recommended?vehicleType=car&covered=true&nearExit=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recommended":["A-1","A-2","A-9","A-10","A-12","A-20"]}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/spots/recommended?vehicleType=car", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recommended":[]}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/spots/recommended?vehicleType=spaceship&covered=true", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/spots/recommended?covered=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(&fakeVision{}, 0)
	w := do(t, s, http.MethodGet, "/api/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report analytics.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 60, report.Overall.Total)
	assert.Equal(t, 20, report.Overall.Occupied)
	assert.Len(t, report.ByCategory, 4)
}

func TestLotMap(t *testing.T) {
	s := newTestServer(&fakeVision{}, 0)
	w := do(t, s, http.MethodGet, "/api/lot.png?vehicleType=heavy&nearExit=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 568, img.Bounds().Dx())
}

func TestLocateSuccess(t *testing.T) {
	vc := &fakeVision{reply: "Level 2, row C, near the elevator."}
	s := newTestServer(vc, 0)

	w := do(t, s, http.MethodPost, "/api/locate", locateBody(t, photo(t)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"locationDescription":"Level 2, row C, near the elevator."},"error":null}`, w.Body.String())
	assert.Equal(t, 1, vc.calls)
}

func TestLocateFailures(t *testing.T) {
	tests := []struct {
		name   string
		vc     *fakeVision
		body   []byte
		status int
		prefix string
	}{
		{
			name:   "not an image",
			vc:     &fakeVision{reply: "x"},
			body:   []byte(`{"photoDataUri":"data:text/plain;base64,aGk="}`),
			status: http.StatusBadRequest,
			prefix: "Invalid image format.",
		},
		{
			name:   "missing field",
			vc:     &fakeVision{reply: "x"},
			body:   []byte(`{}`),
			status: http.StatusBadRequest,
			prefix: "Invalid image format.",
		},
		{
			name:   "malformed json",
			vc:     &fakeVision{reply: "x"},
			body:   []byte(`{"photoDataUri":`),
			status: http.StatusBadRequest,
			prefix: "Invalid request body.",
		},
		{
			name:   "backend error",
			vc:     &fakeVision{err: errors.New("quota exceeded")},
			status: http.StatusBadGateway,
			prefix: "Failed to locate spot. quota exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = locateBody(t, photo(t))
			}
			w := do(t, newTestServer(tt.vc, 0), http.MethodPost, "/api/locate", body)
			assert.Equal(t, tt.status, w.Code)

			resp := decodeLocate(t, w)
			assert.Nil(t, resp.Data)
			require.NotNil(t, resp.Error)
			assert.True(t, strings.HasPrefix(*resp.Error, tt.prefix), *resp.Error)
		})
	}
}

func TestLocateTooLarge(t *testing.T) {
	vc := &fakeVision{reply: "x"}
	s := newTestServer(vc, 64)

	w := do(t, s, http.MethodPost, "/api/locate", locateBody(t, photo(t)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, vc.calls)

	// bodies far past the limit are cut off before decoding
	huge := "data:image/png;base64," + strings.Repeat("A", 1<<20)
	w = do(t, s, http.MethodPost, "/api/locate", locateBody(t, huge))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	resp := decodeLocate(t, w)
	require.NotNil(t, resp.Error)
	assert.Zero(t, vc.calls)
}

func TestLocateWithoutPipeline(t *testing.T) {
	s := New(Options{}, mockdata.Lot(), nil, nil)
	w := do(t, s, http.MethodPost, "/api/locate", locateBody(t, photo(t)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(&fakeVision{}, 0)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
