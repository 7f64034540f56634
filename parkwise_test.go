package parkwise

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/parkwise/internal/config"
	"github.com/menta2k/parkwise/pkg/render"
	"github.com/menta2k/parkwise/pkg/types"
)

type echoClient struct {
	got types.ImagePayload
}

func (e *echoClient) Name() string { return "echo" }

func (e *echoClient) LocateSpot(ctx context.Context, model, prompt string, img types.ImagePayload) (*types.SpotLocation, error) {
	e.got = img
	return &types.SpotLocation{LocationDescription: "Row B, two spots from the pillar."}, nil
}

// createTestImage creates a simple gradient photo
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 96, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	pw := New()
	assert.Len(t, pw.Spots(), 60)

	ids := pw.Recommend(types.Preferences{VehicleCategory: types.Car, CoveredOnly: true, NearExitOnly: true})
	assert.Equal(t, []string{"A-1", "A-2", "A-9", "A-10", "A-12", "A-20"}, ids)
	assert.Len(t, pw.Recommend(types.Preferences{VehicleCategory: types.Car, CoveredOnly: true}), 16)

	report := pw.Analytics()
	assert.Equal(t, 60, report.Overall.Total)
	assert.Equal(t, 40, report.Overall.Available)

	w, h := render.DefaultOptions().Size(60)
	assert.Equal(t, image.Rect(0, 0, w, h), pw.LotMap(types.Preferences{}).Bounds())
}

func TestLocateWithoutBackend(t *testing.T) {
	pw := New()
	outcome := pw.Locate(context.Background(), "data:image/png;base64,iVBORw0KGgo=")
	assert.Equal(t, types.ExternalCallFailed, outcome.ErrorKind)
}

func TestLocateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "car.png")
	require.NoError(t, imaging.Save(createTestImage(64, 48), path))

	vc := &echoClient{}
	pw := New()
	pw.SetVisionClient(vc, "")

	outcome := pw.LocateFile(context.Background(), path)
	require.True(t, outcome.OK(), outcome.ErrorMessage)
	assert.Equal(t, "Row B, two spots from the pillar.", outcome.LocationDescription)
	assert.Equal(t, "image/png", vc.got.MediaType)

	outcome = pw.LocateFile(context.Background(), filepath.Join(dir, "notes.txt"))
	assert.Equal(t, types.InvalidFormat, outcome.ErrorKind)

	outcome = pw.LocateFile(context.Background(), filepath.Join(dir, "missing.jpg"))
	assert.Equal(t, types.InvalidFormat, outcome.ErrorKind)
}

func TestReadDataURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "car.JPG")
	require.NoError(t, imaging.Save(createTestImage(16, 16), path))

	uri, err := ReadDataURI(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

	// existing files with a non-image extension are never read
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o644))
	_, err = ReadDataURI(txt)
	assert.ErrorContains(t, err, "not an image file")
}

func TestNewWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Lot.Seed = 42
	cfg.Locator.Prepare = true
	cfg.Locator.SendSize = 32
	cfg.Locator.MaxImageBytes = 1 << 20

	vc := &echoClient{}
	pw := NewWithConfig(cfg, vc, nil)
	assert.NotEqual(t, New().Spots(), pw.Spots())

	path := filepath.Join(t.TempDir(), "car.png")
	require.NoError(t, imaging.Save(createTestImage(128, 64), path))

	outcome := pw.LocateFile(context.Background(), path)
	require.True(t, outcome.OK(), outcome.ErrorMessage)
	assert.Equal(t, "image/jpeg", vc.got.MediaType, "prepared photos are re-encoded")
}

func TestNewVisionClient(t *testing.T) {
	ctx := context.Background()

	lc := config.Default().Locator
	_, err := NewVisionClient(ctx, lc)
	assert.Error(t, err, "gemini without a key")

	lc.APIKey = "test-key"
	vc, err := NewVisionClient(ctx, lc)
	require.NoError(t, err)
	assert.Equal(t, "gemini", vc.Name())

	lc.Backend = config.BackendOllama
	vc, err = NewVisionClient(ctx, lc)
	require.NoError(t, err)
	assert.Equal(t, "ollama", vc.Name())

	lc.Backend = config.BackendLlamaCPP
	vc, err = NewVisionClient(ctx, lc)
	require.NoError(t, err)
	assert.Equal(t, "llamacpp", vc.Name())

	lc.Backend = "openai"
	_, err = NewVisionClient(ctx, lc)
	assert.Error(t, err)
}
