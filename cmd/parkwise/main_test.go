package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/parkwise/pkg/analytics"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	configPath, backend, model = "", "", ""
	vehicleType, covered, nearExit, asJSON = "car", false, false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	out, err := execute(t, "recommend", "--vehicle", "car", "--covered", "--near-exit", "--json")
	require.NoError(t, err)

	var got map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"A-1", "A-2", "A-9", "A-10", "A-12", "A-20"}, got["recommended"])

	_, err = execute(t, "recommend", "--vehicle", "boat", "--covered")
	assert.Error(t, err)
}

func TestAnalyticsCommand(t *testing.T) {
	out, err := execute(t, "analytics", "--json")
	require.NoError(t, err)

	var report analytics.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 60, report.Overall.Total)

	out, err = execute(t, "analytics", "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "2-Wheelers")
	assert.Contains(t, out, "occupancy 33.3%")
}

func TestRenderCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps", "lot.png")
	_, err := execute(t, "render", "--out", path, "--vehicle", "heavy", "--near-exit")
	require.NoError(t, err)

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 568, img.Bounds().Dx())
}

func TestLocateRequiresValidConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := execute(t, "locate", "--in", "car.jpg")
	assert.ErrorContains(t, err, "api_key")
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parkwise.yaml")
	_, err := execute(t, "config", "init", path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err, "refuses to overwrite")

	t.Setenv("PARKWISE_API_KEY", "secret")
	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "backend: gemini")
	assert.NotContains(t, out, "secret")
}

func TestBackendFlagPicksModel(t *testing.T) {
	out, err := execute(t, "--backend", "ollama", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "model: llava")
}
