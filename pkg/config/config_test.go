package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrorigo/spectral-cortex/pkg/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithEmptyPathReturnsValidatedDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fake", cfg.Embedder.Provider)
	assert.Equal(t, "exponential", cfg.Temporal.Mode)
}

func TestLoadOverlaysYAMLOnDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := "embedder:\n  provider: fake\n  dimensions: 64\ntemporal:\n  mode: step\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Embedder.Dimensions)
	assert.Equal(t, "step", cfg.Temporal.Mode)
	// Untouched fields keep their defaults.
	assert.Equal(t, float32(0.70), cfg.Spectral.SpectralLinkThreshold)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsUnknownSegmenterMode(t *testing.T) {
	cfg := Default()
	cfg.Segmenter.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownTemporalMode(t *testing.T) {
	cfg := Default()
	cfg.Temporal.Mode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownEmbedderProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedder.Provider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidateClampsMinConfidenceIntoUnitRange(t *testing.T) {
	cfg := Default()
	cfg.Segmenter.MinConfidence = 5
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float32(1), cfg.Segmenter.MinConfidence)

	cfg.Segmenter.MinConfidence = -5
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float32(0), cfg.Segmenter.MinConfidence)
}

func TestToSpectralConfigCarriesThresholdsThrough(t *testing.T) {
	sc := Default().Spectral.ToSpectralConfig()
	assert.Equal(t, float32(0.70), sc.SpectralLinkThreshold)
	assert.Equal(t, 12, sc.MaxClusters)
}

func TestToTemporalConfigMapsModeStrings(t *testing.T) {
	tc := TemporalConfig{Mode: "linear_window", Weight: 0.3}.ToTemporalConfig()
	assert.Equal(t, temporal.ModeLinearWindow, tc.Mode)
}

func TestToSegmentConfigUsesModeFromString(t *testing.T) {
	sc := SegmenterConfig{Mode: "strict", MaxSegments: 3, MinConfidence: 0.5}.ToSegmentConfig()
	assert.Equal(t, 3, sc.MaxSegments)
}

func TestToEmbedderFakeProviderUsesDefaultDimsWhenUnset(t *testing.T) {
	e, err := EmbedderConfig{Provider: "fake"}.ToEmbedder()
	require.NoError(t, err)
	assert.Equal(t, 384, e.Dimensions())
}

func TestToEmbedderOllamaRejectsPrivateIPEvenInDevelopment(t *testing.T) {
	_, err := EmbedderConfig{Provider: "ollama", APIURL: "http://10.0.0.5:11434"}.ToEmbedder()
	assert.Error(t, err)
}

func TestToEmbedderOpenAIRejectsPlainHTTP(t *testing.T) {
	_, err := EmbedderConfig{Provider: "openai", APIKey: "sk-test", APIURL: "http://api.openai.com/v1"}.ToEmbedder()
	assert.Error(t, err)
}
