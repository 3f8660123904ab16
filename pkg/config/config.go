// Package config loads and validates the YAML configuration that wires
// together the embedder, spectral engine, temporal re-ranker, and commit
// segmenter defaults. It follows the teacher corpus's convention of a
// Config struct plus a Default*Config() constructor per subsystem, with a
// single top-level Load entry point for the CLI.
package config

import (
	"os"

	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EmbedderConfig selects and sizes the embedding façade.
type EmbedderConfig struct {
	Provider           string `yaml:"provider"` // fake | ollama | openai
	APIURL             string `yaml:"api_url,omitempty"`
	APIKey             string `yaml:"api_key,omitempty"`
	Model              string `yaml:"model,omitempty"`
	Dimensions         int    `yaml:"dimensions"`
	Workers            int    `yaml:"workers"`
	CacheSizePerWorker int    `yaml:"cache_size_per_worker"`
}

// SpectralConfig carries the fixed thresholds of the spectral pipeline.
// These mirror the constants named in the specification and should not be
// changed casually: the testable properties (§8) are expressed in terms of
// the defaults below.
type SpectralConfig struct {
	AdjacencyThreshold     float32 `yaml:"adjacency_threshold"`
	SpectralLinkThreshold  float32 `yaml:"spectral_link_threshold"`
	EmbedLinkThreshold     float32 `yaml:"embed_link_threshold"`
	RequestedDims          int     `yaml:"requested_dims"`
	MinClusters            int     `yaml:"min_clusters"`
	MaxClusters            int     `yaml:"max_clusters"`
	KMeansMaxIterations    int     `yaml:"kmeans_max_iterations"`
}

// TemporalConfig mirrors pkg/temporal.Config in YAML form.
type TemporalConfig struct {
	Enabled         bool    `yaml:"enabled"`
	Weight          float32 `yaml:"weight"`
	Mode            string  `yaml:"mode"` // exponential | linear_window | step | buckets
	HalfLifeSeconds int64   `yaml:"half_life_seconds"`
	WindowSeconds   int64   `yaml:"window_seconds"`
	BoostMagnitude  float32 `yaml:"boost_magnitude"`
}

// SegmenterConfig mirrors pkg/segment.Config in YAML form.
type SegmenterConfig struct {
	Mode          string  `yaml:"mode"` // off | auto | strict
	MaxSegments   int     `yaml:"max_segments"`
	MinConfidence float32 `yaml:"min_confidence"`
}

// Config is the top-level, file-loadable configuration for the whole graph.
type Config struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Spectral  SpectralConfig  `yaml:"spectral"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
}

// Default returns the configuration used when no file is supplied: a
// deterministic fake embedder, the spec's fixed spectral thresholds, an
// exponential temporal re-ranker with a 14-day half-life, and an auto-mode
// segmenter.
func Default() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Provider:           "fake",
			Dimensions:         384,
			Workers:            4,
			CacheSizePerWorker: 128,
		},
		Spectral: SpectralConfig{
			AdjacencyThreshold:    0.20,
			SpectralLinkThreshold: 0.70,
			EmbedLinkThreshold:    0.50,
			RequestedDims:         8,
			MinClusters:           2,
			MaxClusters:           12,
			KMeansMaxIterations:   100,
		},
		Temporal: TemporalConfig{
			Enabled:         true,
			Weight:          0.20,
			Mode:            "exponential",
			HalfLifeSeconds: 14 * 24 * 3600,
			WindowSeconds:   14 * 24 * 3600,
			BoostMagnitude:  1.0,
		},
		Segmenter: SegmenterConfig{
			Mode:          "auto",
			MaxSegments:   6,
			MinConfidence: 0.65,
		},
	}
}

// Load reads a YAML file at path and overlays it on top of Default(). A
// missing field in the file keeps its default value. An empty path returns
// Default() unmodified (no file to overlay).
func Load(path string) (*Config, error) {
	const op = "config.Load"
	cfg := Default()
	if path == "" {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, smgerrors.New(op, smgerrors.IoFailure, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, smgerrors.New(op, smgerrors.InvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the rest of the system cannot safely run
// with: an unknown segmenter mode, an unknown temporal mode, or an unknown
// embedder provider all fail with InvalidConfig at load time rather than at
// first use.
func (c *Config) Validate() error {
	const op = "config.Validate"
	switch c.Segmenter.Mode {
	case "off", "auto", "strict":
	default:
		return smgerrors.New(op, smgerrors.InvalidConfig, errUnsupported("segmenter mode", c.Segmenter.Mode))
	}
	switch c.Temporal.Mode {
	case "exponential", "linear_window", "step", "buckets":
	default:
		return smgerrors.New(op, smgerrors.InvalidConfig, errUnsupported("temporal mode", c.Temporal.Mode))
	}
	switch c.Embedder.Provider {
	case "fake", "ollama", "openai":
	default:
		return smgerrors.New(op, smgerrors.InvalidConfig, errUnsupported("embedder provider", c.Embedder.Provider))
	}
	if c.Segmenter.MaxSegments < 1 {
		c.Segmenter.MaxSegments = 1
	}
	if c.Segmenter.MinConfidence < 0 {
		c.Segmenter.MinConfidence = 0
	} else if c.Segmenter.MinConfidence > 1 {
		c.Segmenter.MinConfidence = 1
	}
	return nil
}

type unsupportedErr struct {
	field, value string
}

func (e *unsupportedErr) Error() string {
	return "unsupported " + e.field + " '" + e.value + "'"
}

func errUnsupported(field, value string) error {
	return &unsupportedErr{field: field, value: value}
}
