package config

import (
	"github.com/mrorigo/spectral-cortex/pkg/embed"
	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/security"
	"github.com/mrorigo/spectral-cortex/pkg/segment"
	"github.com/mrorigo/spectral-cortex/pkg/spectral"
	"github.com/mrorigo/spectral-cortex/pkg/temporal"
)

// ToSpectralConfig converts the YAML-loaded thresholds into the spectral
// engine's own Config type.
func (c SpectralConfig) ToSpectralConfig() spectral.Config {
	return spectral.Config{
		AdjacencyThreshold:    c.AdjacencyThreshold,
		SpectralLinkThreshold: c.SpectralLinkThreshold,
		EmbedLinkThreshold:    c.EmbedLinkThreshold,
		RequestedDims:         c.RequestedDims,
		MinClusters:           c.MinClusters,
		MaxClusters:           c.MaxClusters,
		KMeansMaxIterations:   c.KMeansMaxIterations,
	}
}

// ToSegmentConfig converts the YAML-loaded segmenter settings into
// pkg/segment's own Config type. The caller is responsible for validating
// Mode beforehand (config.Validate already does, at load time).
func (c SegmenterConfig) ToSegmentConfig() segment.Config {
	mode, _ := segment.ModeFromString(c.Mode)
	return segment.Config{
		Mode:          mode,
		MaxSegments:   c.MaxSegments,
		MinConfidence: c.MinConfidence,
	}
}

// ToTemporalConfig converts the YAML-loaded temporal settings into
// pkg/temporal's own Config type.
func (c TemporalConfig) ToTemporalConfig() temporal.Config {
	mode := temporal.ModeExponential
	switch c.Mode {
	case "linear_window":
		mode = temporal.ModeLinearWindow
	case "step":
		mode = temporal.ModeStep
	case "buckets":
		mode = temporal.ModeBuckets
	}
	return temporal.Config{
		Enabled:         c.Enabled,
		Weight:          float64(c.Weight),
		Mode:            mode,
		HalfLifeSeconds: float64(c.HalfLifeSeconds),
		WindowSeconds:   float64(c.WindowSeconds),
		BoostMagnitude:  float64(c.BoostMagnitude),
	}
}

// ToEmbedder constructs the embedder the Provider field names: "fake"
// (the deterministic default, see pkg/embed.FakeEmbedder), "ollama", or
// "openai".
func (c EmbedderConfig) ToEmbedder() (embed.Embedder, error) {
	switch c.Provider {
	case "ollama":
		cfg := embed.DefaultOllamaConfig()
		if c.APIURL != "" {
			if err := security.ValidateURL(c.APIURL, true, true); err != nil {
				return nil, smgerrors.New("config.ToEmbedder", smgerrors.InvalidConfig, err)
			}
			cfg.APIURL = c.APIURL
		}
		if c.Model != "" {
			cfg.Model = c.Model
		}
		return embed.NewEmbedder(cfg)
	case "openai":
		if c.APIKey != "" {
			if err := security.ValidateToken(c.APIKey); err != nil {
				return nil, smgerrors.New("config.ToEmbedder", smgerrors.InvalidConfig, err)
			}
		}
		cfg := embed.DefaultOpenAIConfig(c.APIKey)
		if c.APIURL != "" {
			if err := security.ValidateURL(c.APIURL, false, false); err != nil {
				return nil, smgerrors.New("config.ToEmbedder", smgerrors.InvalidConfig, err)
			}
			cfg.APIURL = c.APIURL
		}
		if c.Model != "" {
			cfg.Model = c.Model
		}
		return embed.NewEmbedder(cfg)
	default:
		dims := c.Dimensions
		if dims == 0 {
			dims = embed.FakeEmbedDim
		}
		return embed.NewFakeEmbedder(dims), nil
	}
}
