package embed

import (
	"context"
	"hash/fnv"
	"strconv"
)

// FakeEmbedDim is the dimensionality produced by the deterministic fallback
// embedder, matching the real providers' typical output size for a small
// local model.
const FakeEmbedDim = 384

// FakeEmbedder is a deterministic embedder used by tests and as the default
// provider when no real backend is configured. It never calls out to a
// network or model runtime: the same text always hashes to the same
// vector, which is what makes the round-trip and retrieval tests in this
// repository reproducible without a live embedding service.
//
// The hash scheme treats (text, dimension-index) as the hash input, so
// distinct dimensions of the same text are decorrelated from one another
// without requiring a PRNG seeded per call.
type FakeEmbedder struct {
	dims int
}

// NewFakeEmbedder returns a deterministic embedder with the given output
// dimensionality. dims <= 0 defaults to FakeEmbedDim.
func NewFakeEmbedder(dims int) *FakeEmbedder {
	if dims <= 0 {
		dims = FakeEmbedDim
	}
	return &FakeEmbedder{dims: dims}
}

// Embed hashes text deterministically into a fixed-dimensional vector with
// components in [-1, 1].
func (f *FakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return deterministicEmbedding(text, f.dims), nil
}

// EmbedBatch applies Embed to each text, preserving input order.
func (f *FakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicEmbedding(t, f.dims)
	}
	return out, nil
}

// Dimensions returns the configured output dimensionality.
func (f *FakeEmbedder) Dimensions() int { return f.dims }

// Model returns a synthetic model name so logs and snapshots can tell a
// deterministic run apart from a real one.
func (f *FakeEmbedder) Model() string { return "deterministic-fake" }

// deterministicEmbedding hashes (text, index) per output dimension via
// FNV-1a, folding the 64-bit digest into a float in [-1, 1].
func deterministicEmbedding(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i := 0; i < dims; i++ {
		h := fnv.New64a()
		h.Write([]byte(text))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(i)))
		sum := h.Sum64()
		// Map the top 24 bits of the digest onto [-1, 1].
		frac := float64(sum>>40) / float64(1<<24)
		vec[i] = float32(frac*2.0 - 1.0)
	}
	return vec
}
