package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVec(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func norms(vecs [][]float32) []float32 {
	out := make([]float32, len(vecs))
	for i, v := range vecs {
		out[i] = Vector(v).Norm()
	}
	return out
}

func TestBuildBelowThreeNotesIsNoOp(t *testing.T) {
	ids := []uint32{0, 1}
	embeddings := [][]float32{unitVec(4, 0), unitVec(4, 1)}
	res := Build(ids, embeddings, norms(embeddings), DefaultConfig(), nil)
	assert.Nil(t, res.Similarity)
	assert.Nil(t, res.SpectralEmbeddings)
	assert.Nil(t, res.ClusterLabels)
	assert.Equal(t, ids, res.NoteIDs)
}

// Two tight clusters of near-duplicate vectors: every note must receive
// exactly one label, and every long-range link is stored with a < b and a
// similarity above the spectral-link threshold.
func TestBuildProducesOneLabelPerNote(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0, 0},
		{0.95, 0.05, 0, 0},
		{0.9, 0.1, 0, 0},
		{0, 0, 1, 0},
		{0, 0.05, 0.95, 0},
		{0, 0, 0.9, 0.1},
	}
	ids := make([]uint32, len(embeddings))
	for i := range ids {
		ids[i] = uint32(i)
	}
	res := Build(ids, embeddings, norms(embeddings), DefaultConfig(), nil)
	require.Len(t, res.ClusterLabels, len(embeddings))
	for _, l := range res.LongRangeLinks {
		assert.Less(t, l.A, l.B, "long-range links must be stored with a < b")
		assert.Greater(t, l.Similarity, DefaultConfig().SpectralLinkThreshold)
	}
}

func TestBuildIsDeterministicAcrossRuns(t *testing.T) {
	embeddings := [][]float32{
		{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}, {0, 0.9, 0.1}, {0, 0, 1}, {0.1, 0, 0.9},
	}
	ids := make([]uint32, len(embeddings))
	for i := range ids {
		ids[i] = uint32(i)
	}
	n := norms(embeddings)
	r1 := Build(ids, embeddings, n, DefaultConfig(), nil)
	r2 := Build(ids, embeddings, n, DefaultConfig(), nil)
	assert.Equal(t, r1.ClusterLabels, r2.ClusterLabels)
	assert.Equal(t, r1.LongRangeLinks, r2.LongRangeLinks)
}

func TestSparsifyZeroesBelowThreshold(t *testing.T) {
	w := [][]float32{
		{1, 0.5, 0.1},
		{0.5, 1, 0.3},
		{0.1, 0.3, 1},
	}
	sparsify(w, 0.2)
	assert.Equal(t, float32(0), w[0][2])
	assert.Equal(t, float32(0.5), w[0][1])
	assert.Equal(t, float32(0), w[0][0], "diagonal is zeroed before Laplacian construction")
}

func TestCosineSimilarityMatrixSymmetricWithUnitDiagonal(t *testing.T) {
	embeddings := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	w := cosineSimilarityMatrix(embeddings, norms(embeddings))
	for i := range w {
		assert.InDelta(t, float64(1), float64(w[i][i]), 1e-6)
	}
	assert.Equal(t, w[0][1], w[1][0])
}

func TestEigengapHeuristicClampsToRange(t *testing.T) {
	assert.Equal(t, 2, eigengapHeuristic([]float64{0, 0.001, 0.002}, 2, 12, 50))
	big := []float64{0, 0.01, 5.0, 5.01, 5.02, 5.03, 5.04, 5.05, 5.06, 5.07, 5.08, 5.09, 5.10}
	assert.LessOrEqual(t, eigengapHeuristic(big, 2, 12, 50), 12)
}
