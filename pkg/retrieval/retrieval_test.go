package retrieval

import (
	"context"
	"testing"

	"github.com/mrorigo/spectral-cortex/pkg/embed"
	"github.com/mrorigo/spectral-cortex/pkg/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFakeEmbedder(t *testing.T, dims int) {
	t.Helper()
	require.NoError(t, embed.Init(embed.NewFakeEmbedder(dims), 2, 16))
	t.Cleanup(embed.Shutdown)
}

func TestRetrieveCandidatesRanksBySimilarity(t *testing.T) {
	withFakeEmbedder(t, 16)
	idx := Index{Notes: []NoteView{
		{NoteID: 0, Embedding: mustEmbed(t, "apples and oranges"), SourceTurnIDs: []uint64{10}},
		{NoteID: 1, Embedding: mustEmbed(t, "rocket engines"), SourceTurnIDs: []uint64{20}},
	}}
	for i := range idx.Notes {
		idx.Notes[i].Norm = vecNorm(idx.Notes[i].Embedding)
	}

	cands, err := RetrieveCandidates(context.Background(), idx, "apples and oranges", 2)
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, uint64(10), cands[0].TurnID)
}

func TestRetrieveCandidatesExpandsMultiTurnNotes(t *testing.T) {
	withFakeEmbedder(t, 16)
	vec := mustEmbed(t, "shared note")
	idx := Index{Notes: []NoteView{
		{NoteID: 0, Embedding: vec, Norm: vecNorm(vec), SourceTurnIDs: []uint64{1, 2, 3}},
	}}
	cands, err := RetrieveCandidates(context.Background(), idx, "shared note", 5)
	require.NoError(t, err)
	assert.Len(t, cands, 3)
}

func TestBoostedClustersPicksTopThreeByCentroidSimilarity(t *testing.T) {
	withFakeEmbedder(t, 16)
	q := mustEmbed(t, "query")
	qNorm := vecNorm(q)
	idx := Index{
		Centroids: map[int][]float32{
			0: mustEmbed(t, "query"),
			1: mustEmbed(t, "other"),
			2: mustEmbed(t, "another"),
			3: mustEmbed(t, "yet another"),
		},
	}
	idx.CentroidNorms = map[int]float32{}
	for id, c := range idx.Centroids {
		idx.CentroidNorms[id] = vecNorm(c)
	}
	idx.ClusterLabels = []int{0}
	boosted := boostedClusters(idx, q, qNorm)
	assert.Len(t, boosted, 3)
}

func TestFilterByTimestampEnvelopeExcludesNotesWithoutTimestamps(t *testing.T) {
	idx := Index{Notes: []NoteView{
		{NoteID: 0, SourceTimestamps: nil},
		{NoteID: 1, SourceTimestamps: []uint64{100}},
	}}
	start := int64(0)
	end := int64(200)
	out := filterByTimestampEnvelope(idx, &start, &end)
	require.Len(t, out.Notes, 1)
	assert.Equal(t, uint32(1), out.Notes[0].NoteID)
}

func TestFilterByTimestampEnvelopeExcludesOutOfRange(t *testing.T) {
	idx := Index{Notes: []NoteView{
		{NoteID: 0, SourceTimestamps: []uint64{5}},
		{NoteID: 1, SourceTimestamps: []uint64{500}},
	}}
	start := int64(100)
	end := int64(1000)
	out := filterByTimestampEnvelope(idx, &start, &end)
	require.Len(t, out.Notes, 1)
	assert.Equal(t, uint32(1), out.Notes[0].NoteID)
}

func TestRetrieveWithScoresConfigFilteredEmptyAfterFilterReturnsNil(t *testing.T) {
	withFakeEmbedder(t, 8)
	idx := Index{Notes: []NoteView{{NoteID: 0, SourceTimestamps: nil}}}
	start := int64(0)
	scored, err := RetrieveWithScoresConfigFiltered(context.Background(), idx, "q", 5, temporal.DefaultConfig(), &start, nil)
	require.NoError(t, err)
	assert.Nil(t, scored)
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	v, err := embed.EmbedOne(context.Background(), text)
	require.NoError(t, err)
	return v
}
