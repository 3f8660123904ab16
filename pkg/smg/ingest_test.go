package smg

import (
	"context"
	"testing"

	"github.com/mrorigo/spectral-cortex/pkg/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFakeEmbedder(t *testing.T, dims int) {
	t.Helper()
	require.NoError(t, embed.Init(embed.NewFakeEmbedder(dims), 2, 16))
	t.Cleanup(embed.Shutdown)
}

func TestIngestTurnEmbedsAndSanitizesContent(t *testing.T) {
	withFakeEmbedder(t, 8)
	s := NewStore()
	id, err := s.IngestTurn(context.Background(), Record{TurnID: 1, Content: "hello\x01world"})
	require.NoError(t, err)
	n, err := s.Get(id)
	require.NoError(t, err)
	assert.NotContains(t, n.RawText, "\x01")
	assert.Len(t, n.Embedding, 8)
}

func TestIngestTurnsBatchPreservesOrderAndReportsProgress(t *testing.T) {
	withFakeEmbedder(t, 8)
	s := NewStore()
	recs := []Record{
		{TurnID: 1, Content: "first"},
		{TurnID: 2, Content: "second"},
		{TurnID: 3, Content: "third"},
	}
	var lastFrac float64
	ids, err := s.IngestTurnsBatch(context.Background(), recs, func(_ string, frac float64) {
		lastFrac = frac
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.InDelta(t, 1.0, lastFrac, 1e-9)

	for i, id := range ids {
		n, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, recs[i].TurnID, n.SourceTurnIDs[0])
	}
}

func TestIngestTurnsBatchEmptyInputIsNoOp(t *testing.T) {
	withFakeEmbedder(t, 8)
	s := NewStore()
	ids, err := s.IngestTurnsBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, s.Len())
}
