package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrorigo/spectral-cortex/pkg/embed"
	"github.com/mrorigo/spectral-cortex/pkg/persistence"
	"github.com/mrorigo/spectral-cortex/pkg/smg"
	"github.com/mrorigo/spectral-cortex/pkg/spectral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withFakeEmbedder(t *testing.T, dims int) {
	t.Helper()
	require.NoError(t, embed.Init(embed.NewFakeEmbedder(dims), 2, 16))
	t.Cleanup(embed.Shutdown)
}

func buildSnapshot(t *testing.T) string {
	t.Helper()
	withFakeEmbedder(t, 16)
	g := smg.NewGraph()
	ctx := context.Background()
	texts := []string{"apples and oranges", "rocket engines", "deep sea fish", "orbital mechanics"}
	for i, txt := range texts {
		_, err := g.Store.IngestTurn(ctx, smg.Record{TurnID: uint64(i + 1), Content: txt, Timestamp: uint64(1000 + i)})
		require.NoError(t, err)
	}
	g.BuildSpectralStructure(spectral.DefaultConfig(), nil)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, persistence.SaveGraph(path, g))
	return path
}

func TestQueryGraphRendersRankedTable(t *testing.T) {
	path := buildSnapshot(t)
	out := QueryGraph(context.Background(), path, "apples and oranges", 2, 100)
	assert.Contains(t, out, "| rank | turn_id | note_id | score | snippet |")
	assert.Contains(t, out, "| 1 |")
}

func TestQueryGraphClampsTopKAboveMax(t *testing.T) {
	path := buildSnapshot(t)
	out := QueryGraph(context.Background(), path, "apples", 1000, 100)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// header + separator + at most queryGraphMaxTopK rows
	assert.LessOrEqual(t, len(lines)-2, queryGraphMaxTopK)
}

func TestQueryGraphMissingSnapshotRendersError(t *testing.T) {
	out := QueryGraph(context.Background(), "/nonexistent/path.json", "q", 5, 100)
	assert.True(t, strings.HasPrefix(out, "Error: "))
}

func TestInspectNoteRendersFieldsAndRelated(t *testing.T) {
	path := buildSnapshot(t)
	out := InspectNote(path, 0, 10, 100)
	assert.Contains(t, out, "| note_id | 0 |")
	assert.Contains(t, out, "related_note_id")
}

func TestInspectNoteMissingNoteRendersError(t *testing.T) {
	path := buildSnapshot(t)
	out := InspectNote(path, 9999, 10, 100)
	assert.True(t, strings.HasPrefix(out, "Error: "))
}

func TestLongRangeLinksRendersTable(t *testing.T) {
	path := buildSnapshot(t)
	out := LongRangeLinks(path, 50)
	assert.Contains(t, out, "| note_id_a | note_id_b | similarity |")
}

func TestGraphSummaryRendersAggregateCounts(t *testing.T) {
	path := buildSnapshot(t)
	out := GraphSummary(path)
	assert.Contains(t, out, "| notes |")
	assert.Contains(t, out, "| clusters |")
	assert.Contains(t, out, "| long_range_links |")
}

func TestSnippetTruncatesAndEscapesPipes(t *testing.T) {
	s := snippet("a|b\nc"+strings.Repeat("x", 400), 50)
	assert.Contains(t, s, "\\|")
	assert.NotContains(t, s, "\n")
	assert.True(t, strings.HasSuffix(s, "…"))
}

func TestClampTopKBoundsToOneAndMax(t *testing.T) {
	assert.Equal(t, 1, clampTopK(0, 50))
	assert.Equal(t, 50, clampTopK(1000, 50))
	assert.Equal(t, 10, clampTopK(10, 50))
}
