package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrorigo/spectral-cortex/pkg/smg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore() *smg.Store {
	s := smg.NewStore()
	s.InsertEmbedded(smg.Record{TurnID: 1, Content: "first note"}, smg.Vector{1, 0, 0})
	s.InsertEmbedded(smg.Record{TurnID: 2, Content: "second note"}, smg.Vector{0, 1, 0})
	return s
}

func TestSaveLoadRoundTripPreservesNotesAndSpectralState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	st := State{
		Store:                seedStore(),
		ClusterLabels:        []int{0, 1},
		ClusterCentroids:     map[int][]float32{0: {1, 0, 0}, 1: {0, 1, 0}},
		ClusterCentroidNorms: map[int]float32{0: 1, 1: 1},
		LongRangeLinks:       [][3]float64{{0, 1, 0.5}},
	}
	require.NoError(t, Save(path, st))

	store, loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []int{0, 1}, loaded.ClusterLabels)
	assert.Equal(t, st.ClusterCentroids, loaded.ClusterCentroids)
	assert.Equal(t, st.ClusterCentroidNorms, loaded.ClusterCentroidNorms)
	assert.Equal(t, st.LongRangeLinks, loaded.LongRangeLinks)
}

func TestLoadRejectsTamperedChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, Save(path, State{Store: seedStore()}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	body = append(body, '\n')
	require.NoError(t, os.WriteFile(path, body, 0o644))

	_, _, err = Load(path)
	assert.Error(t, err)
}

func TestSaveLoadZstdCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.smg.zst")
	st := State{Store: seedStore()}
	require.NoError(t, Save(path, st))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	store, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestLoadRejectsUnsupportedFormatVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, Save(path, State{Store: seedStore()}))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	body = []byte(replaceFormatVersion(string(body)))
	require.NoError(t, os.WriteFile(path, body, 0o644))
	require.NoError(t, os.Remove(path+".b2"))

	_, _, err = Load(path)
	assert.Error(t, err)
}

func replaceFormatVersion(s string) string {
	old := `"format_version": "` + FormatVersion + `"`
	new := `"format_version": "ancient-format"`
	out := ""
	found := false
	for i := 0; i < len(s); i++ {
		if !found && i+len(old) <= len(s) && s[i:i+len(old)] == old {
			out += new
			i += len(old) - 1
			found = true
			continue
		}
		out += string(s[i])
	}
	return out
}

func TestLoadRestoresNextIDPastHighestNoteID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	require.NoError(t, Save(path, State{Store: seedStore()}))

	store, _, err := Load(path)
	require.NoError(t, err)
	id := store.InsertEmbedded(smg.Record{TurnID: 3, Content: "third"}, smg.Vector{0, 0, 1})
	assert.Equal(t, uint32(2), id)
}

func TestSaveGraphLoadGraphRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")

	g := smg.NewGraph()
	g.Store.InsertEmbedded(smg.Record{TurnID: 1, Content: "a"}, smg.Vector{1, 0})
	g.Store.InsertEmbedded(smg.Record{TurnID: 2, Content: "b"}, smg.Vector{0, 1})

	require.NoError(t, SaveGraph(path, g))
	g2, err := LoadGraph(path)
	require.NoError(t, err)
	assert.Equal(t, g.Store.Len(), g2.Store.Len())
}

func TestSortedClusterIDsReturnsAscendingOrder(t *testing.T) {
	ids := SortedClusterIDs(map[int][]float32{3: {1}, 1: {1}, 2: {1}})
	assert.Equal(t, []int{1, 2, 3}, ids)
}
