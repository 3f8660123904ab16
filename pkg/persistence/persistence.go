// Package persistence implements the single-file JSON snapshot that closes
// the loop between ingest, build, save, load, and query. Saves are atomic
// (temp file + rename, the idiom the teacher corpus's durable writers use
// for their own on-disk segments) and guarded by a BLAKE2b checksum
// sidecar.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/smg"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

// FormatVersion is the on-disk format tag this package writes and the only
// one it accepts on load.
const FormatVersion = "spectral-cortex-1"

// Metadata is the snapshot's metadata block.
type Metadata struct {
	FormatVersion string `json:"format_version"`
	SnapshotID    string `json:"snapshot_id"`
	NoteCount     int    `json:"note_count"`
}

// noteRecord is the on-disk shape of one note, matching spec.md's schema.
// source_commit_ids and source_timestamps carry omitempty so that an empty
// sequence is omitted entirely, for backward compatibility with older
// snapshots.
type noteRecord struct {
	NoteID           uint32    `json:"note_id"`
	RawContent       string    `json:"raw_content"`
	Context          string    `json:"context"`
	Embedding        []float32 `json:"embedding"`
	Norm             float32   `json:"norm"`
	SourceTurnIDs    []uint64  `json:"source_turn_ids"`
	SourceCommitIDs  []*string `json:"source_commit_ids,omitempty"`
	SourceTimestamps []uint64  `json:"source_timestamps,omitempty"`
	RelatedNoteIDs   []uint32  `json:"related_note_ids"`
}

// snapshot is the full on-disk document.
type snapshot struct {
	Metadata             Metadata             `json:"metadata"`
	Notes                []noteRecord         `json:"notes"`
	ClusterLabels        []int                `json:"cluster_labels,omitempty"`
	ClusterCentroids     map[string][]float32 `json:"cluster_centroids,omitempty"`
	ClusterCentroidNorms map[string]float32   `json:"cluster_centroid_norms,omitempty"`
	LongRangeLinks       [][3]float64         `json:"long_range_links,omitempty"`
}

// State is the subset of pkg/smg.Graph persistence needs to read and
// write, kept decoupled from Graph's exported surface so this package can
// be tested without spinning up a full Graph.
type State struct {
	Store                *smg.Store
	ClusterLabels         []int
	ClusterCentroids      map[int][]float32
	ClusterCentroidNorms  map[int]float32
	LongRangeLinks        [][3]float64 // [note_id_a, note_id_b, similarity]
}

// Save writes State to path atomically: it marshals to a temp sibling file
// in the same directory, renames the temp file into place, then writes a
// BLAKE2b-256 checksum of the on-disk bytes to path+".b2". Readers never
// observe a partially-written snapshot.
func Save(path string, st State) error {
	const op = "persistence.Save"

	notes := st.Store.SortedNotes()
	noteRecords := make([]noteRecord, len(notes))
	for i, n := range notes {
		related := make([]uint32, len(n.RelatedNoteLinks))
		for j, rl := range n.RelatedNoteLinks {
			related[j] = rl.NoteID
		}
		noteRecords[i] = noteRecord{
			NoteID:           n.NoteID,
			RawContent:       n.RawText,
			Context:          n.Context,
			Embedding:        n.Embedding,
			Norm:             n.Norm,
			SourceTurnIDs:    n.SourceTurnIDs,
			SourceCommitIDs:  nonEmptyCommitIDs(n.SourceCommitIDs),
			SourceTimestamps: nonEmptyTimestamps(n.SourceTimestamps),
			RelatedNoteIDs:   related,
		}
	}

	doc := snapshot{
		Metadata: Metadata{
			FormatVersion: FormatVersion,
			SnapshotID:    uuid.NewString(),
			NoteCount:     len(notes),
		},
		Notes:          noteRecords,
		ClusterLabels:  st.ClusterLabels,
		LongRangeLinks: st.LongRangeLinks,
	}
	if st.ClusterCentroids != nil {
		doc.ClusterCentroids = canonicalizeCentroids(st.ClusterCentroids)
	}
	if st.ClusterCentroidNorms != nil {
		doc.ClusterCentroidNorms = canonicalizeNorms(st.ClusterCentroidNorms)
	}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}

	diskBody := body
	if isCompressedPath(path) {
		diskBody, err = compressZstd(body)
		if err != nil {
			return smgerrors.New(op, smgerrors.IoFailure, err)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(diskBody); err != nil {
		tmp.Close()
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}

	sum := blake2b.Sum256(diskBody)
	if err := os.WriteFile(path+".b2", []byte(fmt.Sprintf("%x\n", sum)), 0o644); err != nil {
		return smgerrors.New(op, smgerrors.IoFailure, err)
	}
	return nil
}

// isCompressedPath reports whether path names a zstd-compressed snapshot
// (".smg.zst" or any ".zst" suffix), per the specification's optional
// on-disk compression component.
func isCompressedPath(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

func compressZstd(body []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(body, nil), nil
}

func decompressZstd(body []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(body, nil)
}

// Load reads a snapshot written by Save and reconstructs the note store
// and spectral fields. next_id is restored as max(note_id)+1, and a
// checksum sidecar (if present) is verified before decoding.
func Load(path string) (*smg.Store, State, error) {
	const op = "persistence.Load"

	diskBody, err := os.ReadFile(path)
	if err != nil {
		return nil, State{}, smgerrors.New(op, smgerrors.IoFailure, err)
	}

	if sidecar, err := os.ReadFile(path + ".b2"); err == nil {
		sum := blake2b.Sum256(diskBody)
		want := fmt.Sprintf("%x\n", sum)
		if string(sidecar) != want {
			return nil, State{}, smgerrors.New(op, smgerrors.DecodeFailure, fmt.Errorf("checksum mismatch"))
		}
	}

	body := diskBody
	if isCompressedPath(path) {
		body, err = decompressZstd(diskBody)
		if err != nil {
			return nil, State{}, smgerrors.New(op, smgerrors.DecodeFailure, err)
		}
	}

	var doc snapshot
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, State{}, smgerrors.New(op, smgerrors.DecodeFailure, err)
	}
	if doc.Metadata.FormatVersion != FormatVersion {
		return nil, State{}, smgerrors.New(op, smgerrors.DecodeFailure,
			fmt.Errorf("unsupported format_version %q", doc.Metadata.FormatVersion))
	}

	store := smg.NewStore()
	for _, nr := range doc.Notes {
		store.RestoreNote(smg.RestoredNote{
			NoteID:           nr.NoteID,
			RawText:          nr.RawContent,
			Context:          nr.Context,
			Embedding:        nr.Embedding,
			Norm:             nr.Norm,
			SourceTurnIDs:    nr.SourceTurnIDs,
			SourceCommitIDs:  nr.SourceCommitIDs,
			SourceTimestamps: nr.SourceTimestamps,
			RelatedNoteIDs:   nr.RelatedNoteIDs,
		})
	}

	st := State{
		Store:         store,
		ClusterLabels: doc.ClusterLabels,
		LongRangeLinks: doc.LongRangeLinks,
	}
	if doc.ClusterCentroids != nil {
		st.ClusterCentroids = decanonicalizeCentroids(doc.ClusterCentroids)
	}
	if doc.ClusterCentroidNorms != nil {
		st.ClusterCentroidNorms = decanonicalizeNorms(doc.ClusterCentroidNorms)
	}
	return store, st, nil
}

func nonEmptyCommitIDs(ids []*string) []*string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}

func nonEmptyTimestamps(ts []uint64) []uint64 {
	if len(ts) == 0 {
		return nil
	}
	return ts
}

// canonicalizeCentroids and its norm counterpart key maps by their decimal
// string cluster id, for stable JSON key order (json.Marshal on a map
// already sorts keys, but we keep this explicit since cluster ids are ints
// and JSON object keys must be strings).
func canonicalizeCentroids(m map[int][]float32) map[string][]float32 {
	out := make(map[string][]float32, len(m))
	for k, v := range m {
		out[fmt.Sprintf("%d", k)] = v
	}
	return out
}

func canonicalizeNorms(m map[int]float32) map[string]float32 {
	out := make(map[string]float32, len(m))
	for k, v := range m {
		out[fmt.Sprintf("%d", k)] = v
	}
	return out
}

func decanonicalizeCentroids(m map[string][]float32) map[int][]float32 {
	out := make(map[int][]float32, len(m))
	for k, v := range m {
		var id int
		fmt.Sscanf(k, "%d", &id)
		out[id] = v
	}
	return out
}

func decanonicalizeNorms(m map[string]float32) map[int]float32 {
	out := make(map[int]float32, len(m))
	for k, v := range m {
		var id int
		fmt.Sscanf(k, "%d", &id)
		out[id] = v
	}
	return out
}

// SortedClusterIDs is used by callers that need deterministic iteration
// over a centroid map (e.g. the tool surface's graph_summary table).
func SortedClusterIDs(m map[int][]float32) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SaveGraph snapshots g's current notes and spectral state to path.
func SaveGraph(path string, g *smg.Graph) error {
	snap := g.SnapshotState()
	return Save(path, State{
		Store:                g.Store,
		ClusterLabels:        snap.ClusterLabels,
		ClusterCentroids:     snap.ClusterCentroids,
		ClusterCentroidNorms: snap.ClusterCentroidNorms,
		LongRangeLinks:       snap.LongRangeLinks,
	})
}

// LoadGraph reads a snapshot from path into a fresh Graph.
func LoadGraph(path string) (*smg.Graph, error) {
	store, st, err := Load(path)
	if err != nil {
		return nil, err
	}
	g := smg.NewGraphFromStore(store)
	g.RestoreState(smg.PersistableState{
		ClusterLabels:        st.ClusterLabels,
		ClusterCentroids:     st.ClusterCentroids,
		ClusterCentroidNorms: st.ClusterCentroidNorms,
		LongRangeLinks:       st.LongRangeLinks,
	})
	return g, nil
}
