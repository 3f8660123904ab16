// Package smg implements the Spectral Memory Graph: the note store and the
// top-level Graph that ties the embedder, spectral engine, and retrieval
// engine together, mirroring the shape of the teacher corpus's singleton,
// RWMutex-guarded in-memory state generalized to SMG notes.
package smg

import (
	"math"
	"sort"
	"sync"

	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
)

// Vector is a fixed-dimensional embedding. All vectors within one Graph
// must share the same length.
type Vector []float32

// Norm returns the L2 norm of v.
func (v Vector) Norm() float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sumSq))
}

// Dot returns the dot product of v and other. Panics if other is shorter
// than v; components of other beyond len(v) are ignored. This relies on the stable-ordering invariant that every vector in a graph
// shares dimension d.
func (v Vector) Dot(other Vector) float32 {
	var sum float64
	for i := range v {
		sum += float64(v[i]) * float64(other[i])
	}
	return float32(sum)
}

// CosineSimilarity returns the cosine similarity between a and b, 0 if
// either has zero norm.
func CosineSimilarity(a, b Vector, normA, normB float32) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	return a.Dot(b) / (normA * normB)
}

// RelatedLink is one (other_note_id, spectral_similarity) edge stored on a
// Note after a spectral build.
type RelatedLink struct {
	NoteID     uint32
	Similarity float32
}

// Note is the unit of indexing: one or more source records folded into a
// single embedded entity.
type Note struct {
	NoteID   uint32
	RawText  string
	Context  string
	Embedding Vector
	Norm      float32

	SourceTurnIDs    []uint64
	SourceCommitIDs  []*string
	SourceTimestamps []uint64

	RelatedNoteLinks []RelatedLink
}

// Record is the external record-source contract consumed by ingest.
type Record struct {
	TurnID    uint64
	Speaker   string
	Content   string
	Topic     string
	Entities  []string
	CommitID  *string
	Timestamp uint64
}

// Store is the single-writer-during-ingest, multi-reader-during-query
// mapping note_id -> Note. It also owns the monotonic note_id allocator.
type Store struct {
	mu     sync.RWMutex
	notes  map[uint32]*Note
	nextID uint32
}

// NewStore returns an empty note store.
func NewStore() *Store {
	return &Store{notes: make(map[uint32]*Note)}
}

// Len returns the current number of notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Get returns the note with the given id, or NotFound.
func (s *Store) Get(id uint32) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, smgerrors.New("smg.Store.Get", smgerrors.NotFound, nil)
	}
	return n, nil
}

// SortedIDs returns every note_id in ascending order: the stable ordering
// rule that binds matrix rows, cluster labels, and persisted arrays.
func (s *Store) SortedIDs() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint32, 0, len(s.notes))
	for id := range s.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedNotes returns every note in ascending note_id order.
func (s *Store) SortedNotes() []*Note {
	ids := s.SortedIDs()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Note, len(ids))
	for i, id := range ids {
		out[i] = s.notes[id]
	}
	return out
}

// InsertEmbedded inserts a new note built from a single embedded record and
// returns its allocated note_id. Callers that already have the embedding
// (e.g. after a batch embed_batch call) use this directly; IngestTurn (ingest.go)
// computes the embedding itself for single-record ingest.
func (s *Store) InsertEmbedded(rec Record, embedding Vector) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++

	var commitID *string
	if rec.CommitID != nil {
		c := *rec.CommitID
		commitID = &c
	}

	s.notes[id] = &Note{
		NoteID:           id,
		RawText:          rec.Content,
		Context:          collapseWhitespace(rec.Content),
		Embedding:        embedding,
		Norm:             embedding.Norm(),
		SourceTurnIDs:    []uint64{rec.TurnID},
		SourceCommitIDs:  []*string{commitID},
		SourceTimestamps: []uint64{rec.Timestamp},
		RelatedNoteLinks: nil,
	}
	return id
}

// restoreRaw inserts a fully-formed note as-is (used by persistence.Load),
// advancing nextID to stay ahead of the highest restored id.
func (s *Store) restoreRaw(n *Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[n.NoteID] = n
	if s.nextID <= n.NoteID {
		s.nextID = n.NoteID + 1
	}
}

// RestoredNote is the shape pkg/persistence.Load reconstructs a Note from,
// kept separate from Note itself so the note store's persistence contract
// doesn't leak into the in-memory struct's field set.
type RestoredNote struct {
	NoteID           uint32
	RawText          string
	Context          string
	Embedding        []float32
	Norm             float32
	SourceTurnIDs    []uint64
	SourceCommitIDs  []*string
	SourceTimestamps []uint64
	RelatedNoteIDs   []uint32
}

// RestoreNote inserts a note reconstructed from a snapshot, including its
// related_note_links (restored with similarity 0.0, since the snapshot
// stores only ids; a rebuild will repopulate real scores). Advances
// next_id past the restored note_id, per the load contract.
func (s *Store) RestoreNote(rn RestoredNote) {
	related := make([]RelatedLink, len(rn.RelatedNoteIDs))
	for i, id := range rn.RelatedNoteIDs {
		related[i] = RelatedLink{NoteID: id, Similarity: 0.0}
	}
	n := &Note{
		NoteID:           rn.NoteID,
		RawText:          rn.RawText,
		Context:          rn.Context,
		Embedding:        rn.Embedding,
		Norm:             rn.Norm,
		SourceTurnIDs:    rn.SourceTurnIDs,
		SourceCommitIDs:  rn.SourceCommitIDs,
		SourceTimestamps: rn.SourceTimestamps,
		RelatedNoteLinks: related,
	}
	s.restoreRaw(n)
}

// UpdateWithWeightedAverage folds another embedded record into an existing
// note via a weighted average: new_embedding = (old*n + turn_embedding) /
// (n+1). This operation is exposed for future merge strategies; the
// default ingest path never calls it (see design notes on merge policy).
func (s *Store) UpdateWithWeightedAverage(id uint32, rec Record, embedding Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return smgerrors.New("smg.Store.UpdateWithWeightedAverage", smgerrors.NotFound, nil)
	}

	priorCount := float32(len(n.SourceTurnIDs))
	merged := make(Vector, len(n.Embedding))
	for i := range merged {
		merged[i] = (n.Embedding[i]*priorCount + embedding[i]) / (priorCount + 1)
	}
	n.Embedding = merged
	n.Norm = merged.Norm()
	n.RawText = n.RawText + "\n" + rec.Content

	var commitID *string
	if rec.CommitID != nil {
		c := *rec.CommitID
		commitID = &c
	}
	n.SourceTurnIDs = append(n.SourceTurnIDs, rec.TurnID)
	n.SourceCommitIDs = append(n.SourceCommitIDs, commitID)
	n.SourceTimestamps = append(n.SourceTimestamps, rec.Timestamp)
	return nil
}

func collapseWhitespace(s string) string {
	out := make([]byte, 0, len(s))
	lastSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		isSpace := c == ' ' || c == '\t' || c == '\n' || c == '\r'
		if isSpace {
			if !lastSpace && len(out) > 0 {
				out = append(out, ' ')
			}
			lastSpace = true
			continue
		}
		out = append(out, c)
		lastSpace = false
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return string(out)
}
