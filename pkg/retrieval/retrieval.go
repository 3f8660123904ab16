// Package retrieval implements the retrieval engine: query embedding,
// note-level cosine similarity, cluster boost, optional timestamp
// filtering, and candidate expansion to turn level. Temporal re-ranking
// itself lives in pkg/temporal; this package calls it. It deliberately does
// not import pkg/smg: NoteView is a minimal projection the caller (pkg/smg's
// Graph) builds from its Store, keeping the dependency one-directional.
package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/mrorigo/spectral-cortex/pkg/embed"
	smgerrors "github.com/mrorigo/spectral-cortex/pkg/errors"
	"github.com/mrorigo/spectral-cortex/pkg/temporal"
)

// clusterBoostFactor is the specification's fixed multiplier applied to
// notes in one of the top-3 clusters by query-centroid similarity.
const clusterBoostFactor = 1.2

// topClusterCount is how many clusters receive the boost.
const topClusterCount = 3

// NoteView is the minimal per-note projection retrieval needs.
type NoteView struct {
	NoteID           uint32
	Embedding        []float32
	Norm             float32
	SourceTurnIDs    []uint64
	SourceTimestamps []uint64
}

// Candidate is a turn-level retrieval result before temporal re-ranking.
type Candidate struct {
	TurnID    uint64
	NoteID    uint32
	RawScore  float32
	Timestamp *uint64
}

// Index is the read-only view over a built graph that retrieval needs:
// notes in stable order plus whatever spectral structure exists.
type Index struct {
	Notes         []NoteView
	ClusterLabels []int             // parallel to Notes, nil if no build yet
	Centroids     map[int][]float32 // cluster_id -> mean embedding
	CentroidNorms map[int]float32
}

func vecNorm(v []float32) float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return float32(math.Sqrt(sum))
}

func cosineSim(a, b []float32, normA, normB float32) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

// RetrieveCandidates embeds query, scores every note by cosine similarity
// (boosted 1.2x for the top-3 clusters when spectral structure exists),
// keeps the top candidateK notes, and expands each into one Candidate per
// provenance entry.
func RetrieveCandidates(ctx context.Context, idx Index, query string, candidateK int) ([]Candidate, error) {
	const op = "retrieval.RetrieveCandidates"
	q, err := embed.EmbedOne(ctx, query)
	if err != nil {
		return nil, smgerrors.New(op, smgerrors.EmbedFailure, err)
	}
	qNorm := vecNorm(q)

	type scored struct {
		note  NoteView
		score float32
	}
	boosted := boostedClusters(idx, q, qNorm)

	results := make([]scored, 0, len(idx.Notes))
	for i, n := range idx.Notes {
		sim := cosineSim(q, n.Embedding, qNorm, n.Norm)
		if idx.ClusterLabels != nil && i < len(idx.ClusterLabels) {
			if boosted[idx.ClusterLabels[i]] {
				sim *= clusterBoostFactor
			}
		}
		results = append(results, scored{note: n, score: sim})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if candidateK < len(results) {
		results = results[:candidateK]
	}

	var out []Candidate
	for _, r := range results {
		for i, turnID := range r.note.SourceTurnIDs {
			var ts *uint64
			if i < len(r.note.SourceTimestamps) {
				v := r.note.SourceTimestamps[i]
				ts = &v
			}
			out = append(out, Candidate{
				TurnID:    turnID,
				NoteID:    r.note.NoteID,
				RawScore:  r.score,
				Timestamp: ts,
			})
		}
	}
	return out, nil
}

// boostedClusters returns the set of cluster ids among the top-3 by
// query-centroid cosine similarity. Returns an empty set (no boost applied
// anywhere) when labels, centroids, or centroid norms are absent.
func boostedClusters(idx Index, q []float32, qNorm float32) map[int]bool {
	boosted := map[int]bool{}
	if idx.ClusterLabels == nil || idx.Centroids == nil || idx.CentroidNorms == nil {
		return boosted
	}

	type cs struct {
		id  int
		sim float32
	}
	var sims []cs
	for id, centroid := range idx.Centroids {
		norm, ok := idx.CentroidNorms[id]
		if !ok {
			continue
		}
		sim := cosineSim(q, centroid, qNorm, norm)
		sims = append(sims, cs{id: id, sim: sim})
	}
	sort.Slice(sims, func(i, j int) bool {
		if sims[i].sim != sims[j].sim {
			return sims[i].sim > sims[j].sim
		}
		return sims[i].id < sims[j].id
	})
	for i := 0; i < topClusterCount && i < len(sims); i++ {
		boosted[sims[i].id] = true
	}
	return boosted
}

// RetrieveWithScoresConfigFiltered runs the filtered, time-aware,
// temporally re-ranked retrieval path. When both timeStart and timeEnd are
// nil it delegates straight to RetrieveCandidates + Rerank over the full
// note set; otherwise it first excludes notes whose timestamp envelope
// does not intersect [timeStart, timeEnd].
func RetrieveWithScoresConfigFiltered(ctx context.Context, idx Index, query string, topK int, cfg temporal.Config, timeStart, timeEnd *int64) ([]temporal.Scored, error) {
	const op = "retrieval.RetrieveWithScoresConfigFiltered"

	filteredIdx := idx
	if timeStart != nil || timeEnd != nil {
		filteredIdx = filterByTimestampEnvelope(idx, timeStart, timeEnd)
		if len(filteredIdx.Notes) == 0 {
			return nil, nil
		}
	}

	cands, err := RetrieveCandidates(ctx, filteredIdx, query, topK)
	if err != nil {
		return nil, smgerrors.New(op, smgerrors.EmbedFailure, err)
	}
	if len(cands) == 0 {
		return nil, nil
	}

	tcands := make([]temporal.Candidate, len(cands))
	for i, c := range cands {
		tcands[i] = temporal.Candidate{TurnID: c.TurnID, NoteID: c.NoteID, RawScore: c.RawScore, Timestamp: c.Timestamp}
	}
	scored := temporal.Rerank(tcands, cfg, nil)
	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

// filterByTimestampEnvelope builds a reduced Index containing only notes
// whose timestamp envelope intersects [timeStart, timeEnd]. Notes with no
// timestamps are always excluded under time filtering, per specification.
func filterByTimestampEnvelope(idx Index, timeStart, timeEnd *int64) Index {
	var notes []NoteView
	var keepLabels []int

	for i, n := range idx.Notes {
		if len(n.SourceTimestamps) == 0 {
			continue
		}
		minTS, maxTS := n.SourceTimestamps[0], n.SourceTimestamps[0]
		for _, t := range n.SourceTimestamps {
			if t < minTS {
				minTS = t
			}
			if t > maxTS {
				maxTS = t
			}
		}
		if timeStart != nil && int64(maxTS) < *timeStart {
			continue
		}
		if timeEnd != nil && int64(minTS) > *timeEnd {
			continue
		}
		notes = append(notes, n)
		if idx.ClusterLabels != nil && i < len(idx.ClusterLabels) {
			keepLabels = append(keepLabels, idx.ClusterLabels[i])
		}
	}

	out := Index{Notes: notes, Centroids: idx.Centroids, CentroidNorms: idx.CentroidNorms}
	if idx.ClusterLabels != nil {
		out.ClusterLabels = keepLabels
	}
	return out
}
