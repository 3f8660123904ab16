package smg

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mrorigo/spectral-cortex/pkg/cache"
	"github.com/mrorigo/spectral-cortex/pkg/retrieval"
	"github.com/mrorigo/spectral-cortex/pkg/smglog"
	"github.com/mrorigo/spectral-cortex/pkg/spectral"
	"github.com/mrorigo/spectral-cortex/pkg/temporal"
)

// retrievalCacheSize and retrievalCacheTTL bound the per-Graph cache of
// recent RetrieveWithScoresConfigFiltered results. A build or a restored
// snapshot invalidates it wholesale, since cluster assignments and
// centroids (and therefore every cached score) may have shifted.
const (
	retrievalCacheSize = 256
	retrievalCacheTTL  = 5 * time.Minute
)

// Graph is the top-level process-local state: a Store plus whatever
// spectral structure the last successful BuildSpectralStructure produced.
// It is single-writer during Ingest*/BuildSpectralStructure and immutable
// during queries - callers must not run a build concurrently with a query.
type Graph struct {
	mu    sync.RWMutex
	Store *Store

	similarity    [][]float32
	spectral      [][]float32
	clusterLabels []int
	centroids     map[int][]float32
	centroidNorms map[int]float32
	longRange     []spectral.LongRangeLink

	lastBuildDuration  time.Duration
	usedFallbackSolver bool

	queryCache *cache.RetrievalCache
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Store: NewStore(), queryCache: cache.NewRetrievalCache(retrievalCacheSize, retrievalCacheTTL)}
}

// NewGraphFromStore wraps an already-populated Store (e.g. reconstructed
// by pkg/persistence.Load) in a fresh Graph with no spectral state yet.
func NewGraphFromStore(s *Store) *Graph {
	return &Graph{Store: s, queryCache: cache.NewRetrievalCache(retrievalCacheSize, retrievalCacheTTL)}
}

// BuildSpectralStructure runs the full spectral pipeline over the current
// note set and replaces every spectral field atomically. On n<3 it clears
// every spectral field (the documented no-op) rather than erroring.
func (g *Graph) BuildSpectralStructure(cfg spectral.Config, progress spectral.ProgressFunc) {
	ids := g.Store.SortedIDs()
	notes := g.Store.SortedNotes()

	embeddings := make([][]float32, len(notes))
	norms := make([]float32, len(notes))
	for i, n := range notes {
		embeddings[i] = n.Embedding
		norms[i] = n.Norm
	}

	res := spectral.Build(ids, embeddings, norms, cfg, progress)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.similarity = res.Similarity
	g.spectral = res.SpectralEmbeddings
	g.clusterLabels = res.ClusterLabels
	g.centroids = res.Centroids
	g.centroidNorms = res.CentroidNorms
	g.longRange = res.LongRangeLinks
	g.lastBuildDuration = res.BuildDuration
	g.usedFallbackSolver = res.UsedFallbackSolver
	g.queryCache.Clear()

	g.populateRelatedNoteLinks(ids, res.LongRangeLinks)
}

// populateRelatedNoteLinks writes the deduplicated per-note neighbor list
// derived from long_range_links onto each Note, for fast neighbor lookup
// without re-scanning the global link list. Caller holds g.mu.
func (g *Graph) populateRelatedNoteLinks(ids []uint32, links []spectral.LongRangeLink) {
	byNote := make(map[uint32]map[uint32]float32)
	for _, l := range links {
		if byNote[l.A] == nil {
			byNote[l.A] = map[uint32]float32{}
		}
		if byNote[l.B] == nil {
			byNote[l.B] = map[uint32]float32{}
		}
		byNote[l.A][l.B] = l.Similarity
		byNote[l.B][l.A] = l.Similarity
	}
	for _, id := range ids {
		n, err := g.Store.Get(id)
		if err != nil {
			continue
		}
		neighbors := byNote[id]
		out := make([]RelatedLink, 0, len(neighbors))
		for otherID, sim := range neighbors {
			out = append(out, RelatedLink{NoteID: otherID, Similarity: sim})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Similarity != out[j].Similarity {
				return out[i].Similarity > out[j].Similarity
			}
			return out[i].NoteID < out[j].NoteID
		})
		n.RelatedNoteLinks = out
	}
}

// PersistableState is the shape pkg/persistence needs: cluster labels,
// centroids, centroid norms, and long-range links as (a, b, similarity)
// triples, decoupled from pkg/spectral's LongRangeLink struct so
// persistence doesn't need to import pkg/spectral.
type PersistableState struct {
	ClusterLabels        []int
	ClusterCentroids     map[int][]float32
	ClusterCentroidNorms map[int]float32
	LongRangeLinks       [][3]float64
}

// SnapshotState returns the current spectral fields in the shape
// pkg/persistence.Save expects.
func (g *Graph) SnapshotState() PersistableState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	links := make([][3]float64, len(g.longRange))
	for i, l := range g.longRange {
		links[i] = [3]float64{float64(l.A), float64(l.B), float64(l.Similarity)}
	}
	return PersistableState{
		ClusterLabels:        g.clusterLabels,
		ClusterCentroids:     g.centroids,
		ClusterCentroidNorms: g.centroidNorms,
		LongRangeLinks:       links,
	}
}

// RestoreState installs spectral fields loaded from a snapshot (cluster
// labels/centroids/long-range links); the similarity and spectral-embedding
// matrices are intentionally not part of a snapshot and remain nil until
// the next BuildSpectralStructure.
func (g *Graph) RestoreState(st PersistableState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clusterLabels = st.ClusterLabels
	g.centroids = st.ClusterCentroids
	g.centroidNorms = st.ClusterCentroidNorms
	links := make([]spectral.LongRangeLink, len(st.LongRangeLinks))
	for i, l := range st.LongRangeLinks {
		links[i] = spectral.LongRangeLink{A: uint32(l[0]), B: uint32(l[1]), Similarity: float32(l[2])}
	}
	g.longRange = links
	if g.queryCache != nil {
		g.queryCache.Clear()
	}
}

// LastBuildDuration returns the wall-clock duration of the most recent
// BuildSpectralStructure call, zero if never built.
func (g *Graph) LastBuildDuration() time.Duration {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastBuildDuration
}

// UsedFallbackSolver reports whether the last build fell back to the dense
// Jacobi eigensolver instead of Lanczos.
func (g *Graph) UsedFallbackSolver() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.usedFallbackSolver
}

// index snapshots the current spectral structure into a retrieval.Index,
// under the read lock, for one query.
func (g *Graph) index() retrieval.Index {
	g.mu.RLock()
	defer g.mu.RUnlock()

	notes := g.Store.SortedNotes()
	views := make([]retrieval.NoteView, len(notes))
	for i, n := range notes {
		views[i] = retrieval.NoteView{
			NoteID:           n.NoteID,
			Embedding:        n.Embedding,
			Norm:             n.Norm,
			SourceTurnIDs:    n.SourceTurnIDs,
			SourceTimestamps: n.SourceTimestamps,
		}
	}
	return retrieval.Index{
		Notes:         views,
		ClusterLabels: g.clusterLabels,
		Centroids:     g.centroids,
		CentroidNorms: g.centroidNorms,
	}
}

// RetrieveCandidates is the unfiltered retrieval path: see
// pkg/retrieval.RetrieveCandidates.
func (g *Graph) RetrieveCandidates(ctx context.Context, query string, candidateK int) ([]retrieval.Candidate, error) {
	return retrieval.RetrieveCandidates(ctx, g.index(), query, candidateK)
}

// RetrieveWithScoresConfigFiltered is the filtered, temporally re-ranked
// retrieval path: see pkg/retrieval.RetrieveWithScoresConfigFiltered. Results
// are cached per (query, topK, timeStart, timeEnd); the cache is cleared
// wholesale on the next BuildSpectralStructure or RestoreState, since cached
// scores are only valid against the cluster/centroid state they were
// computed from.
func (g *Graph) RetrieveWithScoresConfigFiltered(ctx context.Context, query string, topK int, cfg temporal.Config, timeStart, timeEnd *int64) ([]temporal.Scored, error) {
	key := g.queryCache.Key(query, topK, timeStart, timeEnd)
	if v, ok := g.queryCache.Get(key); ok {
		return v.([]temporal.Scored), nil
	}
	scored, err := retrieval.RetrieveWithScoresConfigFiltered(ctx, g.index(), query, topK, cfg, timeStart, timeEnd)
	if err != nil {
		return nil, err
	}
	g.queryCache.Put(key, scored)
	return scored, nil
}

// Retrieve is a convenience wrapper over RetrieveWithScoresConfigFiltered
// using the default temporal config and no time bounds, returning bare
// turn ids in final-score order. Supplements the spec's lower-level API
// with the shape callers most often want (see original_source's
// `retrieve` helper on the Rust Graph type).
func (g *Graph) Retrieve(ctx context.Context, query string, topK int) ([]uint64, error) {
	scored, err := g.RetrieveWithScoresConfigFiltered(ctx, query, topK, temporal.DefaultConfig(), nil, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, len(scored))
	for i, s := range scored {
		ids[i] = s.TurnID
	}
	return ids, nil
}

// GetLongRangeLinks returns a copy of the stored long-range links, in
// stored (descending similarity, then ascending ids) order, truncated to
// topK when topK > 0.
func (g *Graph) GetLongRangeLinks(topK int) []spectral.LongRangeLink {
	g.mu.RLock()
	defer g.mu.RUnlock()
	links := append([]spectral.LongRangeLink(nil), g.longRange...)
	if topK > 0 && topK < len(links) {
		links = links[:topK]
	}
	return links
}

// GetRelatedNoteLinks aggregates, for noteID, the maximum similarity per
// neighbor across long_range_links; when no long-range link involves noteID
// (including when the global list is empty) it falls back to the note's
// stored RelatedNoteLinks (as pairs with score 0.0).
// Returns descending by similarity then ascending by neighbor id.
func (g *Graph) GetRelatedNoteLinks(noteID uint32, topK int) ([]RelatedLink, error) {
	g.mu.RLock()
	links := g.longRange
	g.mu.RUnlock()

	best := map[uint32]float32{}
	for _, l := range links {
		var other uint32
		switch noteID {
		case l.A:
			other = l.B
		case l.B:
			other = l.A
		default:
			continue
		}
		if cur, ok := best[other]; !ok || l.Similarity > cur {
			best[other] = l.Similarity
		}
	}

	var out []RelatedLink
	if len(best) == 0 {
		n, err := g.Store.Get(noteID)
		if err != nil {
			return nil, err
		}
		for _, rl := range n.RelatedNoteLinks {
			out = append(out, RelatedLink{NoteID: rl.NoteID, Similarity: 0.0})
		}
	} else {
		for id, sim := range best {
			out = append(out, RelatedLink{NoteID: id, Similarity: sim})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].NoteID < out[j].NoteID
	})
	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

// GetRelatedNoteIDs is a convenience wrapper returning just the neighbor
// ids from GetRelatedNoteLinks, dropping similarity scores.
func (g *Graph) GetRelatedNoteIDs(noteID uint32, topK int) ([]uint32, error) {
	links, err := g.GetRelatedNoteLinks(noteID, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]uint32, len(links))
	for i, l := range links {
		ids[i] = l.NoteID
	}
	return ids, nil
}

// IncrementalUpdate is a stub: the specification explicitly leaves
// streaming/incremental spectral updates unsanctioned (design note: "the
// incremental spectral update entry point is a stub; full rebuild remains
// the only sanctioned path after ingest"), matching the original's
// incremental_spectral_update() no-op. It always succeeds; callers must
// still call BuildSpectralStructure to actually refresh cluster/link state.
func (g *Graph) IncrementalUpdate(context.Context) error {
	smglog.Component("smg").Warn().Msg("incremental spectral update requested but not supported; call BuildSpectralStructure")
	return nil
}
