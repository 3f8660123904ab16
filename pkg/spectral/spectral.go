// Package spectral implements the spectral engine: cosine similarity
// matrix construction, sparsification, the normalized graph Laplacian,
// partial symmetric eigendecomposition, the eigengap cluster-count
// heuristic, k-means on the spectral embedding, centroid computation, and
// long-range link detection. Grounded on
// _examples/original_source/crates/spectral-cortex-lib/src/graph/spectral.rs,
// ported from Rust/nalgebra/linfa to Go/math.
package spectral

import (
	"sort"
	"time"

	"github.com/mrorigo/spectral-cortex/pkg/pool"
	"github.com/mrorigo/spectral-cortex/pkg/smglog"
)

// Config carries the fixed thresholds named throughout the specification.
// Defaults below match the specification's named constants exactly; they
// are not meant to be tuned per-deployment.
type Config struct {
	AdjacencyThreshold    float32
	SpectralLinkThreshold float32
	EmbedLinkThreshold    float32
	RequestedDims         int
	MinClusters           int
	MaxClusters           int
	KMeansMaxIterations   int
}

// DefaultConfig returns the specification's constants: adjacency
// sparsification threshold 0.20, spectral-link threshold 0.70,
// embedding-link threshold 0.50, 8 requested spectral dimensions, cluster
// count clamped to [2, 12], and 100 k-means iterations.
func DefaultConfig() Config {
	return Config{
		AdjacencyThreshold:    0.20,
		SpectralLinkThreshold: 0.70,
		EmbedLinkThreshold:    0.50,
		RequestedDims:         8,
		MinClusters:           2,
		MaxClusters:           12,
		KMeansMaxIterations:   100,
	}
}

// LongRangeLink is a pair of notes with high spectral similarity but low
// embedding similarity.
type LongRangeLink struct {
	A, B       uint32
	Similarity float32
}

// Result holds every field the spectral build populates, indexed
// consistently against NoteIDs (the stable ascending note_id order).
type Result struct {
	NoteIDs            []uint32
	Similarity         [][]float32 // sparsified W, nil if n < 3
	SpectralEmbeddings [][]float32 // n x k, row-normalized
	ClusterLabels      []int       // length n
	Centroids          map[int][]float32
	CentroidNorms      map[int]float32
	LongRangeLinks     []LongRangeLink
	BuildDuration      time.Duration
	UsedFallbackSolver bool
}

// ProgressFunc reports (message, fraction) during a build.
type ProgressFunc func(message string, fraction float64)

// Build runs the ten-step spectral pipeline over notes taken in ascending
// note_id order. If n < 3 the build is a documented no-op: it reports
// progress 1.0 and returns a Result with every spectral field left nil.
func Build(noteIDs []uint32, embeddings [][]float32, norms []float32, cfg Config, progress ProgressFunc) *Result {
	start := time.Now()
	log := smglog.Component("spectral")
	n := len(noteIDs)

	report := func(msg string, frac float64) {
		if progress != nil {
			progress(msg, frac)
		}
	}

	if n < 3 {
		report("build skipped: fewer than 3 notes", 1.0)
		log.Debug().Int("notes", n).Msg("spectral build no-op")
		return &Result{NoteIDs: noteIDs, BuildDuration: time.Since(start)}
	}

	// Step 1-2: cosine similarity matrix.
	report("computing similarity matrix", 0.1)
	w := cosineSimilarityMatrix(embeddings, norms)

	// Step 3: sparsify, store as similarity_matrix.
	report("sparsifying adjacency", 0.2)
	sparsify(w, cfg.AdjacencyThreshold)

	// Step 4: normalized Laplacian.
	report("building normalized laplacian", 0.3)
	l := normalizedLaplacian(w)

	// Step 5: partial eigendecomposition, k_req smallest.
	report("running eigendecomposition", 0.45)
	kReq := cfg.RequestedDims
	l64 := toFloat64Matrix(l)
	eigvals, eigvecs, usedFallback := decomposeSmallestK(l64, kReq)
	_ = eigvals

	// Step 6: spectral embedding Y, row-normalized, k = min(k_req, n-1).
	report("computing spectral embedding", 0.55)
	k := kReq
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}
	y := rowNormalize(eigvecs, k)

	// Step 7: eigengap heuristic for cluster count.
	report("selecting cluster count", 0.6)
	numClusters := eigengapHeuristic(eigvals, cfg.MinClusters, cfg.MaxClusters, n)

	// Step 8: k-means on Y.
	report("running k-means", 0.7)
	labels := kmeans(y, numClusters, cfg.KMeansMaxIterations)

	// Step 9: centroids in original embedding space.
	report("computing centroids", 0.85)
	centroids, centroidNorms := computeCentroids(embeddings, labels)

	// Step 10: long-range links (pkg/smg's Graph populates each note's
	// related-note links from them).
	report("detecting long-range links", 0.95)
	links := detectLongRangeLinks(noteIDs, y, w, cfg.SpectralLinkThreshold, cfg.EmbedLinkThreshold)

	report("build complete", 1.0)

	ySpectral := make([][]float32, n)
	for i := range y {
		row := make([]float32, len(y[i]))
		for j, v := range y[i] {
			row[j] = float32(v)
		}
		ySpectral[i] = row
	}

	res := &Result{
		NoteIDs:            noteIDs,
		Similarity:         w,
		SpectralEmbeddings: ySpectral,
		ClusterLabels:      labels,
		Centroids:          centroids,
		CentroidNorms:      centroidNorms,
		LongRangeLinks:     links,
		BuildDuration:      time.Since(start),
		UsedFallbackSolver: usedFallback,
	}
	log.Info().Int("notes", n).Int("clusters", numClusters).Int("links", len(links)).
		Dur("elapsed", res.BuildDuration).Bool("fallback_solver", usedFallback).Msg("spectral build complete")
	return res
}

func cosineSimilarityMatrix(x [][]float32, norms []float32) [][]float32 {
	n := len(x)
	w := make([][]float32, n)
	for i := range w {
		w[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		w[i][i] = 1
		for j := i + 1; j < n; j++ {
			var s float32
			if norms[i] != 0 && norms[j] != 0 {
				var dot float32
				for d := range x[i] {
					dot += x[i][d] * x[j][d]
				}
				s = dot / (norms[i] * norms[j])
			}
			w[i][j] = s
			w[j][i] = s
		}
	}
	return w
}

func sparsify(w [][]float32, threshold float32) {
	n := len(w)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				w[i][j] = 0
				continue
			}
			if w[i][j] < threshold {
				w[i][j] = 0
			}
		}
	}
}

func normalizedLaplacian(w [][]float32) [][]float32 {
	n := len(w)
	degree := pool.GetFloat32Row()
	defer pool.PutFloat32Row(degree)
	for i := 0; i < n; i++ {
		var sum float32
		for j := 0; j < n; j++ {
			sum += w[i][j]
		}
		degree = append(degree, sum)
	}
	l := make([][]float32, n)
	for i := range l {
		l[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var wij float32
			if degree[i] > 0 && degree[j] > 0 {
				wij = w[i][j] / sqrtF32(degree[i]*degree[j])
			}
			if i == j {
				l[i][j] = 1 - wij
			} else {
				l[i][j] = -wij
			}
		}
	}
	return l
}

func eigengapHeuristic(eigvals []float64, minK, maxK, n int) int {
	if len(eigvals) < 2 {
		return clampInt(minK, minK, maxK)
	}
	bestGap := -1.0
	bestIdx := 1
	for i := 1; i < len(eigvals); i++ {
		gap := eigvals[i] - eigvals[i-1]
		if gap > bestGap {
			bestGap = gap
			bestIdx = i
		}
	}
	k := clampInt(bestIdx, minK, maxK)
	if k > n {
		k = n
	}
	return k
}

func computeCentroids(x [][]float32, labels []int) (map[int][]float32, map[int]float32) {
	dim := 0
	if len(x) > 0 {
		dim = len(x[0])
	}
	sums := make(map[int][]float32)
	counts := make(map[int]int)
	for i, label := range labels {
		if _, ok := sums[label]; !ok {
			sums[label] = make([]float32, dim)
		}
		for d := 0; d < dim; d++ {
			sums[label][d] += x[i][d]
		}
		counts[label]++
	}
	centroids := make(map[int][]float32, len(sums))
	norms := make(map[int]float32, len(sums))
	for label, sum := range sums {
		mean := make([]float32, dim)
		n := float32(counts[label])
		for d := 0; d < dim; d++ {
			mean[d] = sum[d] / n
		}
		centroids[label] = mean
		norms[label] = Vector(mean).Norm()
	}
	return centroids, norms
}

func detectLongRangeLinks(noteIDs []uint32, y [][]float64, w [][]float32, specThresh, embThresh float32) []LongRangeLink {
	n := len(noteIDs)
	yNorms := make([]float64, n)
	for i := range y {
		var s float64
		for _, v := range y[i] {
			s += v * v
		}
		yNorms[i] = sqrtF64(s)
	}

	var links []LongRangeLink
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sSpec float32
			if yNorms[i] != 0 && yNorms[j] != 0 {
				var dot float64
				for d := range y[i] {
					dot += y[i][d] * y[j][d]
				}
				sSpec = float32(dot / (yNorms[i] * yNorms[j]))
			}
			if sSpec > specThresh && w[i][j] < embThresh {
				links = append(links, LongRangeLink{A: noteIDs[i], B: noteIDs[j], Similarity: sSpec})
			}
		}
	}

	sort.Slice(links, func(a, b int) bool {
		if links[a].Similarity != links[b].Similarity {
			return links[a].Similarity > links[b].Similarity
		}
		if links[a].A != links[b].A {
			return links[a].A < links[b].A
		}
		return links[a].B < links[b].B
	})
	return links
}

// Vector mirrors pkg/smg.Vector's Norm method without importing pkg/smg,
// avoiding an import cycle (pkg/smg will import pkg/spectral to run
// builds).
type Vector []float32

func (v Vector) Norm() float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return sqrtF32(sum)
}

func rowNormalize(vecs [][]float64, k int) [][]float64 {
	n := len(vecs)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		copy(row, vecs[i][:k])
		var s float64
		for _, v := range row {
			s += v * v
		}
		norm := sqrtF64(s)
		if norm != 0 {
			for j := range row {
				row[j] /= norm
			}
		}
		out[i] = row
	}
	return out
}

func toFloat64Matrix(m [][]float32) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
