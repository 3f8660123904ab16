package spectral

import (
	"math"

	"github.com/mrorigo/spectral-cortex/pkg/pool"
)

// kmeans runs Lloyd's algorithm on rows (n x k spectral embedding) with the
// given number of clusters, for at most maxIter iterations. Centroids are
// seeded deterministically by taking every n/numClusters-th row in stable
// order (not a random restart), so that two builds on the same graph
// produce identical labels, matching the determinism testable property.
func kmeans(rows [][]float64, numClusters, maxIter int) []int {
	n := len(rows)
	if n == 0 {
		return nil
	}
	if numClusters > n {
		numClusters = n
	}
	if numClusters < 1 {
		numClusters = 1
	}
	dim := len(rows[0])

	centroids := make([][]float64, numClusters)
	stride := n / numClusters
	if stride == 0 {
		stride = 1
	}
	for c := 0; c < numClusters; c++ {
		idx := (c * stride) % n
		centroids[c] = append([]float64(nil), rows[idx]...)
	}

	labels := make([]int, n)
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range rows {
			best, bestDist := 0, math.Inf(1)
			for c, cen := range centroids {
				d := sqDist(row, cen)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		sums := make([][]float64, numClusters)
		counts := pool.GetIntLabels()
		for c := range sums {
			sums[c] = make([]float64, dim)
			counts = append(counts, 0)
		}
		for i, row := range rows {
			c := labels[i]
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c][d] += row[d]
			}
		}
		for c := 0; c < numClusters; c++ {
			if counts[c] == 0 {
				continue // empty cluster: keep previous centroid (handled explicitly, not an error)
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
		pool.PutIntLabels(counts)

		if !changed {
			break
		}
	}
	return labels
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
