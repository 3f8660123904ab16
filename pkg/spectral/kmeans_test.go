package spectral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKmeansSeparatesObviousClusters(t *testing.T) {
	rows := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	labels := kmeans(rows, 2, 100)
	require.Len(t, labels, 6)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[4], labels[5])
	assert.NotEqual(t, labels[0], labels[3])
}

func TestKmeansClampsClusterCountToRowCount(t *testing.T) {
	rows := [][]float64{{0, 0}, {1, 1}}
	labels := kmeans(rows, 5, 100)
	assert.Len(t, labels, 2)
}

func TestKmeansIsDeterministic(t *testing.T) {
	rows := [][]float64{{0, 0}, {0.2, 0}, {5, 5}, {5.2, 5}, {10, 0}, {10.2, 0}}
	l1 := kmeans(rows, 3, 100)
	l2 := kmeans(rows, 3, 100)
	assert.Equal(t, l1, l2)
}
