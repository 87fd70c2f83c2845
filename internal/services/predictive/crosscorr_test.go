package predictive

import (
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossCorrelateMatrixAndRedundancy(t *testing.T) {
	a := floats(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	b := floats(3, 5, 7, 9, 11, 13, 15, 17, 19, 21)
	c := floats(1, -1, 1, -1, 1, -1, 1, -1, 1, -1)
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tbl := mustTable(makeSeries("X", closes, map[string][]null.Float{"a": a, "b": b, "c": c}))

	m, pairs := CrossCorrelate(tbl, []string{"a", "b", "c"}, DefaultRedundancyThreshold)

	require.Equal(t, []string{"a", "b", "c"}, m.Names)
	for i := range m.Names {
		require.True(t, m.At(i, i).Valid)
		assert.Equal(t, 1.0, m.At(i, i).Float64)
		for j := range m.Names {
			assert.Equal(t, m.At(i, j), m.At(j, i), "symmetry %d,%d", i, j)
		}
	}
	assert.InDelta(t, 1, m.At(0, 1).Float64, 1e-12)
	assert.InDelta(t, -0.1741, m.At(0, 2).Float64, 1e-4)

	require.Len(t, pairs, 1)
	assert.Equal(t, "a", pairs[0].A)
	assert.Equal(t, "b", pairs[0].B)
	assert.InDelta(t, 1, pairs[0].Correlation, 1e-12)
}

func TestCrossCorrelatePairwiseCompleteAndDegenerate(t *testing.T) {
	a := floats(1, 2, 3, 4, 5, 6)
	b := []null.Float{null.FloatFrom(2), {}, null.FloatFrom(6), null.FloatFrom(8), {}, null.FloatFrom(12)}
	flat := floats(5, 5, 5, 5, 5, 5)
	closes := []float64{1, 2, 3, 4, 5, 6}
	tbl := mustTable(makeSeries("X", closes, map[string][]null.Float{"a": a, "b": b, "flat": flat}))

	m, pairs := CrossCorrelate(tbl, []string{"a", "b", "flat", "missing"}, 0.7)

	assert.InDelta(t, 1, m.At(0, 1).Float64, 1e-12, "uses the rows where both are present")
	assert.False(t, m.At(2, 2).Valid, "constant column has no defined self-correlation")
	assert.False(t, m.At(0, 2).Valid)
	assert.False(t, m.At(3, 3).Valid)
	assert.False(t, m.At(1, 3).Valid)
	require.Len(t, pairs, 1)
	assert.Equal(t, "b", pairs[0].B)
}

func TestCrossCorrelateEmpty(t *testing.T) {
	tbl := mustTable(makeSeries("X", []float64{1, 2}, nil))
	m, pairs := CrossCorrelate(tbl, nil, 0.7)
	assert.Empty(t, m.Names)
	assert.Empty(t, m.Values)
	assert.Empty(t, pairs)
}
