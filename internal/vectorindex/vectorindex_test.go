package vectorindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKNNHit(t *testing.T) {
	idx := New()
	idx.Add("a", []float32{2, 0})
	idx.Add("b", []float32{0, 2})

	results := idx.TopK([]float32{1, 0}, 1)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
}

func TestNormalizedRowsAreUnitNorm(t *testing.T) {
	idx := New()
	idx.Add("a", []float32{3, 4})
	idx.Add("zero", []float32{0, 0})

	norm := func(v []float32) float64 {
		var s float64
		for _, c := range v {
			s += float64(c) * float64(c)
		}
		return math.Sqrt(s)
	}

	require.InDelta(t, 1.0, norm(idx.data[idx.rows["a"]*idx.dim:(idx.rows["a"]+1)*idx.dim]), 1e-6)
	require.InDelta(t, 0.0, norm(idx.data[idx.rows["zero"]*idx.dim:(idx.rows["zero"]+1)*idx.dim]), 1e-6)
}

func TestRemoveSwapsLastRow(t *testing.T) {
	idx := New()
	idx.Add("a", []float32{1, 0})
	idx.Add("b", []float32{0, 1})
	idx.Add("c", []float32{1, 1})

	idx.Remove("a")
	require.Equal(t, 2, idx.Len())
	require.NotPanics(t, func() { idx.Remove("a") })

	results := idx.TopK([]float32{0, 1}, 2)
	ids := map[string]bool{}
	for _, r := range results {
		ids[r.ID] = true
	}
	require.True(t, ids["b"])
}

func TestDimensionMismatchPadsAndTruncates(t *testing.T) {
	idx := New()
	idx.Add("a", []float32{1, 0, 0})
	idx.Add("short", []float32{1}) // zero-padded to dim 3
	idx.Add("long", []float32{1, 1, 1, 1}) // truncated to dim 3

	require.Equal(t, 3, idx.Dim())
	require.Equal(t, 3, idx.Len())
}

func TestEmptyIndexReturnsEmpty(t *testing.T) {
	idx := New()
	require.Empty(t, idx.TopK([]float32{1, 2, 3}, 5))
}
