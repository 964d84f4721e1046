package bli

import (
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTopK(t *testing.T) {
	m := mat.NewDense(2, 4, []float64{
		0.1, 0.9, 0.5, 0.3,
		0.7, 0.2, 0.8, 0.0,
	})

	res, err := TopK(m, 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())

	assert.ElementsMatch(t, []int{1, 2}, res.Indices[0])
	assert.ElementsMatch(t, []float64{0.9, 0.5}, res.Scores[0])
	assert.ElementsMatch(t, []int{0, 2}, res.Indices[1])
}

func TestTopKClampsK(t *testing.T) {
	m := mat.NewDense(1, 3, []float64{3, 1, 2})

	res, err := TopK(m, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, res.Indices[0])
}

func TestTopKInvalidK(t *testing.T) {
	_, err := TopK(mat.NewDense(1, 1, nil), 0)
	assert.Error(t, err)
}

func TestTopKScoresMatchIndices(t *testing.T) {
	m := mat.NewDense(1, 5, []float64{5, 4, 3, 2, 1})

	res, err := TopK(m, 3)
	require.NoError(t, err)
	for i, idx := range res.Indices[0] {
		assert.Equal(t, m.At(0, idx), res.Scores[0][i])
	}
}

func TestMeanTop(t *testing.T) {
	assert.InDelta(t, 4.0, meanTop([]float64{1, 5, 3}, 2), testEpsilon)
	assert.InDelta(t, 3.0, meanTop([]float64{1, 5, 3}, 3), testEpsilon)
}

func TestTopKSelectsLargest(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("the k selected scores are the k largest of the row", prop.ForAll(
		func(row []float64, k int) bool {
			m := mat.NewDense(1, len(row), append([]float64(nil), row...))
			res, err := TopK(m, k)
			if err != nil {
				return false
			}

			want := append([]float64(nil), row...)
			sort.Float64s(want)
			want = want[len(want)-min(k, len(row)):]

			got := append([]float64(nil), res.Scores[0]...)
			sort.Float64s(got)
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}

			seen := make(map[int]bool)
			for _, idx := range res.Indices[0] {
				if idx < 0 || idx >= len(row) || seen[idx] {
					return false
				}
				seen[idx] = true
			}
			return true
		},
		gen.SliceOfN(20, gen.Float64Range(-1, 1)),
		gen.IntRange(1, 25),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
