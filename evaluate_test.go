package bli

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testLexicon3() Lexicon {
	lex := make(Lexicon)
	lex.Add(0, 0)
	lex.Add(1, 1)
	lex.Add(1, 2)
	lex.Add(2, 3)
	return lex
}

func TestAccuracy(t *testing.T) {
	lex := testLexicon3()
	res := &TopKResult{
		Indices: [][]int{{0, 5}, {2, 4}, {1, 0}},
		Scores:  [][]float64{{0.9, 0.1}, {0.8, 0.2}, {0.7, 0.3}},
	}
	queries := []int{0, 1, 2}

	tests := []struct {
		name        string
		denominator float64
		want        float64
	}{
		{"Lexicon size by default", 0, 2.0 / 3.0},
		{"Negative means lexicon size", -1, 2.0 / 3.0},
		{"Explicit denominator", 4, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := Accuracy(res, queries, lex, tt.denominator)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, acc, testEpsilon)
		})
	}
}

func TestAccuracyUnscoredKeysAreMisses(t *testing.T) {
	lex := testLexicon3()
	res := &TopKResult{Indices: [][]int{{0}}, Scores: [][]float64{{1}}}

	acc, err := Accuracy(res, []int{0}, lex, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, acc, testEpsilon)
}

func TestAccuracyErrors(t *testing.T) {
	res := &TopKResult{Indices: [][]int{{0}}, Scores: [][]float64{{1}}}

	_, err := Accuracy(res, []int{0}, Lexicon{}, 0)
	assert.ErrorIs(t, err, ErrEmptyLexicon)

	_, err = Accuracy(res, []int{0, 1}, testLexicon3(), 0)
	assert.Error(t, err)
}

func TestAccuracyMonotoneInK(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("accuracy never decreases as k grows", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			scores := randomMatrix(rng, 6, 10)

			lex := make(Lexicon)
			for q := 0; q < 6; q++ {
				lex.Add(q, rng.Intn(10))
			}
			queries := lex.Keys()

			prev := -1.0
			for k := 1; k <= 10; k++ {
				res, err := TopK(scores, k)
				if err != nil {
					return false
				}
				acc, err := Accuracy(res, queries, lex, 0)
				if err != nil || acc < prev {
					return false
				}
				prev = acc
			}
			return prev == 1
		},
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBuildNeighborMap(t *testing.T) {
	lex := make(Lexicon)
	lex.Add(0, 1)
	lex.Add(2, 3)

	res := &TopKResult{
		Indices: [][]int{{0, 1}, {2, 3}, {0, 2}},
		Scores:  [][]float64{{0.2, 0.9}, {0.5, 0.4}, {0.1, 0.3}},
	}
	queries := []int{0, 1, 2}

	m, err := BuildNeighborMap(res, lex, queries)
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	hit, ok := m.Get(0)
	require.True(t, ok)
	assert.Equal(t, FlagHit, hit.Flag)
	assert.Equal(t, []Neighbor{{Index: 1, Score: 0.9}, {Index: 0, Score: 0.2}}, hit.Neighbors)

	noEntry, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, FlagNoLexiconEntry, noEntry.Flag)

	miss, ok := m.Get(2)
	require.True(t, ok)
	assert.Equal(t, FlagMiss, miss.Flag)

	_, ok = m.Get(7)
	assert.False(t, ok)

	assert.Equal(t, map[Flag]int{FlagHit: 1, FlagMiss: 1, FlagNoLexiconEntry: 1}, m.Counts())

	for i, e := range m.Entries() {
		assert.Equal(t, queries[i], e.Query)
	}
}

func TestBuildNeighborMapWithoutLexicon(t *testing.T) {
	res, err := TopK(mat.NewDense(2, 2, []float64{1, 0, 0, 1}), 1)
	require.NoError(t, err)

	m, err := BuildNeighborMap(res, nil, []int{0, 1})
	require.NoError(t, err)
	for _, e := range m.Entries() {
		assert.Equal(t, FlagNoLexiconEntry, e.Flag)
	}
}

func TestBuildNeighborMapRowMismatch(t *testing.T) {
	_, err := BuildNeighborMap(&TopKResult{}, nil, []int{0})
	assert.Error(t, err)
}

func TestFlagString(t *testing.T) {
	assert.Equal(t, "miss", FlagMiss.String())
	assert.Equal(t, "no_lexicon_entry", FlagNoLexiconEntry.String())
	assert.Equal(t, "hit", FlagHit.String())
	assert.Equal(t, "unknown", Flag(9).String())
	assert.Equal(t, 2, int(FlagHit))
}
