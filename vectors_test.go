package bli

import (
	"math"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestReadVectors(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		opts      LoadOptions
		wantWords []string
		wantDim   int
	}{
		{
			name:      "Basic file",
			input:     "3 2\nthe 3 4\ncat 0 2\ndog 1 1\n",
			opts:      DefaultLoadOptions(),
			wantWords: []string{"the", "cat", "dog"},
			wantDim:   2,
		},
		{
			name:      "MaxLoad stops early",
			input:     "3 2\nthe 3 4\ncat 0 2\ndog 1 1\n",
			opts:      LoadOptions{MaxLoad: 2, Normalize: true},
			wantWords: []string{"the", "cat"},
			wantDim:   2,
		},
		{
			name:      "Fewer lines than the header announces",
			input:     "5 2\nthe 3 4\ncat 0 2\n",
			opts:      DefaultLoadOptions(),
			wantWords: []string{"the", "cat"},
			wantDim:   2,
		},
		{
			name:      "Trailing whitespace and CRLF",
			input:     "2 3\r\nthe 1 2 3 \r\ncat 4 5 6\r\n",
			opts:      DefaultLoadOptions(),
			wantWords: []string{"the", "cat"},
			wantDim:   3,
		},
		{
			name:      "Duplicate words keep their rows",
			input:     "3 1\nthe 1\nthe 2\ncat 3\n",
			opts:      DefaultLoadOptions(),
			wantWords: []string{"the", "the", "cat"},
			wantDim:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := ReadVectors(strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWords, emb.Words)
			assert.Equal(t, len(tt.wantWords), emb.Len())
			assert.Equal(t, tt.wantDim, emb.Dim())

			r, _ := emb.Vectors.Dims()
			assert.Equal(t, len(tt.wantWords), r)
		})
	}
}

func TestReadVectorsNormalizes(t *testing.T) {
	emb, err := ReadVectors(strings.NewReader("3 2\nthe 3 4\nzero 0 0\ncat 0 2\n"), DefaultLoadOptions())
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.6, 0.8}, emb.Vectors.RawRowView(0), testEpsilon)
	assert.Equal(t, []float64{0, 0}, emb.Vectors.RawRowView(1), "zero rows must stay zero")
	assert.InDeltaSlice(t, []float64{0, 1}, emb.Vectors.RawRowView(2), testEpsilon)

	for i := 0; i < emb.Len(); i++ {
		for _, v := range emb.Vectors.RawRowView(i) {
			assert.False(t, math.IsNaN(v), "row %d has NaN", i)
		}
	}
}

func TestReadVectorsWithoutNormalize(t *testing.T) {
	emb, err := ReadVectors(strings.NewReader("1 2\nthe 3 4\n"), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, emb.Vectors.RawRowView(0))
}

func TestReadVectorsCenter(t *testing.T) {
	input := "3 2\na 1 2\nb 3 0\nc 2 7\n"
	emb, err := ReadVectors(strings.NewReader(input), LoadOptions{Normalize: true, Center: true})
	require.NoError(t, err)

	for i := 0; i < emb.Len(); i++ {
		norm := floats.Norm(emb.Vectors.RawRowView(i), 2)
		assert.InDelta(t, 1.0, norm, testEpsilon, "row %d", i)
	}
}

func TestCenter(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 0, 2, 7})
	Center(m)

	for j := 0; j < 2; j++ {
		assert.InDelta(t, 0.0, floats.Sum(mat.Col(nil, j, m)), testEpsilon, "column %d", j)
	}
}

func TestUnitNorm(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 0, -3, 4})
	UnitNorm(m)
	assert.Equal(t, []float64{0, 0}, m.RawRowView(0))
	assert.InDeltaSlice(t, []float64{-0.6, 0.8}, m.RawRowView(1), testEpsilon)
}

func TestReadVectorsInvalidUTF8(t *testing.T) {
	emb, err := ReadVectors(strings.NewReader("1 1\ncaf\xe9 1\n"), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, "caf\uFFFD", emb.Words[0])
}

func TestReadVectorsMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Empty input", ""},
		{"Header with one field", "3\n"},
		{"Header with bad count", "x 2\n"},
		{"Header with zero dimension", "1 0\n"},
		{"No data lines", "2 3\n"},
		{"Too few values", "1 3\nthe 1 2\n"},
		{"Too many values", "1 2\nthe 1 2 3\n"},
		{"Value is not a number", "1 2\nthe 1 abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVectors(strings.NewReader(tt.input), DefaultLoadOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedVectorFile)
		})
	}
}

func TestLoadVectorsDeterministic(t *testing.T) {
	filename := createTempFile(t, "3 3\nthe 1 2 3\ncat 4 5 6\ndog 7 8 9\n")

	first, err := LoadVectors(filename, DefaultLoadOptions())
	require.NoError(t, err)
	second, err := LoadVectors(filename, DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Words, second.Words)
	assert.True(t, mat.Equal(first.Vectors, second.Vectors))
}

func TestLoadVectorsLogs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	filename := createTempFile(t, sourceVectors)

	opts := DefaultLoadOptions()
	opts.Logger = logger
	_, err := LoadVectors(filename, opts)
	require.NoError(t, err)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "loading vectors", entries[0].Message)
	assert.Equal(t, "2 word vectors loaded", entries[1].Message)
	assert.Equal(t, logrus.InfoLevel, entries[1].Level)
	assert.Equal(t, "load_vectors", entries[1].Data["action"])
}

func TestLoadVectorsMissingFile(t *testing.T) {
	_, err := LoadVectors("/nonexistent/vectors.txt", DefaultLoadOptions())
	assert.Error(t, err)
}

func TestLoadTransform(t *testing.T) {
	filename := createTempFile(t, "0 1\n1 0\n")

	tr, err := LoadTransform(filename, 2)
	require.NoError(t, err)

	emb, err := ReadVectors(strings.NewReader("1 2\nthe 3 4\n"), LoadOptions{})
	require.NoError(t, err)
	require.NoError(t, emb.ApplyTransform(tr))
	assert.Equal(t, []float64{4, 3}, emb.Vectors.RawRowView(0))
}

func TestLoadTransformErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		rows    int
	}{
		{"Too few rows", "1 0\n", 2},
		{"Too many rows", "1 0\n0 1\n1 1\n", 2},
		{"Ragged rows", "1 0\n0\n", 2},
		{"Bad value", "1 x\n0 1\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTransform(createTempFile(t, tt.content), tt.rows)
			assert.Error(t, err)
		})
	}
}

func TestApplyTransformDimensionMismatch(t *testing.T) {
	emb, err := ReadVectors(strings.NewReader(sourceVectors), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Error(t, emb.ApplyTransform(mat.NewDense(3, 3, nil)))
}
