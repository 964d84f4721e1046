// Package bli evaluates cross-lingual word embedding alignments.
// It loads aligned source and target vectors, indexes a bilingual lexicon,
// scores translations with CSLS and measures precision@k against the lexicon.
// It also exports ranked neighbour lists for lexicon induction.
package bli

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultMaxLoad is the number of vectors read from a file unless told otherwise.
	DefaultMaxLoad = 200000

	maxLineSize = 64 * 1024 * 1024
)

// Embeddings is a loaded vector set. Row i of Vectors belongs to Words[i].
// Words keeps file order, duplicates included.
type Embeddings struct {
	Words   []string
	Vectors *mat.Dense
}

// Len returns the number of loaded rows.
func (e *Embeddings) Len() int {
	return len(e.Words)
}

// Dim returns the vector dimension.
func (e *Embeddings) Dim() int {
	_, c := e.Vectors.Dims()
	return c
}

// LoadOptions controls how a vector file is read.
type LoadOptions struct {
	MaxLoad   int  // <= 0 reads every row the header announces
	Normalize bool // unit-normalise rows after parsing
	Center    bool // subtract the column mean, then unit-normalise again
	Logger    logrus.FieldLogger
}

// DefaultLoadOptions returns the options used by the evaluation tools.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		MaxLoad:   DefaultMaxLoad,
		Normalize: true,
	}
}

// LoadVectors reads a "<count> <dim>" headed text vector file.
func LoadVectors(filename string, opts LoadOptions) (*Embeddings, error) {
	logger := loggerOrDiscard(opts.Logger).WithField("action", "load_vectors")
	logger.WithField("file", filename).Info("loading vectors")

	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open vector file")
	}
	defer f.Close()

	emb, err := ReadVectors(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "load vectors %q", filename)
	}

	logger.WithField("file", filename).Infof("%d word vectors loaded", emb.Len())
	return emb, nil
}

// ReadVectors parses vectors from r. Invalid UTF-8 is replaced, never fatal.
func ReadVectors(r io.Reader, opts LoadOptions) (*Embeddings, error) {
	scanner := bufio.NewScanner(transform.NewReader(r, textunicode.UTF8.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "read header")
		}
		return nil, errors.Wrap(ErrMalformedVectorFile, "missing header")
	}

	count, dim, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}
	if opts.MaxLoad > 0 && opts.MaxLoad < count {
		count = opts.MaxLoad
	}

	// the header is a hint, so cap the up-front allocation
	prealloc := min(count, 1<<16)
	words := make([]string, 0, prealloc)
	data := make([]float64, 0, prealloc*dim)
	lineNum := 1
	for len(words) < count && scanner.Scan() {
		lineNum++
		tokens := strings.Split(strings.TrimRightFunc(scanner.Text(), unicode.IsSpace), " ")
		if len(tokens) != dim+1 {
			return nil, errors.Wrapf(ErrMalformedVectorFile,
				"line %d: expected %d tokens, got %d", lineNum, dim+1, len(tokens))
		}

		for _, tok := range tokens[1:] {
			val, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformedVectorFile, "line %d: %v", lineNum, err)
			}
			data = append(data, val)
		}
		words = append(words, tokens[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read line %d", lineNum+1)
	}

	if len(words) == 0 {
		return nil, errors.Wrap(ErrMalformedVectorFile, "no word vectors")
	}

	vectors := mat.NewDense(len(words), dim, data)
	if opts.Normalize {
		UnitNorm(vectors)
	}
	if opts.Center {
		Center(vectors)
		UnitNorm(vectors)
	}

	return &Embeddings{Words: words, Vectors: vectors}, nil
}

func parseHeader(line string) (int, int, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return 0, 0, errors.Wrapf(ErrMalformedVectorFile, "header %q: expected \"<count> <dim>\"", line)
	}

	count, err := strconv.Atoi(parts[0])
	if err != nil || count < 0 {
		return 0, 0, errors.Wrapf(ErrMalformedVectorFile, "header %q: invalid count", line)
	}
	dim, err := strconv.Atoi(parts[1])
	if err != nil || dim <= 0 {
		return 0, 0, errors.Wrapf(ErrMalformedVectorFile, "header %q: invalid dimension", line)
	}

	return count, dim, nil
}

// UnitNorm scales every row of m to unit length in place.
// Zero rows stay zero: their norm is treated as 1.
func UnitNorm(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		norm := floats.Norm(row, 2)
		if norm == 0 {
			continue
		}
		for j := range row {
			row[j] /= norm
		}
	}
}

// Center subtracts the column-wise mean from every row of m in place.
func Center(m *mat.Dense) {
	r, c := m.Dims()
	mean := make([]float64, c)
	for i := 0; i < r; i++ {
		floats.Add(mean, m.RawRowView(i))
	}
	floats.Scale(1/float64(r), mean)

	for i := 0; i < r; i++ {
		floats.Sub(m.RawRowView(i), mean)
	}
}

// LoadTransform reads an alignment matrix: one row per line, space separated.
// The matrix must have rows rows; the column count comes from the first line.
func LoadTransform(filename string, rows int) (*mat.Dense, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open transform")
	}
	defer f.Close()

	scanner := bufio.NewScanner(transform.NewReader(f, textunicode.UTF8.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	var data []float64
	cols, lineNum := 0, 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		lineNum++
		if lineNum > rows {
			return nil, errors.Errorf("transform %q: more than %d rows", filename, rows)
		}
		if cols == 0 {
			cols = len(fields)
			data = make([]float64, 0, rows*cols)
		}
		if len(fields) != cols {
			return nil, errors.Errorf("transform %q: row %d has %d columns, want %d",
				filename, lineNum, len(fields), cols)
		}
		for _, tok := range fields {
			val, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "transform %q: row %d", filename, lineNum)
			}
			data = append(data, val)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read transform %q", filename)
	}
	if lineNum != rows {
		return nil, errors.Errorf("transform %q: got %d rows, want %d", filename, lineNum, rows)
	}

	return mat.NewDense(rows, cols, data), nil
}

// ApplyTransform replaces e.Vectors with e.Vectors · t.
func (e *Embeddings) ApplyTransform(t mat.Matrix) error {
	tr, tc := t.Dims()
	if tr != e.Dim() {
		return errors.Errorf("transform has %d rows, vectors have dimension %d", tr, e.Dim())
	}

	out := mat.NewDense(e.Len(), tc, nil)
	out.Mul(e.Vectors, t)
	e.Vectors = out
	return nil
}
