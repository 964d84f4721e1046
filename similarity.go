package bli

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// DefaultKLocal is the neighbourhood size used for the CSLS density term.
	DefaultKLocal = 10
	// DefaultBatchSize is the number of rows scored per batch.
	DefaultBatchSize = 1024

	// normEpsilon is added to every norm before dividing. The loader uses the
	// zero-clamping UnitNorm instead.
	normEpsilon = 1e-8
)

// CSLSOptions tunes the CSLS engine. Zero values select the defaults.
type CSLSOptions struct {
	KLocal    int // neighbours averaged into the density of a target row
	BatchSize int // target rows per density batch; <= 0 sizes batches from free memory
	Workers   int // density batches computed concurrently; <= 0 uses NumCPU
}

func (o CSLSOptions) withDefaults(sourceRows int) CSLSOptions {
	if o.KLocal <= 0 {
		o.KLocal = DefaultKLocal
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = AutoBatchSize(sourceRows, o.Workers)
	}
	return o
}

// normalizedRows copies the selected rows of m (all rows when rows is nil)
// and divides each by its norm plus normEpsilon.
func normalizedRows(m *mat.Dense, rows []int) *mat.Dense {
	r, c := m.Dims()
	if rows == nil {
		out := mat.DenseCopyOf(m)
		for i := 0; i < r; i++ {
			normalizeEps(out.RawRowView(i))
		}
		return out
	}

	out := mat.NewDense(len(rows), c, nil)
	for i, src := range rows {
		dst := out.RawRowView(i)
		copy(dst, m.RawRowView(src))
		normalizeEps(dst)
	}
	return out
}

func normalizeEps(row []float64) {
	norm := floats.Norm(row, 2) + normEpsilon
	for j := range row {
		row[j] /= norm
	}
}

func checkQueries(queries []int, rows int) error {
	if len(queries) == 0 {
		return errors.New("no query rows")
	}
	for _, q := range queries {
		if q < 0 || q >= rows {
			return errors.Errorf("query row %d out of range [0, %d)", q, rows)
		}
	}
	return nil
}

func checkDims(src, tgt *mat.Dense) error {
	_, sc := src.Dims()
	_, tc := tgt.Dims()
	if sc != tc {
		return errors.Errorf("source dimension %d does not match target dimension %d", sc, tc)
	}
	return nil
}

// CosineScorer holds normalised copies of the target vectors so that query
// batches only normalise their own rows.
type CosineScorer struct {
	src *mat.Dense
	tgt *mat.Dense
}

// NewCosineScorer normalises tgt once. src is copied row by row per batch.
func NewCosineScorer(src, tgt *mat.Dense) (*CosineScorer, error) {
	if err := checkDims(src, tgt); err != nil {
		return nil, err
	}
	return &CosineScorer{src: src, tgt: normalizedRows(tgt, nil)}, nil
}

// Scores returns the plain cosine similarity of the selected source rows
// against every target row: one row per query, one column per target.
func (s *CosineScorer) Scores(queries []int) (*mat.Dense, error) {
	r, _ := s.src.Dims()
	if err := checkQueries(queries, r); err != nil {
		return nil, err
	}

	q := normalizedRows(s.src, queries)
	tr, _ := s.tgt.Dims()
	scores := mat.NewDense(len(queries), tr, nil)
	scores.Mul(q, s.tgt.T())
	return scores, nil
}

// CosineScores scores the selected source rows against every target row.
func CosineScores(src *mat.Dense, queries []int, tgt *mat.Dense) (*mat.Dense, error) {
	scorer, err := NewCosineScorer(src, tgt)
	if err != nil {
		return nil, err
	}
	return scorer.Scores(queries)
}

// CSLSScorer holds normalised copies of both vector sets and the per-target
// density term, so several query subsets can be scored without recomputing it.
type CSLSScorer struct {
	src     *mat.Dense
	tgt     *mat.Dense
	density []float64
}

// NewCSLSScorer normalises src and tgt and computes the density of every
// target row: the mean similarity to its KLocal nearest source rows.
func NewCSLSScorer(src, tgt *mat.Dense, opts CSLSOptions) (*CSLSScorer, error) {
	if err := checkDims(src, tgt); err != nil {
		return nil, err
	}
	sr, _ := src.Dims()
	opts = opts.withDefaults(sr)

	s := &CSLSScorer{
		src: normalizedRows(src, nil),
		tgt: normalizedRows(tgt, nil),
	}

	density, err := LocalDensity(s.tgt, s.src, opts.KLocal, opts.BatchSize, opts.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "local density")
	}
	s.density = density
	return s, nil
}

// Density returns the density term of every target row.
func (s *CSLSScorer) Density() []float64 {
	return s.density
}

// Scores returns 2·cos(query, target) − density(target) for the selected
// source rows. Only the target-side penalty is applied.
func (s *CSLSScorer) Scores(queries []int) (*mat.Dense, error) {
	r, _ := s.src.Dims()
	if err := checkQueries(queries, r); err != nil {
		return nil, err
	}

	q := mat.NewDense(len(queries), s.src.RawMatrix().Cols, nil)
	for i, src := range queries {
		copy(q.RawRowView(i), s.src.RawRowView(src))
	}

	tr, _ := s.tgt.Dims()
	scores := mat.NewDense(len(queries), tr, nil)
	scores.Mul(q, s.tgt.T())
	scores.Scale(2, scores)
	for i := range queries {
		floats.Sub(scores.RawRowView(i), s.density)
	}
	return scores, nil
}

// CSLS scores the selected source rows against every target row.
func CSLS(src *mat.Dense, queries []int, tgt *mat.Dense, opts CSLSOptions) (*mat.Dense, error) {
	scorer, err := NewCSLSScorer(src, tgt, opts)
	if err != nil {
		return nil, err
	}
	return scorer.Scores(queries)
}

// LocalDensity returns, for every row of tgt, the mean of its k largest dot
// products with the rows of src. Target rows are processed in batches of
// batchSize, up to workers batches at a time; every batch owns a disjoint
// range of the output, so the result does not depend on either setting.
// Both matrices are expected to be normalised already.
func LocalDensity(tgt, src *mat.Dense, k, batchSize, workers int) ([]float64, error) {
	if batchSize < 1 {
		return nil, errors.Errorf("batch size must be at least 1, got %d", batchSize)
	}
	if err := checkDims(src, tgt); err != nil {
		return nil, err
	}

	tr, _ := tgt.Dims()
	sr, _ := src.Dims()
	k = min(max(k, 1), sr)

	density := make([]float64, tr)
	g := new(errgroup.Group)
	g.SetLimit(max(workers, 1))
	for start := 0; start < tr; start += batchSize {
		start, end := start, min(start+batchSize, tr)
		g.Go(func() error {
			block := mat.NewDense(end-start, sr, nil)
			for i := start; i < end; i++ {
				row := block.RawRowView(i - start)
				t := tgt.RawRowView(i)
				for j := range row {
					row[j] = floats.Dot(t, src.RawRowView(j))
				}
				density[i] = meanTop(row, k)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return density, nil
}
