package bli

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// DefaultNeighbors is the number of neighbours exported per query.
const DefaultNeighbors = 3

// Config describes one source/target pair. Zero values select defaults.
type Config struct {
	SourceVectors string
	TargetVectors string
	Lexicon       string   // required by Evaluate, optional for Neighbors
	QueryWords    []string // restricts Neighbors to these source words; nil means every word

	SourceTransform string // optional alignment matrix applied to the source vectors
	TargetTransform string // optional alignment matrix applied to the target vectors

	MaxLoad          int // <= 0 uses DefaultMaxLoad; use LoadAll to read every row
	LoadAll          bool
	Center           bool
	DisableNormalize bool

	PrecisionAt []int // Evaluate cut-offs; nil uses DefaultPrecisionAt
	Headline    int   // Evaluate percentage cut-off; 0 uses DefaultHeadline
	K           int   // Neighbors per query; 0 uses DefaultNeighbors

	KLocal    int
	BatchSize int // query and density batch size; <= 0 sizes from free memory
	Workers   int

	Logger logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	if c.MaxLoad <= 0 {
		c.MaxLoad = DefaultMaxLoad
	}
	if c.LoadAll {
		c.MaxLoad = 0
	}
	if len(c.PrecisionAt) == 0 {
		c.PrecisionAt = DefaultPrecisionAt
	}
	if c.Headline <= 0 {
		c.Headline = DefaultHeadline
	}
	if c.K <= 0 {
		c.K = DefaultNeighbors
	}
	if c.KLocal <= 0 {
		c.KLocal = DefaultKLocal
	}
	c.Logger = loggerOrDiscard(c.Logger).WithField("run_id", uuid.New().String())
	return c
}

func (c Config) loadOptions() LoadOptions {
	return LoadOptions{
		MaxLoad:   c.MaxLoad,
		Normalize: !c.DisableNormalize,
		Center:    c.Center,
		Logger:    c.Logger,
	}
}

func (c Config) cslsOptions() CSLSOptions {
	return CSLSOptions{KLocal: c.KLocal, BatchSize: c.BatchSize, Workers: c.Workers}
}

type pair struct {
	src, tgt       *Embeddings
	srcIdx, tgtIdx *WordIndex
}

// loadPair loads the target vectors first, then the source vectors, and
// applies the optional alignment matrices.
func loadPair(cfg Config) (*pair, error) {
	tgt, err := LoadVectors(cfg.TargetVectors, cfg.loadOptions())
	if err != nil {
		return nil, err
	}
	src, err := LoadVectors(cfg.SourceVectors, cfg.loadOptions())
	if err != nil {
		return nil, err
	}

	if cfg.TargetTransform != "" {
		if err := applyTransformFile(tgt, cfg.TargetTransform); err != nil {
			return nil, errors.Wrap(err, "target transform")
		}
	}
	if cfg.SourceTransform != "" {
		if err := applyTransformFile(src, cfg.SourceTransform); err != nil {
			return nil, errors.Wrap(err, "source transform")
		}
	}
	if src.Dim() != tgt.Dim() {
		return nil, errors.Errorf("source dimension %d does not match target dimension %d", src.Dim(), tgt.Dim())
	}

	return &pair{
		src:    src,
		tgt:    tgt,
		srcIdx: NewWordIndex(src.Words),
		tgtIdx: NewWordIndex(tgt.Words),
	}, nil
}

func applyTransformFile(e *Embeddings, filename string) error {
	t, err := LoadTransform(filename, e.Dim())
	if err != nil {
		return err
	}
	return e.ApplyTransform(t)
}

// topKBatched scores queries in batches of batchSize so that at most one
// batch of the dense score matrix is alive at a time.
func topKBatched(queries []int, k, batchSize int, score func([]int) (*mat.Dense, error)) (*TopKResult, error) {
	res := &TopKResult{}
	for start := 0; start < len(queries); start += batchSize {
		end := min(start+batchSize, len(queries))
		scores, err := score(queries[start:end])
		if err != nil {
			return nil, err
		}
		part, err := TopK(scores, k)
		if err != nil {
			return nil, err
		}
		res.append(part)
	}
	return res, nil
}

// Evaluate measures how well nearest-neighbour retrieval between the source
// and target vectors recovers the lexicon, with plain cosine and with CSLS.
func Evaluate(cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if cfg.Lexicon == "" {
		return nil, errors.New("evaluation needs a lexicon")
	}
	started := time.Now()

	p, err := loadPair(cfg)
	if err != nil {
		return nil, err
	}
	lex, denominator, err := LoadLexicon(cfg.Lexicon, p.srcIdx, p.tgtIdx, logger)
	if err != nil {
		return nil, err
	}
	queries := lex.Keys()

	maxK := 0
	for _, k := range cfg.PrecisionAt {
		maxK = max(maxK, k)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = AutoBatchSize(p.tgt.Len(), cfg.Workers)
	}

	cosine, err := NewCosineScorer(p.src.Vectors, p.tgt.Vectors)
	if err != nil {
		return nil, errors.Wrap(err, "nearest neighbours")
	}
	nnTop, err := topKBatched(queries, maxK, batchSize, cosine.Scores)
	if err != nil {
		return nil, errors.Wrap(err, "nearest neighbours")
	}

	logger.WithField("action", "csls").Debug("computing target densities")
	scorer, err := NewCSLSScorer(p.src.Vectors, p.tgt.Vectors, cfg.cslsOptions())
	if err != nil {
		return nil, errors.Wrap(err, "csls")
	}
	cslsTop, err := topKBatched(queries, maxK, batchSize, scorer.Scores)
	if err != nil {
		return nil, errors.Wrap(err, "csls")
	}

	report := &Report{
		Ks:          cfg.PrecisionAt,
		Headline:    cfg.Headline,
		LexiconSize: len(lex),
		Vocabulary:  denominator,
		Coverage:    Coverage(lex, denominator),
	}
	for _, k := range cfg.PrecisionAt {
		nn, err := Accuracy(truncate(nnTop, k), queries, lex, float64(len(lex)))
		if err != nil {
			return nil, err
		}
		csls, err := Accuracy(truncate(cslsTop, k), queries, lex, float64(len(lex)))
		if err != nil {
			return nil, err
		}
		report.NN = append(report.NN, nn)
		report.CSLS = append(report.CSLS, csls)
	}

	for _, line := range report.Summary() {
		logger.WithField("action", "evaluate").Info(line)
	}
	logger.WithField("action", "evaluate").WithField("took", time.Since(started)).Debug("evaluation done")
	return report, nil
}

// truncate keeps the k best entries of every row of a top-K result with K >= k.
func truncate(res *TopKResult, k int) *TopKResult {
	out := &TopKResult{
		Indices: make([][]int, res.Len()),
		Scores:  make([][]float64, res.Len()),
	}
	for i := range res.Indices {
		idx, _ := selectTop(res.Scores[i], min(k, len(res.Scores[i])))
		out.Indices[i] = make([]int, len(idx))
		out.Scores[i] = make([]float64, len(idx))
		for j, pos := range idx {
			out.Indices[i][j] = res.Indices[i][pos]
			out.Scores[i][j] = res.Scores[i][pos]
		}
	}
	return out
}

// NeighborExport is a neighbour map together with the vocabularies needed
// to write it out.
type NeighborExport struct {
	Map            *NeighborMap
	SourceWords    []string
	TargetWords    []string
	DroppedQueries int     // restricted query words missing from the source vocabulary
	Coverage       float64 // lexicon coverage, 0 without a lexicon
}

// WriteTo writes the export in the neighbour file format.
func (e *NeighborExport) WriteTo(w io.Writer) error {
	return WriteNeighbors(w, e.Map, e.SourceWords, e.TargetWords)
}

// Save writes the export atomically.
func (e *NeighborExport) Save(filename string) error {
	return SaveNeighbors(filename, e.Map, e.SourceWords, e.TargetWords)
}

// Neighbors ranks the CSLS nearest target words of every source query and
// annotates them with the lexicon when one is configured.
func Neighbors(cfg Config) (*NeighborExport, error) {
	cfg = cfg.withDefaults()
	logger := cfg.Logger

	p, err := loadPair(cfg)
	if err != nil {
		return nil, err
	}

	export := &NeighborExport{SourceWords: p.src.Words, TargetWords: p.tgt.Words}

	var lex Lexicon
	if cfg.Lexicon != "" {
		var denominator float64
		lex, denominator, err = LoadLexicon(cfg.Lexicon, p.srcIdx, p.tgtIdx, logger)
		if err != nil {
			return nil, err
		}
		export.Coverage = Coverage(lex, denominator)
	}

	queries := p.srcIdx.Rows()
	if cfg.QueryWords != nil {
		queries, export.DroppedQueries = p.srcIdx.Resolve(cfg.QueryWords)
		if export.DroppedQueries > 0 {
			logger.WithField("action", "resolve_queries").
				WithField("dropped", export.DroppedQueries).
				Warnf("%d query words are not in the source vocabulary", export.DroppedQueries)
		}
	}

	if len(queries) == 0 {
		export.Map, _ = BuildNeighborMap(&TopKResult{}, lex, nil)
		return export, nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = AutoBatchSize(p.tgt.Len(), cfg.Workers)
	}
	scorer, err := NewCSLSScorer(p.src.Vectors, p.tgt.Vectors, cfg.cslsOptions())
	if err != nil {
		return nil, errors.Wrap(err, "csls")
	}
	top, err := topKBatched(queries, cfg.K, batchSize, scorer.Scores)
	if err != nil {
		return nil, errors.Wrap(err, "csls")
	}

	export.Map, err = BuildNeighborMap(top, lex, queries)
	if err != nil {
		return nil, err
	}

	if words := commaWords(export.Map, p.tgt.Words); len(words) > 0 {
		logger.WithField("action", "neighbors").
			WithField("words", words).
			Warnf("%d neighbour words contain a comma and will not split back cleanly", len(words))
	}

	counts := export.Map.Counts()
	logger.WithFields(logrus.Fields{
		"action":           "neighbors",
		"queries":          export.Map.Len(),
		"hit":              counts[FlagHit],
		"miss":             counts[FlagMiss],
		"no_lexicon_entry": counts[FlagNoLexiconEntry],
	}).Info("computed nearest neighbours")
	return export, nil
}
