package bli

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// DefaultPrecisionAt are the cut-offs reported by Evaluate.
var DefaultPrecisionAt = []int{1, 3, 5}

// DefaultHeadline is the cut-off repeated as a percentage in reports.
const DefaultHeadline = 3

// Report is the outcome of evaluating one alignment against a lexicon.
type Report struct {
	Ks       []int
	NN       []float64 // plain cosine precision, parallel to Ks
	CSLS     []float64 // CSLS precision, parallel to Ks
	Headline int       // the k repeated as a percentage

	LexiconSize int     // source rows with at least one resolved translation
	Vocabulary  float64 // distinct raw source words in the lexicon file
	Coverage    float64
}

// Precision returns the CSLS precision at k.
func (r *Report) Precision(k int) (float64, bool) {
	for i, rk := range r.Ks {
		if rk == k {
			return r.CSLS[i], true
		}
	}
	return 0, false
}

// NNPrecision returns the plain nearest-neighbour precision at k.
func (r *Report) NNPrecision(k int) (float64, bool) {
	for i, rk := range r.Ks {
		if rk == k {
			return r.NN[i], true
		}
	}
	return 0, false
}

func joinPrecisions(label string, ks []int, values []float64) string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = fmt.Sprintf("%s@%d = %.4f", label, k, values[i])
	}
	return strings.Join(parts, " - ")
}

// Summary returns the NN, CSLS and coverage lines logged after an evaluation.
func (r *Report) Summary() []string {
	return []string{
		joinPrecisions("NN", r.Ks, r.NN),
		joinPrecisions("CSLS", r.Ks, r.CSLS),
		fmt.Sprintf("Coverage = %.4f", r.Coverage),
	}
}

// WriteTo writes the report file body:
//
//	P@1 = 0.xxxx - P@3 = 0.xxxx - P@5 = 0.xxxx
//	P@3 = xx.xx
//	Full P@3 = xx.xx
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(joinPrecisions("P", r.Ks, r.CSLS))
	buf.WriteByte('\n')
	if p, ok := r.Precision(r.Headline); ok {
		fmt.Fprintf(&buf, "P@%d = %.2f\n", r.Headline, p*100)
		fmt.Fprintf(&buf, "Full P@%d = %.2f\n", r.Headline, p*100*r.Coverage)
	}
	return buf.WriteTo(w)
}

// String returns the report file body.
func (r *Report) String() string {
	var sb strings.Builder
	r.WriteTo(&sb)
	return sb.String()
}

// SaveReport writes the report file atomically.
func SaveReport(filename string, r *Report) error {
	return writeFileAtomic(filename, func(w io.Writer) error {
		_, err := r.WriteTo(w)
		return err
	})
}
