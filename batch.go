package bli

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BatchResult is the outcome of one manifest pair.
type BatchResult struct {
	Pair   string
	Report *Report // nil when evaluation is skipped or the pair has no lexicon
	Export *NeighborExport
}

// RunBatch evaluates and exports every pair of a manifest in order.
// Neighbours are written to one file per pair. The report sections of the
// run replace the combined report file once every pair has succeeded; the
// first failing pair aborts the run and leaves the report file untouched.
func RunBatch(m *Manifest, logger logrus.FieldLogger) ([]BatchResult, error) {
	logger = loggerOrDiscard(logger)

	dirs := []string{m.path(m.NNsDir)}
	if !m.SkipEval {
		dirs = append(dirs, m.path(m.ReportsDir))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create %q", dir)
		}
	}

	var report bytes.Buffer
	results := make([]BatchResult, 0, len(m.Pairs))
	for _, p := range m.Pairs {
		plog := logger.WithField("pair", p.Name)
		cfg, err := m.Config(p, plog)
		if err != nil {
			return results, errors.Wrapf(err, "pair %q", p.Name)
		}

		res := BatchResult{Pair: p.Name}
		switch {
		case m.SkipEval:
			// neighbours are exported unannotated
			cfg.Lexicon = ""
		case cfg.Lexicon != "":
			res.Report, err = Evaluate(cfg)
			if err != nil {
				return results, errors.Wrapf(err, "evaluate %q", p.Name)
			}
			writeSection(&report, p.Name, res.Report)
		}

		res.Export, err = Neighbors(cfg)
		if err != nil {
			return results, errors.Wrapf(err, "neighbours %q", p.Name)
		}
		if err := res.Export.Save(m.NeighborsPath(p)); err != nil {
			return results, errors.Wrapf(err, "save neighbours %q", p.Name)
		}
		plog.WithField("action", "batch").Infof("wrote %s", m.NeighborsPath(p))

		results = append(results, res)
	}

	if report.Len() > 0 {
		err := writeFileAtomic(m.ReportsPath(), func(w io.Writer) error {
			_, err := report.WriteTo(w)
			return err
		})
		if err != nil {
			return results, errors.Wrap(err, "write report")
		}
		logger.WithField("action", "batch").Infof("wrote %s", m.ReportsPath())
	}
	return results, nil
}

// writeSection appends "<name>:\n<report>\n" to buf.
func writeSection(buf *bytes.Buffer, name string, r *Report) {
	buf.WriteString(name + ":\n")
	r.WriteTo(buf)
	buf.WriteByte('\n')
}
