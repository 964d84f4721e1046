package bli

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Lexicon maps a source row to the set of target rows accepted as its
// translations.
type Lexicon map[int]map[int]struct{}

// Add records tgt as a translation of src.
func (l Lexicon) Add(src, tgt int) {
	targets, ok := l[src]
	if !ok {
		targets = make(map[int]struct{})
		l[src] = targets
	}
	targets[tgt] = struct{}{}
}

// Contains reports whether tgt is an accepted translation of src.
func (l Lexicon) Contains(src, tgt int) bool {
	_, ok := l[src][tgt]
	return ok
}

// Keys returns the source rows with at least one translation, ascending.
func (l Lexicon) Keys() []int {
	keys := make([]int, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Targets returns the translations of src, ascending.
func (l Lexicon) Targets(src int) []int {
	targets := make([]int, 0, len(l[src]))
	for t := range l[src] {
		targets = append(targets, t)
	}
	sort.Ints(targets)
	return targets
}

// Coverage is the share of the raw source vocabulary that resolved to at
// least one lexicon entry.
func Coverage(lex Lexicon, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(len(lex)) / denominator
}

// ParseLexiconLine splits a lexicon line into its source and target word.
// A tab separated pair takes precedence, so multi-word entries survive;
// otherwise the line must hold exactly two whitespace separated tokens.
func ParseLexiconLine(line string) (string, string, error) {
	trimmed := strings.TrimSpace(line)

	if parts := strings.Split(trimmed, "\t"); len(parts) == 2 {
		src, tgt := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if src != "" && tgt != "" {
			return src, tgt, nil
		}
	}

	if fields := strings.Fields(trimmed); len(fields) == 2 {
		return fields[0], fields[1], nil
	}

	return "", "", errors.Wrapf(ErrMalformedLexiconLine, "%q", line)
}

// LoadLexicon reads a bilingual lexicon and resolves it against both
// vocabularies. The returned denominator is the number of distinct raw source
// words, resolved or not.
func LoadLexicon(filename string, src, tgt *WordIndex, logger logrus.FieldLogger) (Lexicon, float64, error) {
	logger = loggerOrDiscard(logger).WithField("action", "load_lexicon")

	f, err := os.Open(filename)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open lexicon")
	}
	defer f.Close()

	lex, denominator, err := ReadLexicon(f, src, tgt)
	if err != nil {
		return lex, denominator, errors.Wrapf(err, "load lexicon %q", filename)
	}

	logger.WithFields(logrus.Fields{
		"file":     filename,
		"entries":  len(lex),
		"coverage": Coverage(lex, denominator),
	}).Infof("coverage of source vocab: %.4f", Coverage(lex, denominator))
	return lex, denominator, nil
}

// ReadLexicon is LoadLexicon over an arbitrary reader.
func ReadLexicon(r io.Reader, src, tgt *WordIndex) (Lexicon, float64, error) {
	scanner := bufio.NewScanner(transform.NewReader(r, textunicode.UTF8.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lex := make(Lexicon)
	vocab := make(map[string]struct{})
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		wordSrc, wordTgt, err := ParseLexiconLine(line)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "line %d", lineNum)
		}

		vocab[wordSrc] = struct{}{}
		srcRow, okSrc := src.Lookup(wordSrc)
		tgtRow, okTgt := tgt.Lookup(wordTgt)
		if okSrc && okTgt {
			lex.Add(srcRow, tgtRow)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "read lexicon")
	}

	denominator := float64(len(vocab))
	if len(lex) == 0 {
		return lex, denominator, errors.Wrapf(ErrEmptyLexicon, "%d source words, none resolved", len(vocab))
	}
	return lex, denominator, nil
}
