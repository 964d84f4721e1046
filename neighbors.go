package bli

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	textunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// WriteNeighbors writes one tab separated line per entry:
// source word, comma joined target words, comma joined scores rounded to
// four decimals, and the integer flag.
func WriteNeighbors(w io.Writer, m *NeighborMap, srcWords, tgtWords []string) error {
	bw := bufio.NewWriter(w)
	for _, e := range m.Entries() {
		if e.Query >= len(srcWords) {
			return errors.Errorf("query row %d has no source word", e.Query)
		}

		targets := make([]string, len(e.Neighbors))
		scores := make([]string, len(e.Neighbors))
		for i, n := range e.Neighbors {
			if n.Index >= len(tgtWords) {
				return errors.Errorf("neighbour row %d has no target word", n.Index)
			}
			targets[i] = tgtWords[n.Index]
			scores[i] = formatScore(n.Score)
		}

		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%d\n", srcWords[e.Query],
			strings.Join(targets, ","), strings.Join(scores, ","), int(e.Flag)); err != nil {
			return errors.Wrap(err, "write neighbours")
		}
	}
	return bw.Flush()
}

// SaveNeighbors writes the neighbour file atomically.
func SaveNeighbors(filename string, m *NeighborMap, srcWords, tgtWords []string) error {
	return writeFileAtomic(filename, func(w io.Writer) error {
		return WriteNeighbors(w, m, srcWords, tgtWords)
	})
}

// commaWords returns the distinct neighbour words of m that contain the
// target separator, in first-seen order.
func commaWords(m *NeighborMap, tgtWords []string) []string {
	seen := make(map[int]struct{})
	var words []string
	for _, e := range m.Entries() {
		for _, n := range e.Neighbors {
			if _, ok := seen[n.Index]; ok || n.Index >= len(tgtWords) {
				continue
			}
			seen[n.Index] = struct{}{}
			if strings.Contains(tgtWords[n.Index], ",") {
				words = append(words, tgtWords[n.Index])
			}
		}
	}
	return words
}

func formatScore(s float64) string {
	return strconv.FormatFloat(math.Round(s*1e4)/1e4, 'f', -1, 64)
}

// Translation is one parsed line of a neighbour file.
type Translation struct {
	Source  string
	Targets []string
	Scores  []float64
	Flag    Flag
}

// ReadNeighbors parses a neighbour file. The flag column is optional and
// defaults to FlagNoLexiconEntry.
func ReadNeighbors(r io.Reader) ([]Translation, error) {
	scanner := bufio.NewScanner(transform.NewReader(r, textunicode.UTF8.NewDecoder()))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var out []Translation
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 || len(fields) > 4 {
			return nil, errors.Errorf("line %d: expected 3 or 4 tab separated fields, got %d", lineNum, len(fields))
		}

		t := Translation{
			Source:  strings.TrimSpace(fields[0]),
			Targets: strings.Split(strings.TrimSpace(fields[1]), ","),
			Flag:    FlagNoLexiconEntry,
		}
		for _, s := range strings.Split(strings.TrimSpace(fields[2]), ",") {
			score, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: score", lineNum)
			}
			t.Scores = append(t.Scores, score)
		}
		if len(t.Scores) != len(t.Targets) {
			return nil, errors.Errorf("line %d: %d targets but %d scores", lineNum, len(t.Targets), len(t.Scores))
		}
		if len(fields) == 4 {
			flag, err := strconv.Atoi(strings.TrimSpace(fields[3]))
			if err != nil || flag < int(FlagMiss) || flag > int(FlagHit) {
				return nil, errors.Errorf("line %d: invalid flag %q", lineNum, fields[3])
			}
			t.Flag = Flag(flag)
		}

		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read neighbours")
	}
	return out, nil
}

// LoadNeighbors reads a neighbour file from disk.
func LoadNeighbors(filename string) ([]Translation, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open neighbours")
	}
	defer f.Close()

	out, err := ReadNeighbors(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load neighbours %q", filename)
	}
	return out, nil
}
