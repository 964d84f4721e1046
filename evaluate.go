package bli

import (
	"sort"

	"github.com/pkg/errors"
)

// Flag tells how a query's neighbours compare to the lexicon.
// The integer values are the ones written to neighbour files.
type Flag int

const (
	// FlagMiss means the query has translations and none was retrieved.
	FlagMiss Flag = iota
	// FlagNoLexiconEntry means no lexicon was given or it has no entry for the query.
	FlagNoLexiconEntry
	// FlagHit means at least one retrieved neighbour is an accepted translation.
	FlagHit
)

func (f Flag) String() string {
	switch f {
	case FlagMiss:
		return "miss"
	case FlagNoLexiconEntry:
		return "no_lexicon_entry"
	case FlagHit:
		return "hit"
	default:
		return "unknown"
	}
}

func checkResult(res *TopKResult, queries []int) error {
	if res.Len() != len(queries) {
		return errors.Errorf("top-k result has %d rows for %d queries", res.Len(), len(queries))
	}
	return nil
}

func isHit(predicted []int, targets map[int]struct{}) bool {
	for _, p := range predicted {
		if _, ok := targets[p]; ok {
			return true
		}
	}
	return false
}

// Accuracy is the number of lexicon keys among queries whose top-k contains
// an accepted translation, divided by denominator. Keys that were not scored
// count as misses, so the denominator may exceed the number of queries.
// A denominator <= 0 means the lexicon size.
func Accuracy(res *TopKResult, queries []int, lex Lexicon, denominator float64) (float64, error) {
	if len(lex) == 0 {
		return 0, ErrEmptyLexicon
	}
	if err := checkResult(res, queries); err != nil {
		return 0, err
	}
	if denominator <= 0 {
		denominator = float64(len(lex))
	}

	hits := 0
	for i, q := range queries {
		targets, ok := lex[q]
		if !ok {
			continue
		}
		if isHit(res.Indices[i], targets) {
			hits++
		}
	}
	return float64(hits) / denominator, nil
}

// Neighbor is one retrieved target row and its score.
type Neighbor struct {
	Index int
	Score float64
}

// NeighborEntry is the annotated neighbour list of one query row.
type NeighborEntry struct {
	Query     int
	Neighbors []Neighbor // best first
	Flag      Flag
}

// NeighborMap holds one entry per scored query, in query order.
type NeighborMap struct {
	entries []NeighborEntry
	byQuery map[int]int
}

// BuildNeighborMap annotates every query's top-k with its lexicon flag.
// lex may be nil when no ground truth is available.
func BuildNeighborMap(res *TopKResult, lex Lexicon, queries []int) (*NeighborMap, error) {
	if err := checkResult(res, queries); err != nil {
		return nil, err
	}

	m := &NeighborMap{
		entries: make([]NeighborEntry, 0, len(queries)),
		byQuery: make(map[int]int, len(queries)),
	}
	for i, q := range queries {
		neighbors := make([]Neighbor, len(res.Indices[i]))
		for j, idx := range res.Indices[i] {
			neighbors[j] = Neighbor{Index: idx, Score: res.Scores[i][j]}
		}
		sort.SliceStable(neighbors, func(a, b int) bool {
			return neighbors[a].Score > neighbors[b].Score
		})

		flag := FlagNoLexiconEntry
		if targets, ok := lex[q]; ok {
			flag = FlagMiss
			if isHit(res.Indices[i], targets) {
				flag = FlagHit
			}
		}

		m.byQuery[q] = len(m.entries)
		m.entries = append(m.entries, NeighborEntry{Query: q, Neighbors: neighbors, Flag: flag})
	}
	return m, nil
}

// Len returns the number of entries.
func (m *NeighborMap) Len() int {
	return len(m.entries)
}

// Entries returns the entries in query order. The slice must not be modified.
func (m *NeighborMap) Entries() []NeighborEntry {
	return m.entries
}

// Get returns the entry of a query row.
func (m *NeighborMap) Get(query int) (NeighborEntry, bool) {
	i, ok := m.byQuery[query]
	if !ok {
		return NeighborEntry{}, false
	}
	return m.entries[i], true
}

// Counts returns how many entries carry each flag.
func (m *NeighborMap) Counts() map[Flag]int {
	counts := make(map[Flag]int, 3)
	for _, e := range m.entries {
		counts[e.Flag]++
	}
	return counts
}
