package bli

import "sort"

// WordIndex maps each distinct word to the first row it occupies.
// Later duplicates are invisible to lookups. It is immutable once built.
type WordIndex struct {
	rows map[string]int
}

// NewWordIndex indexes words in order; the first occurrence of a word wins.
func NewWordIndex(words []string) *WordIndex {
	rows := make(map[string]int, len(words))
	for i, w := range words {
		if _, ok := rows[w]; !ok {
			rows[w] = i
		}
	}
	return &WordIndex{rows: rows}
}

// Lookup returns the row of word.
func (w *WordIndex) Lookup(word string) (int, bool) {
	row, ok := w.rows[word]
	return row, ok
}

// Len returns the number of distinct words.
func (w *WordIndex) Len() int {
	return len(w.rows)
}

// Rows returns the first-occurrence row of every distinct word, ascending.
func (w *WordIndex) Rows() []int {
	rows := make([]int, 0, len(w.rows))
	for _, row := range w.rows {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// Resolve maps words to rows in ascending row order. Words missing from the
// index are counted, not returned.
func (w *WordIndex) Resolve(words []string) (rows []int, missing int) {
	seen := make(map[int]struct{}, len(words))
	for _, word := range words {
		row, ok := w.rows[word]
		if !ok {
			missing++
			continue
		}
		if _, dup := seen[row]; dup {
			continue
		}
		seen[row] = struct{}{}
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows, missing
}
