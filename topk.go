package bli

import (
	"container/heap"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TopKResult holds the k best columns of every scored row.
// The k entries of a row are in no particular order.
type TopKResult struct {
	Indices [][]int
	Scores  [][]float64
}

// Len returns the number of rows.
func (r *TopKResult) Len() int {
	return len(r.Indices)
}

// TopK selects, for every row of m, the k highest scoring columns.
// k larger than the column count is clamped. Which of several equal scores
// at the k-th boundary is kept is not defined.
func TopK(m mat.Matrix, k int) (*TopKResult, error) {
	if k < 1 {
		return nil, errors.Errorf("k must be at least 1, got %d", k)
	}

	rows, cols := m.Dims()
	k = min(k, cols)
	res := &TopKResult{
		Indices: make([][]int, rows),
		Scores:  make([][]float64, rows),
	}

	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		res.Indices[i], res.Scores[i] = selectTop(row, k)
	}
	return res, nil
}

// append adds the rows of other after the rows of r.
func (r *TopKResult) append(other *TopKResult) {
	r.Indices = append(r.Indices, other.Indices...)
	r.Scores = append(r.Scores, other.Scores...)
}

type candidate struct {
	index int
	score float64
}

// candidateHeap is a min-heap on score; the root is the weakest of the best k.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x interface{}) {
	*h = append(*h, x.(candidate))
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// selectTop returns the k best positions of row and their scores, in heap order.
func selectTop(row []float64, k int) ([]int, []float64) {
	h := make(candidateHeap, 0, k)
	for j, s := range row {
		if len(h) < k {
			heap.Push(&h, candidate{index: j, score: s})
			continue
		}
		if s > h[0].score {
			h[0] = candidate{index: j, score: s}
			heap.Fix(&h, 0)
		}
	}

	indices := make([]int, len(h))
	scores := make([]float64, len(h))
	for i, c := range h {
		indices[i] = c.index
		scores[i] = c.score
	}
	return indices, scores
}

// meanTop is the mean of the k largest values of row. The values are summed
// in ascending order so the result depends only on the row's contents.
func meanTop(row []float64, k int) float64 {
	_, scores := selectTop(row, k)
	sort.Float64s(scores)
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
