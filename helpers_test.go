package bli

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const testEpsilon = 1e-9

// createTempFile writes content to a new file that is removed with the test.
func createTempFile(t testing.TB, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "bli_test_*.txt")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer tmpFile.Close()

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	return tmpFile.Name()
}

// writeFile writes content to name inside dir and returns the full path.
func writeFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func randomMatrix(rng *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

// The two-word pair used across the tests: a->w and b->x on orthogonal axes.
const (
	sourceVectors = "2 2\na 1 0\nb 0 1\n"
	targetVectors = "2 2\nw 1 0\nx 0 1\n"
	testLexicon   = "a w\nb x\n"
)
