package bli

import "github.com/shirou/gopsutil/v3/mem"

const (
	minAutoBatch = 64
	maxAutoBatch = 16384

	// memoryShare is the fraction of available memory the density
	// batches may hold at once.
	memoryShare = 8
)

// AutoBatchSize picks a batch size so that workers batches of rows with
// width columns of float64 fit into an eighth of the available memory.
// It falls back to DefaultBatchSize when memory cannot be queried.
func AutoBatchSize(width, workers int) int {
	if width <= 0 {
		return DefaultBatchSize
	}
	workers = max(workers, 1)

	vm, err := mem.VirtualMemory()
	if err != nil || vm.Available == 0 {
		return DefaultBatchSize
	}

	budget := vm.Available / memoryShare / uint64(workers)
	rows := budget / (uint64(width) * 8)
	return int(min(max(rows, minAutoBatch), maxAutoBatch))
}
