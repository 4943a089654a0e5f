// Package parallel provides chunked parallel execution for the tensor ops.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForRows executes f(row) for every row of a [rows, cols] matrix, choosing
// between parallel and sequential execution based on total work rather than
// row count. Attention and projection matmuls have few rows but wide columns;
// sizing by elements keeps those parallel.
func ForRows(rows, cols int, f func(row int), cfg Config) {
	if cfg.Enabled && rows*cols >= cfg.MinChunkSize*cfg.NumWorkers {
		// Per-row work is large enough that a chunk of one row is fine.
		rowCfg := cfg
		rowCfg.MinChunkSize = 1
		For(rows, f, rowCfg)
		return
	}
	for i := 0; i < rows; i++ {
		f(i)
	}
}
