package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForCoversAllIndices(t *testing.T) {
	tests := []struct {
		name string
		n    int
		cfg  Config
	}{
		{"sequential", 100, Config{Enabled: false}},
		{"below chunk threshold", 10, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64}},
		{"parallel", 1000, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}},
		{"more workers than items", 5, Config{Enabled: true, NumWorkers: 16, MinChunkSize: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := make([]int32, tt.n)
			For(tt.n, func(i int) {
				atomic.AddInt32(&counts[i], 1)
			}, tt.cfg)

			for i, c := range counts {
				if c != 1 {
					t.Errorf("index %d visited %d times, want 1", i, c)
				}
			}
		})
	}
}

func TestForZeroItems(t *testing.T) {
	called := false
	For(0, func(i int) { called = true }, DefaultConfig())
	if called {
		t.Error("For(0, ...) invoked the function")
	}
}

func TestForRowsCoversAllRows(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		cfg        Config
	}{
		{"few wide rows parallel", 8, 1024, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64}},
		{"small matrix sequential", 4, 4, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 64}},
		{"disabled", 100, 100, Config{Enabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := make([]int32, tt.rows)
			ForRows(tt.rows, tt.cols, func(row int) {
				atomic.AddInt32(&counts[row], 1)
			}, tt.cfg)

			for i, c := range counts {
				if c != 1 {
					t.Errorf("row %d visited %d times, want 1", i, c)
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.NumWorkers < 1 {
		t.Errorf("DefaultConfig().NumWorkers = %d, want >= 1", cfg.NumWorkers)
	}
	if cfg.MinChunkSize < 1 {
		t.Errorf("DefaultConfig().MinChunkSize = %d, want >= 1", cfg.MinChunkSize)
	}
}
