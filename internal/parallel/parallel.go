// Package parallel splits index ranges across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how work is split.
type Config struct {
	Workers  int // Maximum goroutines; <= 1 runs on the caller
	MinChunk int // Minimum indices handed to one goroutine
}

// DefaultConfig uses one worker per schedulable CPU.
func DefaultConfig() Config {
	return Config{Workers: runtime.GOMAXPROCS(0), MinChunk: 2}
}

// Sequential runs every range on the calling goroutine.
var Sequential = Config{Workers: 1}

// For covers [0, n) with disjoint ranges and calls fn(lo, hi) for each,
// returning once all calls have finished. fn must only write memory owned
// by its own range; results are then identical to a sequential run.
func For(n int, cfg Config, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	chunk := max(cfg.MinChunk, 1)
	if cfg.Workers > 1 {
		chunk = max(chunk, (n+cfg.Workers-1)/cfg.Workers)
	}
	if cfg.Workers <= 1 || chunk >= n {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(lo, hi)
		}()
	}
	wg.Wait()
}
