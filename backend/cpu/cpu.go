// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu controls the pure Go kernels behind convolution and pooling.
//
// The kernels split their work over samples (or sample channels) across
// goroutines. Each goroutine writes only its own outputs, so results are
// bit-identical for every setting; only speed changes.
//
//	prev := cpu.SetWorkers(1) // run the kernels on the calling goroutine
//	defer cpu.SetWorkers(prev)
package cpu

import (
	internalcpu "github.com/born-ml/dnn/internal/backend/cpu"
	"github.com/born-ml/dnn/internal/parallel"
)

// SetWorkers caps the goroutines used by one kernel call and returns the
// previous cap. Values <= 1 run sequentially. It may be called while other
// goroutines run forward or backward passes; a kernel call already in
// progress keeps the cap it started with.
func SetWorkers(n int) int {
	cfg := parallel.DefaultConfig()
	cfg.Workers = n
	return internalcpu.SetParallelism(cfg).Workers
}
