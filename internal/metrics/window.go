// Package metrics aggregates per-step timing and loss for training logs.
package metrics

import "time"

// Window accumulates timing stats across multiple steps.
type Window struct {
	samples  int
	data     time.Duration
	compute  time.Duration
	steps    int
	lossSum  float64
	lastLoss float64
}

// Record adds a new measurement to the window. dataTime covers batch
// assembly, computeTime the gradient and optimizer update.
func (w *Window) Record(batchSize int, dataTime, computeTime time.Duration, loss float64) {
	w.samples += batchSize
	w.data += dataTime
	w.compute += computeTime
	w.steps++
	w.lossSum += loss
	w.lastLoss = loss
}

// Steps returns the number of steps recorded since the last Snapshot.
func (w *Window) Steps() int { return w.steps }

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, Samples: w.samples}
	total := w.data + w.compute
	if total > 0 {
		snap.SamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgDataMS = (w.data.Seconds() * 1000) / float64(w.steps)
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
		snap.MeanLoss = w.lossSum / float64(w.steps)
	}
	snap.LastLoss = w.lastLoss

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps         int
	Samples       int
	SamplesPerSec float64
	AvgDataMS     float64
	AvgComputeMS  float64
	MeanLoss      float64
	LastLoss      float64
}
