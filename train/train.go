// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train provides the public API of the mini-batch training loop.
//
//	tr, err := train.New(net, opt, train.DefaultConfig(), logger)
//	hist, err := tr.Fit(ctx, train.Dataset{X: x, Y: y}, train.Dataset{})
//	fmt.Println(hist.FinalTrainAcc())
package train

import (
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/optim"
	"github.com/born-ml/dnn/internal/train"
)

// Core types.
type (
	// Trainer runs epochs of batch sampling, gradients and updates.
	Trainer = train.Trainer
	// Config holds the loop settings.
	Config = train.Config
	// Dataset is an in-memory set of samples and labels.
	Dataset = train.Dataset
	// Batch is one mini-batch.
	Batch = train.Batch
	// History is the learning curve returned by Fit.
	History = train.History
)

// DefaultConfig returns 10 epochs of 32-sample batches, reshuffled and
// evaluated every epoch.
func DefaultConfig() Config { return train.DefaultConfig() }

// New creates a Trainer for net and opt. A nil logger selects
// slog.Default().
func New(net *nn.Network, opt optim.Optimizer, cfg Config, logger *slog.Logger) (*Trainer, error) {
	return train.New(net, opt, cfg, logger)
}

// Split moves round(N·testRatio) randomly chosen samples into a test set.
func Split(ds Dataset, testRatio float64, rng *rand.Rand) (Dataset, Dataset, error) {
	return train.Split(ds, testRatio, rng)
}
