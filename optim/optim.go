// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the public API of the parameter update rules.
//
// Optimizers work on the name-keyed maps produced by nn.Network:
//
//	opt, err := optim.New(optim.Config{Name: "adam", LR: 1e-3})
//	grads, _, err := net.Gradient(x, labels)
//	err = opt.Update(net.Params(), grads)
package optim

import (
	"github.com/born-ml/dnn/internal/optim"
)

// Optimizer updates parameters in place from their gradients.
type Optimizer = optim.Optimizer

// Config selects and tunes an optimizer. Zero fields select the
// per-algorithm defaults.
type Config = optim.Config

// Errors.
var (
	ErrUnknownOptimizer = optim.ErrUnknownOptimizer
	ErrGradientShape    = optim.ErrGradientShape
)

// New returns the optimizer named by cfg.Name.
func New(cfg Config) (Optimizer, error) { return optim.New(cfg) }

// Names lists the accepted optimizer names.
func Names() []string { return optim.Names() }

// Update rules.
type (
	SGD      = optim.SGD
	Momentum = optim.Momentum
	AdaGrad  = optim.AdaGrad
	RMSProp  = optim.RMSProp
	AdaDelta = optim.AdaDelta
	Adam     = optim.Adam
)

// NewSGD creates plain gradient descent.
func NewSGD(cfg Config) *SGD { return optim.NewSGD(cfg) }

// NewMomentum creates gradient descent with momentum.
func NewMomentum(cfg Config) *Momentum { return optim.NewMomentum(cfg) }

// NewAdaGrad creates AdaGrad.
func NewAdaGrad(cfg Config) *AdaGrad { return optim.NewAdaGrad(cfg) }

// NewRMSProp creates RMSProp.
func NewRMSProp(cfg Config) *RMSProp { return optim.NewRMSProp(cfg) }

// NewAdaDelta creates AdaDelta.
func NewAdaDelta(cfg Config) *AdaDelta { return optim.NewAdaDelta(cfg) }

// NewAdam creates Adam with bias correction.
func NewAdam(cfg Config) *Adam { return optim.NewAdam(cfg) }
