// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for building and differentiating
// layered networks.
//
// # Overview
//
//   - Layers: Affine, Conv2D, MaxPool2D, AvgPool2D, BatchNorm, Dropout, Flatten
//   - Activations: ReLU, Sigmoid, Tanh, ELU, SRReLU
//   - Loss layers: SoftmaxCrossEntropy, SigmoidCrossEntropy, MeanSquaredError
//   - Network: ordered layers plus a loss, with named parameters
//
// Every layer computes its own backward pass; a Network chains them.
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	net, err := nn.NewNetwork([]nn.Layer{
//	    nn.NewAffine(784, 128, nn.He, rng),
//	    nn.NewReLU(),
//	    nn.NewAffine(128, 10, nil, rng),
//	}, nn.NewSoftmaxCrossEntropy())
//
//	grads, loss, err := net.Gradient(x, labels)
package nn

import (
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/tensor"
)

// Core types.
type (
	// Layer is a differentiable stage with its own backward pass.
	Layer = nn.Layer
	// LossLayer terminates a network with a scalar loss.
	LossLayer = nn.LossLayer
	// Stateful layers expose non-trainable buffers.
	Stateful = nn.Stateful
	// Network is an ordered stack of layers and a loss layer.
	Network = nn.Network
	// Option configures a Network.
	Option = nn.Option
	// Parameter is a trainable tensor and its gradient.
	Parameter = nn.Parameter
	// Mode selects training or inference behavior.
	Mode = nn.Mode
	// Initializer produces initial weights.
	Initializer = nn.Initializer
)

// Modes.
const (
	Train = nn.Train
	Infer = nn.Infer
)

// Errors.
var (
	ErrShapeMismatch        = nn.ErrShapeMismatch
	ErrNumericalInstability = nn.ErrNumericalInstability
	ErrNoForwardCache       = nn.ErrNoForwardCache
)

// Typed errors.
type (
	ShapeError       = nn.ShapeError
	InstabilityError = nn.InstabilityError
)

// NewNetwork builds a network from layers and a terminal loss layer.
func NewNetwork(layers []Layer, loss LossLayer, opts ...Option) (*Network, error) {
	return nn.NewNetwork(layers, loss, opts...)
}

// NewParameter creates a trainable parameter with a zeroed gradient. Custom
// layers return their parameters from Parameters and fill the gradients
// with Parameter.SetGrad during Backward.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, value)
}

// WithInputShape declares the per-sample input shape so that layer shapes
// are checked at construction.
var WithInputShape = nn.WithInputShape

// WithGradientAccumulation makes Backward add into existing gradients.
var WithGradientAccumulation = nn.WithGradientAccumulation

// Initializers.
var (
	Xavier Initializer = nn.Xavier
	He     Initializer = nn.He
)

// Normal returns an initializer drawing from N(0, std²).
func Normal(std float64) Initializer { return nn.Normal(std) }

// Layers

// Affine is a fully connected layer.
type Affine = nn.Affine

// NewAffine creates an in→out fully connected layer. A nil init selects Xavier.
func NewAffine(in, out int, init Initializer, rng *rand.Rand) *Affine {
	return nn.NewAffine(in, out, init, rng)
}

// Conv2D is a 2-D convolution over NCHW inputs.
type Conv2D = nn.Conv2D

// NewConv2D creates a convolution with filters kernels of kernelH×kernelW.
//
// Example:
//
//	conv := nn.NewConv2D(1, 6, 5, 5, 1, 0, nn.He, rng) // 1→6 channels, 5x5, stride 1, no padding
func NewConv2D(inChannels, filters, kernelH, kernelW, stride, padding int, init Initializer, rng *rand.Rand) *Conv2D {
	return nn.NewConv2D(inChannels, filters, kernelH, kernelW, stride, padding, init, rng)
}

// MaxPool2D is 2-D max pooling.
type MaxPool2D = nn.MaxPool2D

// NewMaxPool2D creates a max pooling layer.
func NewMaxPool2D(kernelSize, stride, padding int) *MaxPool2D {
	return nn.NewMaxPool2D(kernelSize, stride, padding)
}

// AvgPool2D is 2-D average pooling.
type AvgPool2D = nn.AvgPool2D

// NewAvgPool2D creates an average pooling layer.
func NewAvgPool2D(kernelSize, stride, padding int) *AvgPool2D {
	return nn.NewAvgPool2D(kernelSize, stride, padding)
}

// BatchNorm normalizes per feature or per channel.
type BatchNorm = nn.BatchNorm

// BatchNormOption configures a BatchNorm layer.
type BatchNormOption = nn.BatchNormOption

// NewBatchNorm creates a batch normalization layer.
func NewBatchNorm(features int, opts ...BatchNormOption) *BatchNorm {
	return nn.NewBatchNorm(features, opts...)
}

// WithMomentum sets the running-statistics momentum (default 0.9).
func WithMomentum(m float64) BatchNormOption { return nn.WithMomentum(m) }

// WithEpsilon sets the variance epsilon (default 1e-5).
func WithEpsilon(eps float64) BatchNormOption { return nn.WithEpsilon(eps) }

// Dropout zeroes activations at random while training.
type Dropout = nn.Dropout

// NewDropout creates a dropout layer keeping each unit with probability keepProb.
func NewDropout(keepProb float64, rng *rand.Rand) *Dropout {
	return nn.NewDropout(keepProb, rng)
}

// Flatten reshapes [N, ...] to [N, features].
type Flatten = nn.Flatten

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten { return nn.NewFlatten() }

// Activations

// ReLU is max(0, x).
type ReLU = nn.ReLU

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU { return nn.NewReLU() }

// Sigmoid is 1/(1+e^-x).
type Sigmoid = nn.Sigmoid

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid() *Sigmoid { return nn.NewSigmoid() }

// Tanh is the hyperbolic tangent.
type Tanh = nn.Tanh

// NewTanh creates a Tanh activation.
func NewTanh() *Tanh { return nn.NewTanh() }

// ELU is x for x > 0 and α(e^x - 1) otherwise.
type ELU = nn.ELU

// NewELU creates an ELU activation (α = 0 selects 1).
func NewELU(alpha float64) *ELU { return nn.NewELU(alpha) }

// SRReLU is sqrt(x+1) - 1 for x > 0 and 0 otherwise.
type SRReLU = nn.SRReLU

// NewSRReLU creates an SRReLU activation.
func NewSRReLU() *SRReLU { return nn.NewSRReLU() }

// Loss layers

// SoftmaxCrossEntropy fuses softmax and cross-entropy.
type SoftmaxCrossEntropy = nn.SoftmaxCrossEntropy

// NewSoftmaxCrossEntropy creates the classification loss.
func NewSoftmaxCrossEntropy() *SoftmaxCrossEntropy { return nn.NewSoftmaxCrossEntropy() }

// MeanSquaredError is ½·Σ(y-t)²/N.
type MeanSquaredError = nn.MeanSquaredError

// NewMeanSquaredError creates the regression loss.
func NewMeanSquaredError() *MeanSquaredError { return nn.NewMeanSquaredError() }

// SigmoidCrossEntropy is the binomial cross-entropy of σ(x) per output unit.
type SigmoidCrossEntropy = nn.SigmoidCrossEntropy

// NewSigmoidCrossEntropy creates the binomial cross-entropy loss.
func NewSigmoidCrossEntropy() *SigmoidCrossEntropy { return nn.NewSigmoidCrossEntropy() }
