// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API of the dense float64 arrays that
// flow through the network.
//
// Example:
//
//	x, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	w := tensor.RandNormal(tensor.Shape{3, 4}, 0, 0.1, rng)
//	y := tensor.MatMul(x, w) // [2, 4]
package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/tensor"
)

// Tensor is a row-major float64 array with a shape.
type Tensor = tensor.Tensor

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// ErrShape reports incompatible shapes.
var ErrShape = tensor.ErrShape

// New creates a zero-filled tensor.
func New(shape Shape) *Tensor { return tensor.New(shape) }

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor { return tensor.Zeros(shape) }

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor { return tensor.Ones(shape) }

// Full creates a tensor filled with value.
func Full(shape Shape, value float64) *Tensor { return tensor.Full(shape, value) }

// FromSlice copies data into a new tensor of the given shape.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// RandNormal draws every element from N(mu, sigma²).
func RandNormal(shape Shape, mu, sigma float64, rng *rand.Rand) *Tensor {
	return tensor.RandNormal(shape, mu, sigma, rng)
}

// RandUniform draws every element from U(lo, hi).
func RandUniform(shape Shape, lo, hi float64, rng *rand.Rand) *Tensor {
	return tensor.RandUniform(shape, lo, hi, rng)
}

// MatMul computes a·b for 2-D tensors.
func MatMul(a, b *Tensor) *Tensor { return tensor.MatMul(a, b) }
