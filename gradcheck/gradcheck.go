// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gradcheck provides the public API of the gradient verifier.
//
// It compares the gradients a layer or network computes in Backward with
// centered finite differences, which is how a new Layer implementation is
// validated before it is used for training:
//
//	report, err := gradcheck.Layer(myLayer, x, nn.Train, gradcheck.Options{})
//	if errors.Is(err, gradcheck.ErrMismatch) {
//	    fmt.Println(report.Worst())
//	}
package gradcheck

import (
	"github.com/born-ml/dnn/internal/gradcheck"
	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/tensor"
)

// Types.
type (
	// Options tunes the step, tolerance and seeding of a check.
	Options = gradcheck.Options
	// Report lists the worst relative error of every checked tensor.
	Report = gradcheck.Report
	// Result is the entry for one tensor.
	Result = gradcheck.Result
	// MismatchError describes the worst entry above tolerance.
	MismatchError = gradcheck.MismatchError
)

// ErrMismatch is wrapped by every *MismatchError.
var ErrMismatch = gradcheck.ErrMismatch

// InputName is the Report entry of the gradient with respect to the input.
const InputName = gradcheck.InputName

// Layer checks the input and parameter gradients of a single layer.
func Layer(layer nn.Layer, x *tensor.Tensor, mode nn.Mode, opts Options) (*Report, error) {
	return gradcheck.Layer(layer, x, mode, opts)
}

// Network checks every parameter gradient of net on one batch.
func Network(net *nn.Network, x, labels *tensor.Tensor, opts Options) (*Report, error) {
	return gradcheck.Network(net, x, labels, opts)
}

// RelativeError returns |a - n| / max(|a|, |n|, 1e-4).
func RelativeError(a, n float64) float64 { return gradcheck.RelativeError(a, n) }
