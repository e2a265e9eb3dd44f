// Package nn implements a feed-forward neural network engine with
// hand-derived gradients.
//
// This package provides the building blocks for training networks without
// an autodiff tape:
//   - Layer: forward/backward contract implemented by every layer
//   - Parameter: trainable tensor paired with its gradient
//   - Affine, Conv2D: learnable transforms
//   - ReLU, Sigmoid, Tanh, ELU: elementwise activations
//   - Dropout, BatchNorm, MaxPool2D, AvgPool2D, Flatten
//   - SoftmaxCrossEntropy, MeanSquaredError: terminal loss layers
//   - Network: ordered layers plus a loss layer
//
// Every layer caches what its backward pass needs during Forward and
// releases the cache in Backward, so each Forward pairs with at most one
// Backward.
package nn

import (
	"github.com/born-ml/dnn/internal/tensor"
)

// Mode selects training or inference behaviour for a forward pass.
type Mode int

const (
	// Train enables stochastic behaviour (dropout masks) and batch statistics.
	Train Mode = iota
	// Infer makes Dropout the identity and BatchNorm use running statistics.
	Infer
)

// String returns "train" or "infer".
func (m Mode) String() string {
	if m == Infer {
		return "infer"
	}
	return "train"
}

// Layer is the interface implemented by every non-terminal layer.
//
// Shapes passed to OutputShape exclude the batch dimension; tensors passed
// to Forward and Backward include it as their leading axis.
//
// Example:
//
//	layers := []nn.Layer{
//	    nn.NewAffine(784, 128, nil, rng),
//	    nn.NewReLU(),
//	    nn.NewAffine(128, 10, nil, rng),
//	}
type Layer interface {
	// Name returns a short identifier such as "affine" or "relu".
	Name() string

	// OutputShape returns the per-sample output shape for a per-sample
	// input shape, or a *ShapeError if the layer cannot accept it.
	OutputShape(in tensor.Shape) (tensor.Shape, error)

	// Forward computes the layer output and caches what Backward needs.
	// The input tensor is never modified.
	Forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error)

	// Backward takes dL/dy, stores dL/dparam in each parameter's gradient
	// slot and returns dL/dx with the shape of the cached input.
	Backward(dy *tensor.Tensor) (*tensor.Tensor, error)

	// Parameters returns the trainable parameters in a stable order.
	// Layers without weights return nil.
	Parameters() []*Parameter
}

// Stateful is implemented by layers that carry non-trainable state which
// must be persisted with the model, such as BatchNorm running statistics.
type Stateful interface {
	Buffers() map[string]*tensor.Tensor
}

// LossLayer is the terminal layer of a Network. It reduces the final
// activations and the labels to a scalar loss.
type LossLayer interface {
	Name() string

	// CheckInput validates the per-sample shape of the activations fed to
	// the loss.
	CheckInput(in tensor.Shape) error

	// Forward computes the mean loss over the batch and caches what
	// Backward needs. Labels are either class indices with shape [batch] or
	// targets with the same shape as x.
	Forward(x, labels *tensor.Tensor) (float64, error)

	// Backward returns dL/dx for the cached forward pass.
	Backward() (*tensor.Tensor, error)

	// Predict maps raw activations to predictions (probabilities for
	// softmax cross-entropy, the activations themselves for MSE).
	Predict(x *tensor.Tensor) (*tensor.Tensor, error)
}

// checkBatched validates that x has a batch axis and that the layer accepts
// its per-sample shape. It returns the full output shape.
func checkBatched(l Layer, x *tensor.Tensor) (tensor.Shape, error) {
	if x == nil {
		return nil, shapeErr(l.Name(), nil, nil, "nil input")
	}
	if x.Rank() < 2 {
		return nil, shapeErr(l.Name(), nil, x.Shape(), "input needs a leading batch axis")
	}
	out, err := l.OutputShape(x.Shape()[1:])
	if err != nil {
		return nil, err
	}
	return out.WithBatch(x.Dim(0)), nil
}

// checkGrad validates that dy matches the cached output shape.
func checkGrad(layer string, dy *tensor.Tensor, want tensor.Shape) error {
	if dy == nil {
		return shapeErr(layer, want, nil, "nil upstream gradient")
	}
	if !dy.Shape().Equal(want) {
		return shapeErr(layer, want, dy.Shape(), "upstream gradient")
	}
	return nil
}
