package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// MeanSquaredError computes the squared-error loss.
//
//	Loss = (1/N) Σ_n ½ ‖y[n] - t[n]‖²
//
// Gradient (Backward):
//
//	∂L/∂y = (y - t) / N
//
// Targets must have the shape of y. For a [batch, classes] output, class
// indices with shape [batch] are accepted and expanded to one-hot targets.
//
// Example:
//
//	mse := nn.NewMeanSquaredError()
//	l, err := mse.Forward(predictions, targets)
type MeanSquaredError struct {
	diff *tensor.Tensor
}

// NewMeanSquaredError creates a squared-error loss.
func NewMeanSquaredError() *MeanSquaredError {
	return &MeanSquaredError{}
}

// Name returns "mse".
func (m *MeanSquaredError) Name() string { return "mse" }

// CheckInput accepts any per-sample shape.
func (m *MeanSquaredError) CheckInput(in tensor.Shape) error {
	if len(in) == 0 {
		return shapeErr(m.Name(), nil, in, "predictions need at least one feature axis")
	}
	return nil
}

// Forward computes the mean squared-error loss over the batch.
func (m *MeanSquaredError) Forward(y, labels *tensor.Tensor) (float64, error) {
	if y == nil || y.Rank() < 2 {
		return 0, shapeErr(m.Name(), nil, shapeOf(y), "predictions need a leading batch axis")
	}
	target, err := targetsFor(m.Name(), y, labels)
	if err != nil {
		return 0, err
	}

	diff := tensor.Sub(y, target)
	sq := 0.0
	for _, v := range diff.Data() {
		sq += v * v
	}
	loss := 0.5 * sq / float64(y.Dim(0))
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, &InstabilityError{Layer: m.Name(), Value: loss}
	}

	m.diff = diff
	return loss, nil
}

// Backward returns (y - t) / N.
func (m *MeanSquaredError) Backward() (*tensor.Tensor, error) {
	if m.diff == nil {
		return nil, noCache(m.Name())
	}
	dx := m.diff.Scale(1 / float64(m.diff.Dim(0)))
	m.diff = nil
	return dx, nil
}

// Predict returns a copy of y.
func (m *MeanSquaredError) Predict(y *tensor.Tensor) (*tensor.Tensor, error) {
	if y == nil {
		return nil, shapeErr(m.Name(), nil, nil, "nil predictions")
	}
	return y.Clone(), nil
}

// targetsFor converts labels into a target tensor shaped like x. Class
// indices ([batch]) are expanded to one-hot rows when x is [batch, classes].
func targetsFor(layer string, x, labels *tensor.Tensor) (*tensor.Tensor, error) {
	if labels == nil {
		return nil, shapeErr(layer, x.Shape(), nil, "nil labels")
	}
	if labels.Shape().Equal(x.Shape()) {
		return labels, nil
	}
	if labels.Rank() == 1 && x.Rank() == 2 {
		idx, err := ClassIndices(labels, x.Dim(0), x.Dim(1))
		if err != nil {
			return nil, shapeErr(layer, tensor.Shape{x.Dim(0)}, labels.Shape(), "%v", err)
		}
		return OneHot(idx, x.Dim(1)), nil
	}
	return nil, shapeErr(layer, x.Shape(), labels.Shape(), "labels must be [batch] class indices or match the activations")
}

// ClassIndices converts a [batch] label tensor or a [batch, classes] one-hot
// tensor into integer class indices, validating the range.
func ClassIndices(labels *tensor.Tensor, batch, classes int) ([]int, error) {
	if labels == nil || labels.Rank() == 0 {
		return nil, fmt.Errorf("labels must be rank 1 or 2, got %v", shapeOf(labels))
	}
	if labels.Dim(0) != batch {
		return nil, fmt.Errorf("%d labels for batch of %d", labels.Dim(0), batch)
	}
	switch labels.Rank() {
	case 1:
		out := make([]int, batch)
		for i, v := range labels.Data() {
			c := int(v)
			if float64(c) != v || c < 0 || c >= classes {
				return nil, fmt.Errorf("label %v at row %d is not a class in [0, %d)", v, i, classes)
			}
			out[i] = c
		}
		return out, nil
	case 2:
		if labels.Dim(1) != classes {
			return nil, fmt.Errorf("one-hot labels have %d classes, want %d", labels.Dim(1), classes)
		}
		return labels.ArgmaxRows(), nil
	}
	return nil, fmt.Errorf("labels must be rank 1 or 2, got %v", labels.Shape())
}

// OneHot expands class indices into a [len(indices), classes] tensor.
func OneHot(indices []int, classes int) *tensor.Tensor {
	out := tensor.New(tensor.Shape{len(indices), classes})
	for i, c := range indices {
		out.Data()[i*classes+c] = 1
	}
	return out
}

func shapeOf(x *tensor.Tensor) tensor.Shape {
	if x == nil {
		return nil
	}
	return x.Shape()
}
