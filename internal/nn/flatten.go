package nn

import (
	"github.com/born-ml/dnn/internal/tensor"
)

// Flatten reshapes [batch, d1, d2, ...] into [batch, d1*d2*...].
type Flatten struct {
	inShape tensor.Shape
}

// NewFlatten creates a Flatten layer.
func NewFlatten() *Flatten { return &Flatten{} }

// Name returns "flatten".
func (f *Flatten) Name() string { return "flatten" }

// OutputShape implements Layer.
func (f *Flatten) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) == 0 {
		return nil, shapeErr(f.Name(), nil, in, "nothing to flatten")
	}
	return tensor.Shape{in.NumElements()}, nil
}

// Forward implements Layer.
func (f *Flatten) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	if _, err := checkBatched(f, x); err != nil {
		return nil, err
	}
	f.inShape = x.Shape().Clone()
	return x.Clone().Flatten2D(), nil
}

// Backward reshapes dy back to the input shape.
func (f *Flatten) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if f.inShape == nil {
		return nil, noCache(f.Name())
	}
	want := tensor.Shape{f.inShape[0], f.inShape[1:].NumElements()}
	if err := checkGrad(f.Name(), dy, want); err != nil {
		return nil, err
	}
	dx := dy.Clone().Reshape(f.inShape...)
	f.inShape = nil
	return dx, nil
}

// Parameters returns nil.
func (f *Flatten) Parameters() []*Parameter { return nil }
