package nn

import (
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Affine is a fully connected layer: y = x @ W + b.
//
// Inputs with more than two axes are flattened per sample, so an Affine can
// follow a convolution or pooling layer directly. The input gradient is
// reshaped back to the original input shape.
//
// Input shape:  [batch, in_features] or [batch, d1, d2, ...] with d1*d2*... = in_features
// Output shape: [batch, out_features]
//
// Example:
//
//	fc := nn.NewAffine(784, 128, nn.He, rng)
//	y, err := fc.Forward(x, nn.Train) // [batch, 128]
type Affine struct {
	in, out int
	weight  *Parameter // [in, out]
	bias    *Parameter // [out]

	x       *tensor.Tensor // flattened input
	inShape tensor.Shape
}

// NewAffine creates a fully connected layer.
//
// Parameters:
//   - in: Number of input features
//   - out: Number of output features
//   - init: Weight initializer (nil selects Xavier)
//   - rng: Random source for the weights
//
// The bias starts at zero.
func NewAffine(in, out int, init Initializer, rng *rand.Rand) *Affine {
	if init == nil {
		init = Xavier
	}
	return &Affine{
		in:     in,
		out:    out,
		weight: NewParameter("weight", init(in, out, tensor.Shape{in, out}, rng)),
		bias:   NewParameter("bias", tensor.Zeros(tensor.Shape{out})),
	}
}

// Name returns "affine".
func (a *Affine) Name() string { return "affine" }

// Weight returns the [in, out] weight parameter.
func (a *Affine) Weight() *Parameter { return a.weight }

// Bias returns the [out] bias parameter.
func (a *Affine) Bias() *Parameter { return a.bias }

// OutputShape implements Layer.
func (a *Affine) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if len(in) == 0 || in.NumElements() != a.in {
		return nil, shapeErr(a.Name(), tensor.Shape{a.in}, in, "per-sample features")
	}
	return tensor.Shape{a.out}, nil
}

// Forward computes x @ W + b.
func (a *Affine) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	if _, err := checkBatched(a, x); err != nil {
		return nil, err
	}
	x2 := x.Flatten2D()
	y := tensor.MatMul(x2, a.weight.Value())
	b := a.bias.Value().Data()
	for i := 0; i < y.Dim(0); i++ {
		floats.Add(y.Row(i), b)
	}

	a.x = x2
	a.inShape = x.Shape().Clone()
	return y, nil
}

// Backward computes:
//
//	dW = xᵗ @ dy
//	db = Σ_batch dy
//	dx = dy @ Wᵗ
func (a *Affine) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if a.x == nil {
		return nil, noCache(a.Name())
	}
	if err := checkGrad(a.Name(), dy, tensor.Shape{a.x.Dim(0), a.out}); err != nil {
		return nil, err
	}

	a.weight.SetGrad(tensor.MatMulTransA(a.x, dy))
	a.bias.SetGrad(dy.SumAxis0())
	dx := tensor.MatMulTransB(dy, a.weight.Value()).Reshape(a.inShape...)

	a.x, a.inShape = nil, nil
	return dx, nil
}

// Parameters returns [weight, bias].
func (a *Affine) Parameters() []*Parameter {
	return []*Parameter{a.weight, a.bias}
}
