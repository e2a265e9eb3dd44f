package nn

import (
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// activation is the shared machinery of the elementwise activations. f
// returns the output and the local derivative dy/dx at each input; Forward
// caches the derivatives and Backward multiplies them into dy.
type activation struct {
	name  string
	f     func(x float64) (y, dydx float64)
	deriv *tensor.Tensor
}

// Name returns the activation name.
func (a *activation) Name() string { return a.name }

// OutputShape returns the input shape unchanged.
func (a *activation) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward applies the activation elementwise.
func (a *activation) Forward(x *tensor.Tensor, _ Mode) (*tensor.Tensor, error) {
	if x == nil || x.Rank() < 2 {
		var got tensor.Shape
		if x != nil {
			got = x.Shape()
		}
		return nil, shapeErr(a.name, nil, got, "input needs a leading batch axis")
	}
	y := tensor.New(x.Shape())
	d := tensor.New(x.Shape())
	out, dd := y.Data(), d.Data()
	for i, v := range x.Data() {
		out[i], dd[i] = a.f(v)
	}
	a.deriv = d
	return y, nil
}

// Backward returns dy ⊙ f'(x).
func (a *activation) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if a.deriv == nil {
		return nil, noCache(a.name)
	}
	if err := checkGrad(a.name, dy, a.deriv.Shape()); err != nil {
		return nil, err
	}
	dx := tensor.Mul(dy, a.deriv)
	a.deriv = nil
	return dx, nil
}

// Parameters returns nil.
func (a *activation) Parameters() []*Parameter { return nil }

// ReLU is a Rectified Linear Unit activation.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// The gradient is 1 where the input was positive and 0 elsewhere
// (including exactly 0).
//
// Example:
//
//	relu := nn.NewReLU()
//	y, _ := relu.Forward(x, nn.Train) // all negative values become 0
type ReLU struct{ activation }

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{activation{name: "relu", f: func(x float64) (float64, float64) {
		if x > 0 {
			return x, 1
		}
		return 0, 0
	}}}
}

// Sigmoid is the logistic activation.
//
// Applies the element-wise function: σ(x) = 1 / (1 + exp(-x))
//
// Evaluated in a form that never overflows: for x < 0 it uses
// exp(x) / (1 + exp(x)). The gradient is σ(x)·(1-σ(x)).
type Sigmoid struct{ activation }

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{activation{name: "sigmoid", f: func(x float64) (float64, float64) {
		y := sigmoid(x)
		return y, y * (1 - y)
	}}}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Tanh is the hyperbolic tangent activation.
//
// Applies the element-wise function: tanh(x). The gradient is 1 - tanh²(x).
type Tanh struct{ activation }

// NewTanh creates a Tanh activation.
func NewTanh() *Tanh {
	return &Tanh{activation{name: "tanh", f: func(x float64) (float64, float64) {
		y := math.Tanh(x)
		return y, 1 - y*y
	}}}
}

// ELU is the Exponential Linear Unit.
//
//	f(x) = x               if x > 0
//	f(x) = α·(exp(x) - 1)  otherwise
//
// The gradient is 1 for x > 0 and f(x) + α otherwise.
type ELU struct {
	activation
	alpha float64
}

// NewELU creates an ELU activation. An alpha of 0 selects the usual 1.0.
func NewELU(alpha float64) *ELU {
	if alpha == 0 {
		alpha = 1
	}
	return &ELU{
		alpha: alpha,
		activation: activation{name: "elu", f: func(x float64) (float64, float64) {
			if x > 0 {
				return x, 1
			}
			y := alpha * math.Expm1(x)
			return y, y + alpha
		}},
	}
}

// Alpha returns the saturation value for negative inputs.
func (e *ELU) Alpha() float64 { return e.alpha }

// SRReLU is the square-root rectifier.
//
//	f(x) = sqrt(x + 1) - 1  if x > 0
//	f(x) = 0                otherwise
//
// It grows more slowly than ReLU for large inputs. The gradient is
// 1 / (2·sqrt(x + 1)) = 1 / (2·(f(x) + 1)) for x > 0 and 0 elsewhere.
type SRReLU struct{ activation }

// NewSRReLU creates an SRReLU activation.
func NewSRReLU() *SRReLU {
	return &SRReLU{activation{name: "srrelu", f: func(x float64) (float64, float64) {
		if x > 0 {
			r := math.Sqrt(x + 1)
			return r - 1, 0.5 / r
		}
		return 0, 0
	}}}
}
