package nn

import (
	"github.com/born-ml/dnn/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// A parameter pairs a value tensor with a gradient tensor of the same shape.
// The owning layer writes the gradient during Backward; optimizers read it
// and update the value in place.
//
// Example:
//
//	w := nn.NewParameter("weight", tensor.Zeros(tensor.Shape{4, 3}))
//	v := w.Value()
//	g := w.Grad() // all zeros until Backward runs
type Parameter struct {
	name       string
	local      string
	value      *tensor.Tensor
	grad       *tensor.Tensor
	accumulate bool
}

// NewParameter creates a trainable parameter with a zeroed gradient.
//
// Parameters:
//   - name: Layer-local name (e.g., "weight", "bias")
//   - value: The initialized parameter tensor
//
// Returns a new Parameter.
func NewParameter(name string, value *tensor.Tensor) *Parameter {
	return &Parameter{
		name:  name,
		local: name,
		value: value,
		grad:  tensor.ZerosLike(value),
	}
}

// Name returns the parameter name. Inside a Network this is the qualified
// "<layer index>.<local name>" form.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter tensor.
func (p *Parameter) Value() *tensor.Tensor {
	return p.value
}

// Grad returns the gradient tensor. It always has the shape of Value.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// ZeroGrad resets the gradient to zero.
func (p *Parameter) ZeroGrad() {
	p.grad.Fill(0)
}

// SetGrad records g as this parameter's gradient, overwriting by default
// and summing when the owning network accumulates gradients. Layers call it
// from Backward.
func (p *Parameter) SetGrad(g *tensor.Tensor) {
	if p.accumulate {
		p.grad.AddInPlace(g)
		return
	}
	p.grad.CopyFrom(g)
}

func (p *Parameter) qualify(prefix string) {
	p.name = prefix + p.local
}
