package optim

import (
	"github.com/born-ml/dnn/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// SGD implements plain stochastic gradient descent.
//
// Update rule:
//
//	param = param - lr * gradient
//
// Example:
//
//	opt := optim.NewSGD(optim.Config{LR: 0.01})
type SGD struct {
	base
}

// NewSGD creates an SGD optimizer (default LR 0.01).
func NewSGD(cfg Config) *SGD {
	return &SGD{base: newBase("sgd", cfg.LR, 0.01, cfg.WeightDecay)}
}

// Update applies param -= lr * grad.
func (s *SGD) Update(params, grads map[string]*tensor.Tensor) error {
	names, err := s.prepare(params, grads)
	if err != nil {
		return err
	}
	for _, name := range names {
		p := params[name]
		floats.AddScaled(p.Data(), -s.lr, s.grad(p, grads[name]))
	}
	return nil
}

// Momentum implements gradient descent with a velocity term.
//
// Update rule:
//
//	v     = μ * v - lr * gradient
//	param = param + v
//
// The velocity starts at zero for every parameter.
type Momentum struct {
	base
	momentum float64
}

// NewMomentum creates a Momentum optimizer (defaults LR 0.01, μ 0.9).
func NewMomentum(cfg Config) *Momentum {
	mu := cfg.Momentum
	if mu == 0 {
		mu = 0.9
	}
	return &Momentum{base: newBase("momentum", cfg.LR, 0.01, cfg.WeightDecay), momentum: mu}
}

// Update applies one momentum step.
func (m *Momentum) Update(params, grads map[string]*tensor.Tensor) error {
	names, err := m.prepare(params, grads)
	if err != nil {
		return err
	}
	for _, name := range names {
		p := params[name]
		g := m.grad(p, grads[name])
		v := m.slots(name, p.Shape(), 1)[0].Data()

		floats.Scale(m.momentum, v)
		floats.AddScaled(v, -m.lr, g)
		floats.Add(p.Data(), v)
	}
	return nil
}
