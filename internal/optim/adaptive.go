package optim

import (
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// AdaGrad scales each element's step by the inverse root of its
// accumulated squared gradients.
//
// Update rule:
//
//	h     = h + gradient²
//	param = param - lr * gradient / (sqrt(h) + eps)
//
// Reference: "Adaptive Subgradient Methods for Online Learning and
// Stochastic Optimization" (Duchi et al., 2011).
type AdaGrad struct {
	base
	eps float64
}

// NewAdaGrad creates an AdaGrad optimizer (defaults LR 0.01, eps 1e-7).
func NewAdaGrad(cfg Config) *AdaGrad {
	return &AdaGrad{base: newBase("adagrad", cfg.LR, 0.01, cfg.WeightDecay), eps: orDefault(cfg.Eps, 1e-7)}
}

// Update applies one AdaGrad step.
func (a *AdaGrad) Update(params, grads map[string]*tensor.Tensor) error {
	names, err := a.prepare(params, grads)
	if err != nil {
		return err
	}
	for _, name := range names {
		p := params[name]
		g := a.grad(p, grads[name])
		h := a.slots(name, p.Shape(), 1)[0].Data()
		pd := p.Data()
		for i, gi := range g {
			h[i] += gi * gi
			pd[i] -= a.lr * gi / (math.Sqrt(h[i]) + a.eps)
		}
	}
	return nil
}

// RMSProp is AdaGrad with an exponentially decaying accumulator.
//
// Update rule:
//
//	h     = rho * h + (1-rho) * gradient²
//	param = param - lr * gradient / (sqrt(h) + eps)
type RMSProp struct {
	base
	rho float64
	eps float64
}

// NewRMSProp creates an RMSProp optimizer (defaults LR 0.01, rho 0.9, eps 1e-7).
func NewRMSProp(cfg Config) *RMSProp {
	return &RMSProp{
		base: newBase("rmsprop", cfg.LR, 0.01, cfg.WeightDecay),
		rho:  orDefault(cfg.Rho, 0.9),
		eps:  orDefault(cfg.Eps, 1e-7),
	}
}

// Update applies one RMSProp step.
func (r *RMSProp) Update(params, grads map[string]*tensor.Tensor) error {
	names, err := r.prepare(params, grads)
	if err != nil {
		return err
	}
	for _, name := range names {
		p := params[name]
		g := r.grad(p, grads[name])
		h := r.slots(name, p.Shape(), 1)[0].Data()
		pd := p.Data()
		for i, gi := range g {
			h[i] = r.rho*h[i] + (1-r.rho)*gi*gi
			pd[i] -= r.lr * gi / (math.Sqrt(h[i]) + r.eps)
		}
	}
	return nil
}

// AdaDelta adapts the step size from running averages of squared
// gradients and squared updates. The learning rate scales the computed
// update and defaults to 1.
//
// Update rule:
//
//	h     = rho * h + (1-rho) * gradient²
//	delta = -sqrt(s + eps) / sqrt(h + eps) * gradient
//	s     = rho * s + (1-rho) * delta²
//	param = param + lr * delta
//
// Reference: "ADADELTA: An Adaptive Learning Rate Method" (Zeiler, 2012).
type AdaDelta struct {
	base
	rho float64
	eps float64
}

// NewAdaDelta creates an AdaDelta optimizer (defaults LR 1, rho 0.95, eps 1e-6).
func NewAdaDelta(cfg Config) *AdaDelta {
	return &AdaDelta{
		base: newBase("adadelta", cfg.LR, 1, cfg.WeightDecay),
		rho:  orDefault(cfg.Rho, 0.95),
		eps:  orDefault(cfg.Eps, 1e-6),
	}
}

// Update applies one AdaDelta step.
func (a *AdaDelta) Update(params, grads map[string]*tensor.Tensor) error {
	names, err := a.prepare(params, grads)
	if err != nil {
		return err
	}
	for _, name := range names {
		p := params[name]
		g := a.grad(p, grads[name])
		st := a.slots(name, p.Shape(), 2)
		h, s := st[0].Data(), st[1].Data()
		pd := p.Data()
		for i, gi := range g {
			h[i] = a.rho*h[i] + (1-a.rho)*gi*gi
			delta := -math.Sqrt(s[i]+a.eps) / math.Sqrt(h[i]+a.eps) * gi
			s[i] = a.rho*s[i] + (1-a.rho)*delta*delta
			pd[i] += a.lr * delta
		}
	}
	return nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
