// Package optim implements optimization algorithms for training neural networks.
//
// This package provides:
//   - Optimizer interface: in-place update from a gradient map
//   - SGD, Momentum: plain and heavy-ball gradient descent
//   - AdaGrad, RMSProp, AdaDelta: per-element adaptive step sizes
//   - Adam: Adaptive Moment Estimation
//
// Parameters and gradients are addressed by name (as produced by
// nn.Network.Params and nn.Network.Grads), so per-parameter state such as
// moment estimates stays attached to the right tensor even when several
// parameters share a shape.
//
// Example usage:
//
//	opt, err := optim.New(optim.Config{Name: "adam", LR: 0.001})
//	for step := range steps {
//	    grads, loss, err := net.Gradient(x, y)
//	    if err := opt.Update(net.Params(), grads); err != nil {
//	        return err
//	    }
//	}
package optim

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/born-ml/dnn/internal/tensor"
)

var (
	// ErrUnknownOptimizer is returned by New for an unrecognised name.
	ErrUnknownOptimizer = errors.New("optim: unknown optimizer")

	// ErrGradientShape is returned when a gradient is missing, unexpected
	// or shaped differently from its parameter.
	ErrGradientShape = errors.New("optim: gradient does not match parameter")
)

// Optimizer is the base interface for all optimization algorithms.
//
// Update mutates params in place using grads. Both maps are keyed by
// parameter name. All gradients are validated before any parameter is
// touched, so a failed Update leaves the parameters and the optimizer
// state unchanged.
type Optimizer interface {
	// Update applies one optimization step.
	Update(params, grads map[string]*tensor.Tensor) error

	// Name returns the algorithm name as accepted by New.
	Name() string

	// LR returns the current learning rate.
	LR() float64

	// SetLR changes the learning rate for subsequent steps.
	SetLR(lr float64)

	// Reset discards all per-parameter state.
	Reset()
}

// Config selects and configures an optimizer. A zero field picks the
// per-algorithm default, so an exact zero learning rate, momentum or
// decay cannot be requested. Plain SGD is the zero-momentum variant.
type Config struct {
	Name        string  `yaml:"name"`         // sgd, momentum, adagrad, rmsprop, adadelta, adam
	LR          float64 `yaml:"lr"`           // Learning rate
	Momentum    float64 `yaml:"momentum"`     // Momentum coefficient μ (default 0.9)
	Beta1       float64 `yaml:"beta1"`        // Adam first-moment decay (default 0.9)
	Beta2       float64 `yaml:"beta2"`        // Adam second-moment decay (default 0.999)
	Eps         float64 `yaml:"eps"`          // Stability term
	Rho         float64 `yaml:"rho"`          // RMSProp/AdaDelta decay (default 0.9 / 0.95)
	WeightDecay float64 `yaml:"weight_decay"` // L2 coefficient λ added as λ·p to the gradient
}

// New creates the optimizer named by cfg.Name.
func New(cfg Config) (Optimizer, error) {
	if cfg.LR < 0 || cfg.WeightDecay < 0 {
		return nil, fmt.Errorf("optim: negative learning rate or weight decay (lr=%v, weight_decay=%v)", cfg.LR, cfg.WeightDecay)
	}
	switch cfg.Name {
	case "sgd":
		return NewSGD(cfg), nil
	case "momentum":
		return NewMomentum(cfg), nil
	case "adagrad":
		return NewAdaGrad(cfg), nil
	case "rmsprop":
		return NewRMSProp(cfg), nil
	case "adadelta":
		return NewAdaDelta(cfg), nil
	case "adam":
		return NewAdam(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOptimizer, cfg.Name)
}

// Names lists the algorithms New accepts.
func Names() []string {
	return []string{"sgd", "momentum", "adagrad", "rmsprop", "adadelta", "adam"}
}

// base carries the fields and helpers shared by every optimizer.
type base struct {
	name        string
	lr          float64
	weightDecay float64
	state       map[string][]*tensor.Tensor
}

func newBase(name string, lr, defaultLR, weightDecay float64) base {
	if lr == 0 {
		lr = defaultLR
	}
	return base{name: name, lr: lr, weightDecay: weightDecay, state: make(map[string][]*tensor.Tensor)}
}

// Name returns the algorithm name.
func (b *base) Name() string { return b.name }

// LR returns the current learning rate.
func (b *base) LR() float64 { return b.lr }

// SetLR changes the learning rate.
func (b *base) SetLR(lr float64) { b.lr = lr }

// Reset discards all per-parameter state.
func (b *base) Reset() { clear(b.state) }

// prepare validates grads against params and returns the parameter names
// in a stable order.
func (b *base) prepare(params, grads map[string]*tensor.Tensor) ([]string, error) {
	names := slices.Sorted(maps.Keys(params))
	for _, name := range names {
		g, ok := grads[name]
		if !ok || g == nil {
			return nil, fmt.Errorf("%w: no gradient for %q", ErrGradientShape, name)
		}
		if p := params[name]; !p.Shape().Equal(g.Shape()) {
			return nil, fmt.Errorf("%w: %q has shape %v, gradient %v", ErrGradientShape, name, p.Shape(), g.Shape())
		}
	}
	for name := range grads {
		if _, ok := params[name]; !ok {
			return nil, fmt.Errorf("%w: gradient for unknown parameter %q", ErrGradientShape, name)
		}
	}
	return names, nil
}

// grad returns the gradient with weight decay folded in: g + λ·p.
func (b *base) grad(p, g *tensor.Tensor) []float64 {
	if b.weightDecay == 0 {
		return g.Data()
	}
	out := make([]float64, g.NumElements())
	pd := p.Data()
	for i, v := range g.Data() {
		out[i] = v + b.weightDecay*pd[i]
	}
	return out
}

// slots returns n zero-initialised state tensors for the named parameter,
// creating them on first use.
func (b *base) slots(name string, shape tensor.Shape, n int) []*tensor.Tensor {
	s, ok := b.state[name]
	if !ok {
		s = make([]*tensor.Tensor, n)
		for i := range s {
			s[i] = tensor.Zeros(shape)
		}
		b.state[name] = s
	}
	return s
}
