package optim

import (
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam combines ideas from RMSprop and momentum:
//   - Maintains exponential moving averages of gradients (first moment)
//   - Maintains exponential moving averages of squared gradients (second moment)
//   - Applies bias correction to compensate for initialization at zero
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// The step counter t is shared by all parameters and advances once per
// Update.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
//
// Example:
//
//	opt := optim.NewAdam(optim.Config{LR: 0.001})
//	grads, _, _ := net.Gradient(x, y)
//	err := opt.Update(net.Params(), grads)
type Adam struct {
	base
	beta1 float64
	beta2 float64
	eps   float64
	t     int
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(cfg Config) *Adam {
	return &Adam{
		base:  newBase("adam", cfg.LR, 0.001, cfg.WeightDecay),
		beta1: orDefault(cfg.Beta1, 0.9),
		beta2: orDefault(cfg.Beta2, 0.999),
		eps:   orDefault(cfg.Eps, 1e-8),
	}
}

// Step returns the number of updates applied so far.
func (a *Adam) Step() int { return a.t }

// Reset discards the moment estimates and the step counter.
func (a *Adam) Reset() {
	a.base.Reset()
	a.t = 0
}

// Update performs a single optimization step.
func (a *Adam) Update(params, grads map[string]*tensor.Tensor) error {
	names, err := a.prepare(params, grads)
	if err != nil {
		return err
	}

	a.t++
	biasCorrection1 := 1 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, name := range names {
		p := params[name]
		g := a.grad(p, grads[name])
		st := a.slots(name, p.Shape(), 2)
		m, v := st[0].Data(), st[1].Data()
		pd := p.Data()
		for i, gi := range g {
			m[i] = a.beta1*m[i] + (1-a.beta1)*gi
			v[i] = a.beta2*v[i] + (1-a.beta2)*gi*gi
			mHat := m[i] / biasCorrection1
			vHat := v[i] / biasCorrection2
			pd[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
	return nil
}
