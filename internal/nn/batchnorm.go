package nn

import (
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// BatchNorm normalizes activations per feature.
//
// For [batch, features] inputs each feature column is normalized; for
// [batch, channels, height, width] inputs each channel is normalized over
// the batch and both spatial axes.
//
//	Train: x̂ = (x - μ_B) / sqrt(σ²_B + ε),  y = γ ⊙ x̂ + β
//	Infer: x̂ = (x - μ_run) / sqrt(σ²_run + ε)
//
// Running statistics are updated on every training forward pass:
//
//	μ_run  = momentum·μ_run  + (1-momentum)·μ_B
//	σ²_run = momentum·σ²_run + (1-momentum)·σ²_B
//
// Batch variance is the biased (divide by M) estimate.
//
// Reference: "Batch Normalization: Accelerating Deep Network Training by
// Reducing Internal Covariate Shift" (Ioffe & Szegedy, 2015).
type BatchNorm struct {
	features int
	momentum float64
	eps      float64

	gamma *Parameter // [features]
	beta  *Parameter // [features]

	runningMean *tensor.Tensor
	runningVar  *tensor.Tensor

	// Forward cache.
	xhat   *tensor.Tensor
	invStd []float64
	mode   Mode
}

// BatchNormOption configures a BatchNorm layer.
type BatchNormOption func(*BatchNorm)

// WithMomentum sets the running-statistics momentum (default 0.9).
func WithMomentum(m float64) BatchNormOption {
	return func(b *BatchNorm) { b.momentum = m }
}

// WithEpsilon sets the variance epsilon (default 1e-5).
func WithEpsilon(eps float64) BatchNormOption {
	return func(b *BatchNorm) { b.eps = eps }
}

// NewBatchNorm creates a batch normalization layer over the given number of
// features (or channels, for 4-D inputs).
//
// γ starts at 1, β at 0, the running mean at 0 and the running variance
// at 1.
func NewBatchNorm(features int, opts ...BatchNormOption) *BatchNorm {
	b := &BatchNorm{
		features:    features,
		momentum:    0.9,
		eps:         1e-5,
		gamma:       NewParameter("gamma", tensor.Ones(tensor.Shape{features})),
		beta:        NewParameter("beta", tensor.Zeros(tensor.Shape{features})),
		runningMean: tensor.Zeros(tensor.Shape{features}),
		runningVar:  tensor.Ones(tensor.Shape{features}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "batchnorm".
func (b *BatchNorm) Name() string { return "batchnorm" }

// RunningMean returns the running mean buffer.
func (b *BatchNorm) RunningMean() *tensor.Tensor { return b.runningMean }

// RunningVar returns the running variance buffer.
func (b *BatchNorm) RunningVar() *tensor.Tensor { return b.runningVar }

// Buffers implements Stateful.
func (b *BatchNorm) Buffers() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"running_mean": b.runningMean,
		"running_var":  b.runningVar,
	}
}

// OutputShape accepts [features] or [channels, height, width].
func (b *BatchNorm) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	if (len(in) != 1 && len(in) != 3) || in[0] != b.features {
		return nil, shapeErr(b.Name(), tensor.Shape{b.features}, in,
			"want [features] or [channels, height, width] with %d features", b.features)
	}
	return in.Clone(), nil
}

// layout returns the batch size and the spatial size per feature.
func (b *BatchNorm) layout(shape tensor.Shape) (n, spatial int) {
	n, spatial = shape[0], 1
	if len(shape) == 4 {
		spatial = shape[2] * shape[3]
	}
	return n, spatial
}

// Forward normalizes x with batch statistics in Train mode and running
// statistics in Infer mode.
func (b *BatchNorm) Forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error) {
	if _, err := checkBatched(b, x); err != nil {
		return nil, err
	}
	n, spatial := b.layout(x.Shape())
	count := float64(n * spatial)
	src := x.Data()

	mean := make([]float64, b.features)
	variance := make([]float64, b.features)
	if mode == Train {
		b.eachFeature(n, spatial, func(c, off int) { mean[c] += src[off] })
		for c := range mean {
			mean[c] /= count
		}
		b.eachFeature(n, spatial, func(c, off int) {
			d := src[off] - mean[c]
			variance[c] += d * d
		})
		for c := range variance {
			variance[c] /= count
		}

		rm, rv := b.runningMean.Data(), b.runningVar.Data()
		for c := range rm {
			rm[c] = b.momentum*rm[c] + (1-b.momentum)*mean[c]
			rv[c] = b.momentum*rv[c] + (1-b.momentum)*variance[c]
		}
	} else {
		copy(mean, b.runningMean.Data())
		copy(variance, b.runningVar.Data())
	}

	invStd := make([]float64, b.features)
	for c := range invStd {
		invStd[c] = 1 / math.Sqrt(variance[c]+b.eps)
	}

	xhat := tensor.New(x.Shape())
	y := tensor.New(x.Shape())
	xh, out := xhat.Data(), y.Data()
	gamma, beta := b.gamma.Value().Data(), b.beta.Value().Data()
	b.eachFeature(n, spatial, func(c, off int) {
		xh[off] = (src[off] - mean[c]) * invStd[c]
		out[off] = gamma[c]*xh[off] + beta[c]
	})

	b.xhat, b.invStd, b.mode = xhat, invStd, mode
	return y, nil
}

// Backward computes the gradients for the mode of the cached forward pass.
//
//	dγ = Σ dy ⊙ x̂
//	dβ = Σ dy
//
// Train mode (batch statistics depend on x), with dx̂ = dy ⊙ γ:
//
//	dx = (1/M) · (1/σ) · (M·dx̂ - Σ dx̂ - x̂ ⊙ Σ(dx̂ ⊙ x̂))
//
// Infer mode (running statistics are constants):
//
//	dx = dy ⊙ γ / sqrt(σ²_run + ε)
func (b *BatchNorm) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if b.xhat == nil {
		return nil, noCache(b.Name())
	}
	if err := checkGrad(b.Name(), dy, b.xhat.Shape()); err != nil {
		return nil, err
	}
	n, spatial := b.layout(dy.Shape())
	count := float64(n * spatial)
	g, xh := dy.Data(), b.xhat.Data()
	gamma := b.gamma.Value().Data()

	dgamma := tensor.New(tensor.Shape{b.features})
	dbeta := tensor.New(tensor.Shape{b.features})
	dg, db := dgamma.Data(), dbeta.Data()
	b.eachFeature(n, spatial, func(c, off int) {
		dg[c] += g[off] * xh[off]
		db[c] += g[off]
	})

	dx := tensor.New(dy.Shape())
	out := dx.Data()
	if b.mode == Train {
		// Σ dx̂ = γ·dβ and Σ dx̂ ⊙ x̂ = γ·dγ.
		b.eachFeature(n, spatial, func(c, off int) {
			dxhat := g[off] * gamma[c]
			out[off] = b.invStd[c] / count * (count*dxhat - gamma[c]*db[c] - xh[off]*gamma[c]*dg[c])
		})
	} else {
		b.eachFeature(n, spatial, func(c, off int) {
			out[off] = g[off] * gamma[c] * b.invStd[c]
		})
	}

	b.gamma.SetGrad(dgamma)
	b.beta.SetGrad(dbeta)
	b.xhat, b.invStd = nil, nil
	return dx, nil
}

// Parameters returns [gamma, beta].
func (b *BatchNorm) Parameters() []*Parameter {
	return []*Parameter{b.gamma, b.beta}
}

// eachFeature visits every element with its feature index and flat offset.
func (b *BatchNorm) eachFeature(n, spatial int, fn func(c, off int)) {
	off := 0
	for i := 0; i < n; i++ {
		for c := 0; c < b.features; c++ {
			for s := 0; s < spatial; s++ {
				fn(c, off)
				off++
			}
		}
	}
}
