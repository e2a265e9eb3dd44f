package nn

import (
	"math"

	"github.com/born-ml/dnn/internal/tensor"
)

// SigmoidCrossEntropy fuses a sigmoid with the binomial cross-entropy loss.
// Every output unit is an independent yes/no prediction.
//
//	p    = σ(x)
//	Loss = -(1/N) Σ_n Σ_k t[n,k]·log p[n,k] + (1-t[n,k])·log(1-p[n,k])
//
// Gradient (Backward):
//
//	∂L/∂x = (σ(x) - t) / N
//
// Each term is evaluated as max(x, 0) - x·t + log(1 + exp(-|x|)), which
// stays finite for any logit. Targets have the shape of x; for a single
// output unit, [batch] labels are also accepted.
type SigmoidCrossEntropy struct {
	probs  *tensor.Tensor
	target *tensor.Tensor
}

// NewSigmoidCrossEntropy creates the binomial cross-entropy loss.
func NewSigmoidCrossEntropy() *SigmoidCrossEntropy {
	return &SigmoidCrossEntropy{}
}

// Name returns "sigmoid_cross_entropy".
func (s *SigmoidCrossEntropy) Name() string { return "sigmoid_cross_entropy" }

// CheckInput requires one axis of logits per sample.
func (s *SigmoidCrossEntropy) CheckInput(in tensor.Shape) error {
	if len(in) != 1 {
		return shapeErr(s.Name(), nil, in, "logits must be [batch, units]")
	}
	return nil
}

// Forward computes the mean binomial cross-entropy over the batch.
func (s *SigmoidCrossEntropy) Forward(x, labels *tensor.Tensor) (float64, error) {
	if x == nil || x.Rank() != 2 {
		return 0, shapeErr(s.Name(), nil, shapeOf(x), "logits must be [batch, units]")
	}
	if labels == nil {
		return 0, shapeErr(s.Name(), x.Shape(), nil, "nil labels")
	}
	target := labels
	if labels.Rank() == 1 && x.Dim(1) == 1 && labels.Dim(0) == x.Dim(0) {
		target = labels.Reshape(x.Dim(0), 1)
	}
	if !target.Shape().Equal(x.Shape()) {
		return 0, shapeErr(s.Name(), x.Shape(), labels.Shape(), "targets must match the logits")
	}

	probs := tensor.New(x.Shape())
	p, t := probs.Data(), target.Data()
	total := 0.0
	for i, v := range x.Data() {
		total += math.Max(v, 0) - v*t[i] + math.Log1p(math.Exp(-math.Abs(v)))
		p[i] = sigmoid(v)
	}
	loss := total / float64(x.Dim(0))
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, &InstabilityError{Layer: s.Name(), Value: loss}
	}

	s.probs, s.target = probs, target
	return loss, nil
}

// Backward returns (σ(x) - t) / N.
func (s *SigmoidCrossEntropy) Backward() (*tensor.Tensor, error) {
	if s.probs == nil {
		return nil, noCache(s.Name())
	}
	dx := tensor.Sub(s.probs, s.target)
	dx.ScaleInPlace(1 / float64(dx.Dim(0)))
	s.probs, s.target = nil, nil
	return dx, nil
}

// Predict returns σ(x), the probability of each unit being on.
func (s *SigmoidCrossEntropy) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 2 {
		return nil, shapeErr(s.Name(), nil, shapeOf(x), "logits must be [batch, units]")
	}
	return x.Apply(sigmoid), nil
}
