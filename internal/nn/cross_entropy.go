package nn

import (
	"math"

	"github.com/born-ml/dnn/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// SoftmaxCrossEntropy fuses a softmax with the cross-entropy loss.
//
// Mathematical Formulation:
//
//	log_probs = LogSoftmax(logits)
//	Loss      = -(1/N) Σ_n Σ_c t[n,c] · log_probs[n,c]
//
// Gradient (Backward):
//
//	∂L/∂logits = (Softmax(logits) - t) / N
//
// Labels may be class indices with shape [batch] or one-hot (or soft)
// targets with shape [batch, classes]. The log-sum-exp trick keeps the loss
// finite for arbitrarily large logits.
//
// Usage:
//
//	loss := nn.NewSoftmaxCrossEntropy()
//	l, err := loss.Forward(logits, labels) // logits: [batch, classes]
//	dlogits, err := loss.Backward()
type SoftmaxCrossEntropy struct {
	probs  *tensor.Tensor
	target *tensor.Tensor
}

// NewSoftmaxCrossEntropy creates the fused softmax/cross-entropy loss.
func NewSoftmaxCrossEntropy() *SoftmaxCrossEntropy {
	return &SoftmaxCrossEntropy{}
}

// Name returns "softmax_cross_entropy".
func (s *SoftmaxCrossEntropy) Name() string { return "softmax_cross_entropy" }

// CheckInput requires one axis of class scores per sample.
func (s *SoftmaxCrossEntropy) CheckInput(in tensor.Shape) error {
	if len(in) != 1 {
		return shapeErr(s.Name(), nil, in, "logits must be [batch, classes]")
	}
	return nil
}

// Forward computes the mean cross-entropy over the batch.
func (s *SoftmaxCrossEntropy) Forward(x, labels *tensor.Tensor) (float64, error) {
	if x == nil || x.Rank() != 2 {
		return 0, shapeErr(s.Name(), nil, shapeOf(x), "logits must be [batch, classes]")
	}
	target, err := targetsFor(s.Name(), x, labels)
	if err != nil {
		return 0, err
	}

	n, classes := x.Dim(0), x.Dim(1)
	probs := tensor.New(x.Shape())
	logp := make([]float64, classes)
	total := 0.0
	for i := 0; i < n; i++ {
		logSoftmax(logp, x.Row(i))
		total -= floats.Dot(target.Row(i), logp)
		row := probs.Row(i)
		for c, lp := range logp {
			row[c] = math.Exp(lp)
		}
	}
	loss := total / float64(n)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return 0, &InstabilityError{Layer: s.Name(), Value: loss}
	}

	s.probs, s.target = probs, target
	return loss, nil
}

// Backward returns (softmax - t) / N.
func (s *SoftmaxCrossEntropy) Backward() (*tensor.Tensor, error) {
	if s.probs == nil {
		return nil, noCache(s.Name())
	}
	dx := tensor.Sub(s.probs, s.target)
	dx.ScaleInPlace(1 / float64(dx.Dim(0)))
	s.probs, s.target = nil, nil
	return dx, nil
}

// Predict returns the softmax probabilities of each row.
func (s *SoftmaxCrossEntropy) Predict(x *tensor.Tensor) (*tensor.Tensor, error) {
	if x == nil || x.Rank() != 2 {
		return nil, shapeErr(s.Name(), nil, shapeOf(x), "logits must be [batch, classes]")
	}
	out := tensor.New(x.Shape())
	for i := 0; i < x.Dim(0); i++ {
		row := out.Row(i)
		logSoftmax(row, x.Row(i))
		for c, lp := range row {
			row[c] = math.Exp(lp)
		}
	}
	return out, nil
}

// logSoftmax writes log(softmax(z)) into dst using the log-sum-exp trick:
//
//	log_softmax(z)_i = z_i - max(z) - log(Σ exp(z_j - max(z)))
func logSoftmax(dst, z []float64) {
	maxVal := floats.Max(z)
	sum := 0.0
	for _, v := range z {
		sum += math.Exp(v - maxVal)
	}
	logSum := math.Log(sum)
	for i, v := range z {
		dst[i] = v - maxVal - logSum
	}
}
