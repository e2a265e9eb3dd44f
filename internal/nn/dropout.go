package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/tensor"
)

// Dropout randomly zeroes activations during training.
//
// Each element is kept with probability keepProb and scaled by 1/keepProb
// (inverted dropout), so the expected activation is unchanged and
// inference needs no rescaling:
//
//	Train: y = x ⊙ mask / keepProb,  mask ~ Bernoulli(keepProb)
//	Infer: y = x
//
// A keepProb of 1 makes the layer the identity; a keepProb of 0 zeroes
// every activation. The mask is drawn from the layer's own random source.
//
// Example:
//
//	drop := nn.NewDropout(0.8, rand.New(rand.NewPCG(seed, 0)))
type Dropout struct {
	keepProb float64
	rng      *rand.Rand
	mask     *tensor.Tensor
}

// NewDropout creates a dropout layer. It panics if keepProb is outside [0, 1].
func NewDropout(keepProb float64, rng *rand.Rand) *Dropout {
	if keepProb < 0 || keepProb > 1 {
		panic(fmt.Sprintf("dropout: keep probability %v outside [0, 1]", keepProb))
	}
	return &Dropout{keepProb: keepProb, rng: rng}
}

// Name returns "dropout".
func (d *Dropout) Name() string { return "dropout" }

// KeepProb returns the probability of keeping an activation.
func (d *Dropout) KeepProb() float64 { return d.keepProb }

// OutputShape returns the input shape unchanged.
func (d *Dropout) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}

// Forward applies the dropout mask in Train mode and is the identity in
// Infer mode.
func (d *Dropout) Forward(x *tensor.Tensor, mode Mode) (*tensor.Tensor, error) {
	if _, err := checkBatched(d, x); err != nil {
		return nil, err
	}
	if mode == Infer {
		d.mask = tensor.Ones(x.Shape())
		return x.Clone(), nil
	}

	mask := tensor.RandBernoulli(x.Shape(), d.keepProb, d.rng)
	if d.keepProb > 0 {
		mask.ScaleInPlace(1 / d.keepProb)
	}
	d.mask = mask
	return tensor.Mul(x, mask), nil
}

// Backward routes dy through the same mask used in Forward.
func (d *Dropout) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	if d.mask == nil {
		return nil, noCache(d.Name())
	}
	if err := checkGrad(d.Name(), dy, d.mask.Shape()); err != nil {
		return nil, err
	}
	dx := tensor.Mul(dy, d.mask)
	d.mask = nil
	return dx, nil
}

// Parameters returns nil.
func (d *Dropout) Parameters() []*Parameter { return nil }
