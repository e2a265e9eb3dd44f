package tensor

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return New(shape)
}

// ZerosLike creates a zero tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return New(t.shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float64) *Tensor {
	t := New(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// RandNormal fills a new tensor with samples from N(mu, sigma²).
//
// The generator is explicit so that initialisation is reproducible and
// independent networks never share random state.
func RandNormal(shape Shape, mu, sigma float64, rng *rand.Rand) *Tensor {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}
	t := New(shape)
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// RandUniform fills a new tensor with samples from U[lo, hi).
func RandUniform(shape Shape, lo, hi float64, rng *rand.Rand) *Tensor {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: rng}
	t := New(shape)
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// RandBernoulli fills a new tensor with 0/1 samples where P(1) = p.
func RandBernoulli(shape Shape, p float64, rng *rand.Rand) *Tensor {
	t := New(shape)
	switch {
	case p <= 0:
		return t
	case p >= 1:
		return Full(shape, 1)
	}
	dist := distuv.Bernoulli{P: p, Src: rng}
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}
