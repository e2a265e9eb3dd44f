package nn

import (
	"math"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/tensor"
)

// Initializer produces an initial weight tensor.
//
// fanIn and fanOut are the number of inputs and outputs feeding one unit
// (for Conv2D: C*KH*KW and F*KH*KW).
type Initializer func(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Suited to sigmoid and tanh activations.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.RandUniform(shape, -bound, bound, rng)
}

// He (Kaiming) initialization for weights.
//
// Draws from N(0, 2/fan_in). Suited to ReLU activations.
func He(fanIn, _ int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	return tensor.RandNormal(shape, 0, math.Sqrt(2.0/float64(fanIn)), rng)
}

// Normal returns an initializer drawing from N(0, std²).
func Normal(std float64) Initializer {
	return func(_, _ int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
		return tensor.RandNormal(shape, 0, std, rng)
	}
}

// InitializerByName maps "xavier", "he" and "normal" to an initializer.
// The std argument is used by "normal" only. It returns nil for unknown
// names.
func InitializerByName(name string, std float64) Initializer {
	switch name {
	case "", "xavier":
		return Xavier
	case "he":
		return He
	case "normal":
		if std <= 0 {
			std = 0.01
		}
		return Normal(std)
	}
	return nil
}
