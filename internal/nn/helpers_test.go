package nn

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/require"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func fromSlice(t *testing.T, data []float64, shape tensor.Shape) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return x
}
