package nn

import (
	"testing"

	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropout_KeepAllIsIdentity(t *testing.T) {
	d := NewDropout(1, newRNG(1))
	x := tensor.RandNormal(tensor.Shape{4, 8}, 0, 1, newRNG(2))

	y, err := d.Forward(x, Train)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), y.Data())

	dy := tensor.Ones(x.Shape())
	dx, err := d.Backward(dy)
	require.NoError(t, err)
	assert.Equal(t, dy.Data(), dx.Data())
}

func TestDropout_KeepNoneZeroes(t *testing.T) {
	d := NewDropout(0, newRNG(1))
	x := tensor.Ones(tensor.Shape{3, 5})

	y, err := d.Forward(x, Train)
	require.NoError(t, err)
	assert.Equal(t, 0.0, y.Sum())

	dx, err := d.Backward(tensor.Ones(x.Shape()))
	require.NoError(t, err)
	assert.Equal(t, 0.0, dx.Sum())
}

func TestDropout_InferIsIdentity(t *testing.T) {
	d := NewDropout(0.3, newRNG(1))
	x := tensor.RandNormal(tensor.Shape{4, 8}, 0, 1, newRNG(2))

	y, err := d.Forward(x, Infer)
	require.NoError(t, err)
	assert.Equal(t, x.Data(), y.Data())
}

func TestDropout_InvertedScaling(t *testing.T) {
	d := NewDropout(0.5, newRNG(3))
	x := tensor.Ones(tensor.Shape{100, 100})

	y, err := d.Forward(x, Train)
	require.NoError(t, err)
	for _, v := range y.Data() {
		assert.True(t, v == 0 || v == 2, "got %v", v)
	}
	// E[y] = x.
	assert.InDelta(t, 1.0, y.Sum()/float64(y.NumElements()), 0.05)

	// Backward uses the same mask.
	dx, err := d.Backward(tensor.Ones(x.Shape()))
	require.NoError(t, err)
	assert.Equal(t, y.Data(), dx.Data())
}

func TestDropout_InvalidKeepProb(t *testing.T) {
	assert.Panics(t, func() { NewDropout(1.5, newRNG(1)) })
	assert.Panics(t, func() { NewDropout(-0.1, newRNG(1)) })
}
