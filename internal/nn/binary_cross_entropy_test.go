package nn

import (
	"math"
	"testing"

	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigmoidCrossEntropy_Value(t *testing.T) {
	loss := NewSigmoidCrossEntropy()
	assert.Equal(t, "sigmoid_cross_entropy", loss.Name())

	x := fromSlice(t, []float64{0, 2, -1, 0.5}, tensor.Shape{2, 2})
	target := fromSlice(t, []float64{1, 0, 0, 1}, tensor.Shape{2, 2})

	l, err := loss.Forward(x, target)
	require.NoError(t, err)

	want := 0.0
	for i, v := range x.Data() {
		p := 1 / (1 + math.Exp(-v))
		tv := target.Data()[i]
		want -= tv*math.Log(p) + (1-tv)*math.Log(1-p)
	}
	assert.InDelta(t, want/2, l, 1e-12)

	dx, err := loss.Backward()
	require.NoError(t, err)
	for i, v := range x.Data() {
		p := 1 / (1 + math.Exp(-v))
		assert.InDelta(t, (p-target.Data()[i])/2, dx.Data()[i], 1e-12)
	}
	_, err = loss.Backward()
	assert.ErrorIs(t, err, ErrNoForwardCache)
}

func TestSigmoidCrossEntropy_LargeLogitsStayFinite(t *testing.T) {
	loss := NewSigmoidCrossEntropy()
	x := fromSlice(t, []float64{1000, -1000}, tensor.Shape{2, 1})
	labels := fromSlice(t, []float64{0, 0}, tensor.Shape{2})

	l, err := loss.Forward(x, labels)
	require.NoError(t, err)
	assert.InDelta(t, 500, l, 1e-9)

	dx, err := loss.Backward()
	require.NoError(t, err)
	assert.True(t, dx.AllFinite())
	assert.InDelta(t, 0.5, dx.Data()[0], 1e-12)
}

func TestSigmoidCrossEntropy_Errors(t *testing.T) {
	loss := NewSigmoidCrossEntropy()
	_, err := loss.Forward(tensor.Zeros(tensor.Shape{4}), tensor.Zeros(tensor.Shape{4}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = loss.Forward(tensor.Zeros(tensor.Shape{4, 2}), tensor.Zeros(tensor.Shape{4}))
	assert.ErrorIs(t, err, ErrShapeMismatch, "[batch] labels need a single output unit")
	_, err = loss.Forward(tensor.Zeros(tensor.Shape{4, 1}), nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.ErrorIs(t, loss.CheckInput(tensor.Shape{2, 3}), ErrShapeMismatch)
}

func TestNetwork_BinaryAccuracy(t *testing.T) {
	rng := newRNG(3)
	net, err := NewNetwork([]Layer{NewAffine(2, 1, nil, rng)}, NewSigmoidCrossEntropy())
	require.NoError(t, err)
	// Zero the weights and push the bias positive: every sample predicts 1.
	for _, p := range net.Parameters() {
		p.Value().Fill(0)
	}
	net.Params()["0.bias"].Fill(3)

	x := tensor.Zeros(tensor.Shape{4, 2})
	probs, err := net.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4, 1}, probs.Shape())

	acc, err := net.Accuracy(x, fromSlice(t, []float64{1, 1, 0, 1}, tensor.Shape{4}))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	_, err = net.Accuracy(x, tensor.Zeros(tensor.Shape{3}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
