package optim

import (
	"math"
	"testing"

	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(t *testing.T, data ...float64) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape{len(data)})
	require.NoError(t, err)
	return x
}

func allOptimizers(t *testing.T) []Optimizer {
	t.Helper()
	var out []Optimizer
	for _, name := range Names() {
		opt, err := New(Config{Name: name, LR: 0.1})
		require.NoError(t, err)
		out = append(out, opt)
	}
	return out
}

func TestNew(t *testing.T) {
	for _, name := range Names() {
		opt, err := New(Config{Name: name})
		require.NoError(t, err)
		assert.Equal(t, name, opt.Name())
		assert.Greater(t, opt.LR(), 0.0)
	}

	_, err := New(Config{Name: "lbfgs"})
	assert.ErrorIs(t, err, ErrUnknownOptimizer)

	_, err = New(Config{Name: "sgd", LR: -1})
	assert.Error(t, err)
}

func TestNew_ZeroSelectsDefaults(t *testing.T) {
	want := map[string]float64{
		"sgd": 0.01, "momentum": 0.01, "adagrad": 0.01,
		"rmsprop": 0.01, "adadelta": 1, "adam": 0.001,
	}
	for name, lr := range want {
		opt, err := New(Config{Name: name})
		require.NoError(t, err)
		assert.Equal(t, lr, opt.LR(), name)
	}

	assert.Equal(t, 0.9, NewMomentum(Config{}).momentum)
	assert.Equal(t, 0.5, NewMomentum(Config{Momentum: 0.5}).momentum)
	assert.Equal(t, 0.2, NewSGD(Config{LR: 0.2}).LR())
}

func TestZeroGradientLeavesParametersUnchanged(t *testing.T) {
	for _, opt := range allOptimizers(t) {
		t.Run(opt.Name(), func(t *testing.T) {
			params := map[string]*tensor.Tensor{"w": vec(t, 1, -2, 3), "b": vec(t, 0.5)}
			grads := map[string]*tensor.Tensor{"w": vec(t, 0, 0, 0), "b": vec(t, 0)}

			for i := 0; i < 3; i++ {
				require.NoError(t, opt.Update(params, grads))
			}
			assert.Equal(t, []float64{1, -2, 3}, params["w"].Data())
			assert.Equal(t, []float64{0.5}, params["b"].Data())
		})
	}
}

func TestUpdateMovesAgainstGradient(t *testing.T) {
	for _, opt := range allOptimizers(t) {
		t.Run(opt.Name(), func(t *testing.T) {
			params := map[string]*tensor.Tensor{"w": vec(t, 1, 1)}
			grads := map[string]*tensor.Tensor{"w": vec(t, 2, -2)}

			require.NoError(t, opt.Update(params, grads))
			assert.Less(t, params["w"].Data()[0], 1.0)
			assert.Greater(t, params["w"].Data()[1], 1.0)
		})
	}
}

func TestUpdateValidatesBeforeMutating(t *testing.T) {
	for _, opt := range allOptimizers(t) {
		t.Run(opt.Name(), func(t *testing.T) {
			params := map[string]*tensor.Tensor{"a": vec(t, 1), "b": vec(t, 1, 1)}

			err := opt.Update(params, map[string]*tensor.Tensor{"a": vec(t, 1), "b": vec(t, 1)})
			assert.ErrorIs(t, err, ErrGradientShape)

			err = opt.Update(params, map[string]*tensor.Tensor{"a": vec(t, 1)})
			assert.ErrorIs(t, err, ErrGradientShape, "missing gradient")

			err = opt.Update(params, map[string]*tensor.Tensor{"a": vec(t, 1), "b": vec(t, 1, 1), "c": vec(t, 1)})
			assert.ErrorIs(t, err, ErrGradientShape, "unknown parameter")

			assert.Equal(t, []float64{1}, params["a"].Data())
			assert.Equal(t, []float64{1, 1}, params["b"].Data())
		})
	}
}

func TestSGD_KnownUpdate(t *testing.T) {
	opt := NewSGD(Config{LR: 0.5})
	params := map[string]*tensor.Tensor{"w": vec(t, 1, 2)}
	require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"w": vec(t, 2, -4)}))
	assert.Equal(t, []float64{0, 4}, params["w"].Data())
}

func TestSGD_WeightDecay(t *testing.T) {
	opt := NewSGD(Config{LR: 0.1, WeightDecay: 0.5})
	params := map[string]*tensor.Tensor{"w": vec(t, 2)}
	require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"w": vec(t, 0)}))
	// g' = 0 + 0.5*2 = 1
	assert.InDelta(t, 1.9, params["w"].Data()[0], 1e-12)
}

func TestMomentum_KnownUpdates(t *testing.T) {
	opt := NewMomentum(Config{LR: 0.1, Momentum: 0.9})
	params := map[string]*tensor.Tensor{"w": vec(t, 0)}
	grads := map[string]*tensor.Tensor{"w": vec(t, 1)}

	require.NoError(t, opt.Update(params, grads))
	assert.InDelta(t, -0.1, params["w"].Data()[0], 1e-12) // v = -0.1

	require.NoError(t, opt.Update(params, grads))
	assert.InDelta(t, -0.29, params["w"].Data()[0], 1e-12) // v = -0.19
}

func TestMomentum_SameShapeParametersKeepSeparateState(t *testing.T) {
	opt := NewMomentum(Config{LR: 1, Momentum: 0.5})
	params := map[string]*tensor.Tensor{"a": vec(t, 0), "b": vec(t, 0)}

	require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"a": vec(t, 1), "b": vec(t, 0)}))
	require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"a": vec(t, 0), "b": vec(t, 0)}))

	assert.InDelta(t, -1.5, params["a"].Data()[0], 1e-12)
	assert.Equal(t, 0.0, params["b"].Data()[0], "b never saw a gradient")
}

func TestAdaGrad_KnownUpdate(t *testing.T) {
	opt := NewAdaGrad(Config{LR: 0.1, Eps: 1e-12})
	params := map[string]*tensor.Tensor{"w": vec(t, 1)}
	require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"w": vec(t, 3)}))
	// h = 9; step = 0.1 * 3 / 3
	assert.InDelta(t, 0.9, params["w"].Data()[0], 1e-9)
}

func TestAdam_FirstStepIsLR(t *testing.T) {
	opt := NewAdam(Config{LR: 0.01})
	params := map[string]*tensor.Tensor{"w": vec(t, 1, 1)}
	require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"w": vec(t, 5, -0.2)}))

	// With bias correction, the first step is lr·sign(g).
	assert.InDelta(t, 0.99, params["w"].Data()[0], 1e-6)
	assert.InDelta(t, 1.01, params["w"].Data()[1], 1e-6)
	assert.Equal(t, 1, opt.Step())

	opt.Reset()
	assert.Equal(t, 0, opt.Step())
}

func TestAdaDelta_Converges(t *testing.T) {
	opt := NewAdaDelta(Config{})
	params := map[string]*tensor.Tensor{"w": vec(t, 3)}
	// Minimise ½w².
	for i := 0; i < 2000; i++ {
		g := vec(t, params["w"].Data()[0])
		require.NoError(t, opt.Update(params, map[string]*tensor.Tensor{"w": g}))
	}
	assert.Less(t, math.Abs(params["w"].Data()[0]), 3.0)
}

func TestSetLR(t *testing.T) {
	opt := NewSGD(Config{LR: 1})
	opt.SetLR(0.25)
	assert.Equal(t, 0.25, opt.LR())
}
