package train

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/dnn/internal/dataset"
	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/optim"
	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func twoClassData(t *testing.T, samples int, seed uint64) Dataset {
	t.Helper()
	x, y, err := dataset.Blobs(dataset.Config{Samples: samples, Classes: 2, Features: 2, Spread: 0.5, Radius: 3},
		rand.New(rand.NewPCG(seed, seed)))
	require.NoError(t, err)
	return Dataset{X: x, Y: y}
}

func twoLayerNet(t *testing.T, seed uint64) *nn.Network {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	net, err := nn.NewNetwork([]nn.Layer{
		nn.NewAffine(2, 16, nn.He, rng),
		nn.NewReLU(),
		nn.NewAffine(16, 2, nil, rng),
	}, nn.NewSoftmaxCrossEntropy(), nn.WithInputShape(tensor.Shape{2}))
	require.NoError(t, err)
	return net
}

func TestFit_SeparableTwoClass(t *testing.T) {
	data := twoClassData(t, 200, 1)
	net := twoLayerNet(t, 2)
	opt, err := optim.New(optim.Config{Name: "sgd", LR: 0.1})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Epochs = 30
	cfg.BatchSize = 16
	cfg.Seed = 3
	tr, err := New(net, opt, cfg, quietLogger())
	require.NoError(t, err)

	hist, err := tr.Fit(context.Background(), data, Dataset{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, hist.FinalTrainAcc(), 0.95)
	assert.Len(t, hist.EpochLoss, 30)
	assert.Len(t, hist.StepLoss, 30*13, "⌈200/16⌉ steps per epoch")
	assert.Less(t, hist.EpochLoss[29], hist.EpochLoss[0])
	assert.Empty(t, hist.TestAcc)
}

func TestFit_Reproducible(t *testing.T) {
	run := func() *History {
		data := twoClassData(t, 120, 4)
		train, test, err := Split(data, 0.25, rand.New(rand.NewPCG(5, 5)))
		require.NoError(t, err)

		net := twoLayerNet(t, 6)
		opt, err := optim.New(optim.Config{Name: "adam", LR: 0.01})
		require.NoError(t, err)

		cfg := DefaultConfig()
		cfg.Epochs = 5
		cfg.BatchSize = 8
		cfg.Seed = 7
		tr, err := New(net, opt, cfg, quietLogger())
		require.NoError(t, err)

		hist, err := tr.Fit(context.Background(), train, test)
		require.NoError(t, err)
		return hist
	}

	a, b := run(), run()
	assert.Equal(t, a.StepLoss, b.StepLoss)
	assert.Equal(t, a.TestLoss, b.TestLoss)
	assert.Len(t, a.TestAcc, 5)
}

func TestFit_EvalEvery(t *testing.T) {
	net := twoLayerNet(t, 1)
	opt := optim.NewSGD(optim.Config{LR: 0.05})
	cfg := Config{Epochs: 5, BatchSize: 32, EvalEvery: 2}
	tr, err := New(net, opt, cfg, quietLogger())
	require.NoError(t, err)

	hist, err := tr.Fit(context.Background(), twoClassData(t, 64, 2), Dataset{})
	require.NoError(t, err)
	// Epochs 2 and 4, plus the final epoch.
	assert.Equal(t, []int{2, 4, 5}, hist.Epochs)
}

// frozen never changes the parameters, so the test loss never improves.
type frozen struct{}

func (frozen) Update(_, _ map[string]*tensor.Tensor) error { return nil }
func (frozen) Name() string                                { return "frozen" }
func (frozen) LR() float64                                 { return 0 }
func (frozen) SetLR(float64)                               {}
func (frozen) Reset()                                      {}

func TestFit_ReshufflesEveryEpoch(t *testing.T) {
	data := twoClassData(t, 40, 3)
	run := func(cfg Config) *History {
		tr, err := New(twoLayerNet(t, 4), frozen{}, cfg, quietLogger())
		require.NoError(t, err)
		hist, err := tr.Fit(context.Background(), data, Dataset{})
		require.NoError(t, err)
		require.Len(t, hist.StepLoss, 8)
		return hist
	}

	// Frozen parameters make each step loss a function of the batch
	// composition alone.
	shuffled := run(Config{Epochs: 2, BatchSize: 10})
	assert.NotEqual(t, shuffled.StepLoss[:4], shuffled.StepLoss[4:])
	assert.InDelta(t, shuffled.EpochLoss[0], shuffled.EpochLoss[1], 1e-12)

	fixed := run(Config{Epochs: 2, BatchSize: 10, NoShuffle: true})
	assert.Equal(t, fixed.StepLoss[:4], fixed.StepLoss[4:])
}

func TestFit_EarlyStopping(t *testing.T) {
	data := twoClassData(t, 80, 8)
	train, test, err := Split(data, 0.5, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)

	net := twoLayerNet(t, 9)
	cfg := Config{Epochs: 20, BatchSize: 10, Patience: 2}
	tr, err := New(net, frozen{}, cfg, quietLogger())
	require.NoError(t, err)

	hist, err := tr.Fit(context.Background(), train, test)
	require.NoError(t, err)
	assert.True(t, hist.StoppedEarly)
	assert.Len(t, hist.EpochLoss, 3)
}

func TestFit_ContextCancelled(t *testing.T) {
	net := twoLayerNet(t, 1)
	tr, err := New(net, optim.NewSGD(optim.Config{}), DefaultConfig(), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hist, err := tr.Fit(ctx, twoClassData(t, 20, 1), Dataset{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, hist)
	assert.Empty(t, hist.StepLoss)
}

func TestFit_ShapeErrorAborts(t *testing.T) {
	net := twoLayerNet(t, 1)
	tr, err := New(net, optim.NewSGD(optim.Config{}), DefaultConfig(), quietLogger())
	require.NoError(t, err)

	bad := Dataset{X: tensor.Zeros(tensor.Shape{10, 3}), Y: tensor.Zeros(tensor.Shape{10})}
	before := net.StateDict()
	_, err = tr.Fit(context.Background(), bad, Dataset{})
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	for name, v := range net.Params() {
		assert.Equal(t, before[name].Data(), v.Data(), name)
	}
}

func TestNew_Validation(t *testing.T) {
	net := twoLayerNet(t, 1)
	_, err := New(net, optim.NewSGD(optim.Config{}), Config{Epochs: 0, BatchSize: 1}, nil)
	assert.Error(t, err)
	_, err = New(net, optim.NewSGD(optim.Config{}), Config{Epochs: 1, BatchSize: 0}, nil)
	assert.Error(t, err)
	_, err = New(nil, optim.NewSGD(optim.Config{}), DefaultConfig(), nil)
	assert.Error(t, err)
}

// infiniteGrad reports an infinite gradient for its parameter on every
// backward pass.
type infiniteGrad struct{ w *nn.Parameter }

func (l *infiniteGrad) Name() string { return "infinite_grad" }
func (l *infiniteGrad) OutputShape(in tensor.Shape) (tensor.Shape, error) {
	return in.Clone(), nil
}
func (l *infiniteGrad) Forward(x *tensor.Tensor, _ nn.Mode) (*tensor.Tensor, error) {
	return x, nil
}
func (l *infiniteGrad) Backward(dy *tensor.Tensor) (*tensor.Tensor, error) {
	l.w.SetGrad(tensor.Full(l.w.Value().Shape(), math.Inf(-1)))
	return dy, nil
}
func (l *infiniteGrad) Parameters() []*nn.Parameter { return []*nn.Parameter{l.w} }

func TestStep_NonFiniteGradientLeavesParameters(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 9))
	net, err := nn.NewNetwork([]nn.Layer{
		nn.NewAffine(2, 2, nn.He, rng),
		&infiniteGrad{w: nn.NewParameter("w", tensor.Ones(tensor.Shape{2}))},
	}, nn.NewSoftmaxCrossEntropy(), nn.WithInputShape(tensor.Shape{2}))
	require.NoError(t, err)
	opt, err := optim.New(optim.Config{Name: "momentum", LR: 0.1})
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Epochs = 1
	cfg.BatchSize = 8
	tr, err := New(net, opt, cfg, quietLogger())
	require.NoError(t, err)

	data := twoClassData(t, 8, 4)
	before := net.StateDict()

	_, err = tr.Step(data.Batch([]int{0, 1, 2, 3}))
	require.ErrorIs(t, err, nn.ErrNumericalInstability)
	for name, v := range net.StateDict() {
		assert.Equal(t, before[name].Data(), v.Data(), name)
	}

	_, err = tr.Fit(context.Background(), data, Dataset{})
	assert.ErrorIs(t, err, nn.ErrNumericalInstability)
	for name, v := range net.StateDict() {
		assert.Equal(t, before[name].Data(), v.Data(), name)
	}
}
