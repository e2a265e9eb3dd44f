package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/optim"
	"github.com/born-ml/dnn/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mlpYAML = `
seed: 3
layers:
  - type: affine
    units: 8
    init: he
  - type: batchnorm
  - type: relu
  - type: dropout
  - type: affine
    units: 3
optimizer:
  name: adam
  lr: 0.01
trainer:
  epochs: 5
  batch_size: 16
data:
  samples: 90
  classes: 3
  features: 4
test_ratio: 0.2
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(mlpYAML))
	require.NoError(t, err)

	assert.Equal(t, []int{4}, cfg.InputShape, "input shape follows data.features")
	assert.Equal(t, "softmax_cross_entropy", cfg.Loss)
	assert.Equal(t, 0.5, cfg.Layers[3].KeepProb)
	assert.Equal(t, uint64(3), cfg.Trainer.Seed)
	assert.Equal(t, 1, cfg.Trainer.EvalEvery)
	assert.Equal(t, 0.01, cfg.Optimizer.LR)
	assert.False(t, cfg.Trainer.NoShuffle, "epochs reshuffle unless disabled")

	cfg, err = Parse([]byte("layers: [{type: affine, units: 2}]\ntrainer: {epochs: 2, batch_size: 4, no_shuffle: true}"))
	require.NoError(t, err)
	assert.True(t, cfg.Trainer.NoShuffle)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mlpYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Layers, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Examples(t *testing.T) {
	for _, name := range []string{"blobs.yaml", "conv.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(filepath.Join("..", "..", "configs", name))
			require.NoError(t, err)
			_, _, err = Build(cfg)
			require.NoError(t, err)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no layers", "trainer: {epochs: 1, batch_size: 1}", "at least one layer"},
		{"unknown key", "bogus: 1\nlayers: [{type: relu}]\ntrainer: {epochs: 1, batch_size: 1}", "bogus"},
		{"unknown layer", "layers: [{type: lstm}]\ntrainer: {epochs: 1, batch_size: 1}", `unknown layer type "lstm"`},
		{"affine units", "layers: [{type: affine}]\ntrainer: {epochs: 1, batch_size: 1}", "units must be > 0"},
		{"keep prob", "layers: [{type: dropout, keep_prob: 1.5}]\ntrainer: {epochs: 1, batch_size: 1}", "keep_prob"},
		{"init", "layers: [{type: affine, units: 2, init: orthogonal}]\ntrainer: {epochs: 1, batch_size: 1}", "unknown init"},
		{"loss", "layers: [{type: relu}]\nloss: hinge\ntrainer: {epochs: 1, batch_size: 1}", `unknown loss "hinge"`},
		{"epochs", "layers: [{type: relu}]\ntrainer: {batch_size: 1}", "epochs must be > 0"},
		{"test ratio", "layers: [{type: relu}]\ntrainer: {epochs: 1, batch_size: 1}\ntest_ratio: 1", "test_ratio"},
		{"pool kernel", "layers: [{type: maxpool2d}]\ntrainer: {epochs: 1, batch_size: 1}", "kernel must be > 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Parse([]byte("layers: [{type: relu}]\noptimizer: {name: lbfgs}\ntrainer: {epochs: 1, batch_size: 1}"))
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
}

func TestApplyOverrides(t *testing.T) {
	cfg, err := Parse([]byte(mlpYAML))
	require.NoError(t, err)

	cfg.ApplyOverrides(Overrides{Epochs: 9, Seed: 11, Snapshot: "out.dnns"})
	assert.Equal(t, 9, cfg.Trainer.Epochs)
	assert.Equal(t, 16, cfg.Trainer.BatchSize, "zero override keeps the file value")
	assert.Equal(t, uint64(11), cfg.Seed)
	assert.Equal(t, uint64(11), cfg.Trainer.Seed)
	assert.Equal(t, "out.dnns", cfg.Snapshot)
}

func TestBuild(t *testing.T) {
	cfg, err := Parse([]byte(mlpYAML))
	require.NoError(t, err)

	net, opt, err := Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, "adam", opt.Name())
	assert.Len(t, net.Layers(), 5)
	assert.IsType(t, &nn.SoftmaxCrossEntropy{}, net.LossLayer())

	params := net.Params()
	assert.Equal(t, tensor.Shape{4, 8}, params["0.weight"].Shape())
	assert.Equal(t, tensor.Shape{8}, params["1.gamma"].Shape())
	assert.Equal(t, tensor.Shape{8, 3}, params["4.weight"].Shape())

	out, err := net.OutputShape(tensor.Shape{4})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3}, out)
}

func TestBuild_Deterministic(t *testing.T) {
	build := func() map[string]*tensor.Tensor {
		cfg, err := Parse([]byte(mlpYAML))
		require.NoError(t, err)
		net, _, err := Build(cfg)
		require.NoError(t, err)
		return net.StateDict()
	}
	a, b := build(), build()
	for name := range a {
		assert.Equal(t, a[name].Data(), b[name].Data(), name)
	}
}

func TestBuild_Conv(t *testing.T) {
	cfg, err := Parse([]byte(`
input_shape: [1, 6, 6]
layers:
  - {type: conv2d, filters: 2, kernel: 3}
  - {type: batchnorm}
  - {type: elu}
  - {type: avgpool2d, kernel: 2}
  - {type: flatten}
  - {type: affine, units: 1}
loss: mse
trainer: {epochs: 1, batch_size: 4}
`))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Layers[0].Stride)
	assert.Equal(t, 2, cfg.Layers[3].Stride)

	net, _, err := Build(cfg)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 1, 3, 3}, net.Params()["0.weight"].Shape())
	assert.Equal(t, tensor.Shape{8, 1}, net.Params()["5.weight"].Shape())
}

func TestBuild_Binary(t *testing.T) {
	cfg, err := Parse([]byte(`
input_shape: [2]
layers:
  - {type: affine, units: 4}
  - {type: srrelu}
  - {type: affine, units: 1}
loss: sigmoid_cross_entropy
`))
	require.NoError(t, err)

	net, _, err := Build(cfg)
	require.NoError(t, err)
	assert.IsType(t, &nn.SRReLU{}, net.Layers()[1])
	assert.IsType(t, &nn.SigmoidCrossEntropy{}, net.LossLayer())
}

func TestBuild_ShapeError(t *testing.T) {
	cfg, err := Parse([]byte(`
input_shape: [1, 5, 5]
layers:
  - {type: maxpool2d, kernel: 2}
trainer: {epochs: 1, batch_size: 4}
`))
	require.NoError(t, err)
	_, _, err = Build(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	assert.Contains(t, err.Error(), "layers[0]")
}
