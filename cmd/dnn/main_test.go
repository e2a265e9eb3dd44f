package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/dnn/internal/config"
	"github.com/born-ml/dnn/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runYAML = `
seed: 5
layers:
  - {type: affine, units: 8}
  - {type: tanh}
  - {type: affine, units: 2}
optimizer: {name: sgd, lr: 0.1}
trainer: {epochs: 3, batch_size: 16}
data: {kind: blobs, samples: 80, classes: 2}
test_ratio: 0.25
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out, &out))
	assert.Equal(t, "dnn "+version+"\n", out.String())
}

func TestRun_UnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"serve"}, &out, &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage: dnn")

	require.Error(t, run(context.Background(), nil, &out, &out))
}

func TestRun_Train(t *testing.T) {
	cfgPath := writeConfig(t, runYAML)
	snapPath := filepath.Join(t.TempDir(), "out.dnns")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(),
		[]string{"train", "-config", cfgPath, "-epochs", "2", "-snapshot", snapPath},
		&stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.Contains(t, stdout.String(), "epochs=2")
	assert.Contains(t, stdout.String(), "test_acc=")
	assert.Contains(t, stderr.String(), "msg=epoch")

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	net, _, err := config.Build(cfg)
	require.NoError(t, err)
	header, err := snapshot.Load(snapPath, net)
	require.NoError(t, err)
	assert.Equal(t, "2", header.Metadata["epochs"])
	assert.Equal(t, "sgd", header.Metadata["optimizer"])
}

func TestRun_TrainMSEImageInput(t *testing.T) {
	cfgPath := writeConfig(t, `
seed: 1
input_shape: [1, 2, 2]
layers:
  - {type: conv2d, filters: 2, kernel: 2}
  - {type: flatten}
  - {type: affine, units: 2}
loss: mse
trainer: {epochs: 1, batch_size: 8}
data: {kind: xor, samples: 32, features: 4}
`)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"train", "-config", cfgPath}, &stdout, &stderr), stderr.String())
	assert.Contains(t, stdout.String(), "epochs=1")
	assert.NotContains(t, stdout.String(), "test_acc")
}

func TestRun_TrainErrors(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"train", "-config", filepath.Join(t.TempDir(), "none.yaml")}, &out, &out)
	assert.ErrorIs(t, err, os.ErrNotExist)

	mismatch := writeConfig(t, `
input_shape: [3]
layers: [{type: affine, units: 2}]
trainer: {epochs: 1, batch_size: 4}
data: {samples: 10, features: 2}
`)
	err = run(context.Background(), []string{"train", "-config", mismatch}, &out, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs 3 features")

	err = run(context.Background(), []string{"train", "-bogus"}, &out, &out)
	assert.Error(t, err)
}

func TestRun_TrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := run(ctx, []string{"train", "-config", writeConfig(t, runYAML)}, &out, &out)
	assert.ErrorIs(t, err, context.Canceled)
}
