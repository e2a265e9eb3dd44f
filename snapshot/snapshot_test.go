// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package snapshot_test

import (
	"bytes"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/born-ml/dnn/nn"
	"github.com/born-ml/dnn/snapshot"
	"github.com/born-ml/dnn/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func network(t *testing.T, seed uint64) *nn.Network {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	net, err := nn.NewNetwork([]nn.Layer{
		nn.NewAffine(3, 4, nil, rng),
		nn.NewBatchNorm(4),
		nn.NewAffine(4, 2, nil, rng),
	}, nn.NewSoftmaxCrossEntropy())
	require.NoError(t, err)
	return net
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.dnns")
	src, dst := network(t, 1), network(t, 2)

	saved, err := snapshot.Save(path, src, snapshot.Meta{Model: "mlp"})
	require.NoError(t, err)
	loaded, err := snapshot.Load(path, dst)
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, loaded.RunID)

	x := tensor.Ones(tensor.Shape{2, 3})
	p1, err := src.Predict(x)
	require.NoError(t, err)
	p2, err := dst.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, p1.Data(), p2.Data())
}

func TestRead_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	_, err := snapshot.Write(&buf, network(t, 1).StateDict(), snapshot.Meta{})
	require.NoError(t, err)

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0x01
	_, _, err = snapshot.Read(bytes.NewReader(raw))
	assert.ErrorIs(t, err, snapshot.ErrChecksumMismatch)
}
