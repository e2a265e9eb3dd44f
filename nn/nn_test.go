// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/dnn/nn"
	"github.com/born-ml/dnn/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayerInterface verifies that every public layer satisfies nn.Layer.
func TestLayerInterface(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	layers := map[string]nn.Layer{
		"affine":    nn.NewAffine(4, 2, nil, rng),
		"conv2d":    nn.NewConv2D(1, 2, 3, 3, 1, 1, nn.Normal(0.1), rng),
		"maxpool2d": nn.NewMaxPool2D(2, 2, 0),
		"avgpool2d": nn.NewAvgPool2D(2, 2, 0),
		"batchnorm": nn.NewBatchNorm(4, nn.WithMomentum(0.8), nn.WithEpsilon(1e-3)),
		"dropout":   nn.NewDropout(0.5, rng),
		"flatten":   nn.NewFlatten(),
		"relu":      nn.NewReLU(),
		"sigmoid":   nn.NewSigmoid(),
		"tanh":      nn.NewTanh(),
		"elu":       nn.NewELU(0),
		"srrelu":    nn.NewSRReLU(),
	}
	for name, l := range layers {
		assert.Equal(t, name, l.Name())
	}
	_, ok := layers["batchnorm"].(nn.Stateful)
	assert.True(t, ok)
}

func TestNetworkShapeError(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := nn.NewNetwork([]nn.Layer{
		nn.NewAffine(4, 3, nn.Xavier, rng),
		nn.NewAffine(2, 1, nn.Xavier, rng),
	}, nn.NewMeanSquaredError(), nn.WithInputShape(tensor.Shape{4}))
	require.ErrorIs(t, err, nn.ErrShapeMismatch)

	var se *nn.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "affine", se.Layer)
}

func TestBackwardWithoutForward(t *testing.T) {
	net, err := nn.NewNetwork([]nn.Layer{nn.NewReLU()}, nn.NewMeanSquaredError(), nn.WithGradientAccumulation())
	require.NoError(t, err)
	assert.ErrorIs(t, net.Backward(), nn.ErrNoForwardCache)
	assert.Equal(t, "infer", nn.Infer.String())
}
