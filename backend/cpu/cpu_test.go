// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu_test

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/dnn/backend/cpu"
	"github.com/born-ml/dnn/nn"
	"github.com/born-ml/dnn/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convForward(t *testing.T) []float64 {
	t.Helper()
	conv := nn.NewConv2D(2, 3, 3, 3, 1, 1, nil, rand.New(rand.NewPCG(1, 2)))
	x := tensor.RandNormal(tensor.Shape{4, 2, 5, 5}, 0, 1, rand.New(rand.NewPCG(3, 4)))
	y, err := conv.Forward(x, nn.Train)
	require.NoError(t, err)
	return y.Data()
}

func TestSetWorkers(t *testing.T) {
	prev := cpu.SetWorkers(1)
	defer cpu.SetWorkers(prev)

	seq := convForward(t)
	assert.Equal(t, 1, cpu.SetWorkers(4))
	assert.Equal(t, seq, convForward(t))
}
