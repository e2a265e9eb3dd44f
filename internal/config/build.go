package config

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/optim"
	"github.com/born-ml/dnn/internal/tensor"
)

// Build assembles the declared network and optimizer. Weights and dropout
// masks draw from a generator seeded with cfg.Seed, so equal configs build
// equal networks.
func Build(cfg *Config) (*nn.Network, optim.Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	shape := tensor.Shape(cfg.InputShape).Clone()
	layers := make([]nn.Layer, 0, len(cfg.Layers))
	for i, lc := range cfg.Layers {
		layer, err := newLayer(lc, shape, rng)
		if err != nil {
			return nil, nil, fmt.Errorf("layers[%d]: %w", i, err)
		}
		out, err := layer.OutputShape(shape)
		if err != nil {
			return nil, nil, fmt.Errorf("layers[%d]: %w", i, err)
		}
		layers = append(layers, layer)
		shape = out
	}

	var loss nn.LossLayer
	switch cfg.Loss {
	case "mse":
		loss = nn.NewMeanSquaredError()
	case "sigmoid_cross_entropy":
		loss = nn.NewSigmoidCrossEntropy()
	default:
		loss = nn.NewSoftmaxCrossEntropy()
	}

	net, err := nn.NewNetwork(layers, loss, nn.WithInputShape(tensor.Shape(cfg.InputShape)))
	if err != nil {
		return nil, nil, err
	}
	opt, err := optim.New(cfg.Optimizer)
	if err != nil {
		return nil, nil, err
	}
	return net, opt, nil
}

// newLayer constructs lc for a per-sample input shape in.
func newLayer(lc LayerConfig, in tensor.Shape, rng *rand.Rand) (nn.Layer, error) {
	init := nn.InitializerByName(lc.Init, lc.Std)
	switch lc.Type {
	case "affine":
		return nn.NewAffine(in.NumElements(), lc.Units, init, rng), nil
	case "relu":
		return nn.NewReLU(), nil
	case "sigmoid":
		return nn.NewSigmoid(), nil
	case "tanh":
		return nn.NewTanh(), nil
	case "elu":
		return nn.NewELU(lc.Alpha), nil
	case "srrelu":
		return nn.NewSRReLU(), nil
	case "dropout":
		return nn.NewDropout(lc.KeepProb, rng), nil
	case "flatten":
		return nn.NewFlatten(), nil
	case "batchnorm":
		if len(in) != 1 && len(in) != 3 {
			return nil, fmt.Errorf("batchnorm: needs [features] or [channels, h, w] input, got %v", in)
		}
		var opts []nn.BatchNormOption
		if lc.Momentum != 0 {
			opts = append(opts, nn.WithMomentum(lc.Momentum))
		}
		if lc.Epsilon != 0 {
			opts = append(opts, nn.WithEpsilon(lc.Epsilon))
		}
		return nn.NewBatchNorm(in[0], opts...), nil
	case "conv2d":
		if len(in) != 3 {
			return nil, fmt.Errorf("conv2d: needs [channels, h, w] input, got %v", in)
		}
		return nn.NewConv2D(in[0], lc.Filters, lc.Kernel, lc.Kernel, lc.Stride, lc.Padding, init, rng), nil
	case "maxpool2d":
		return nn.NewMaxPool2D(lc.Kernel, lc.Stride, lc.Padding), nil
	case "avgpool2d":
		return nn.NewAvgPool2D(lc.Kernel, lc.Stride, lc.Padding), nil
	}
	return nil, fmt.Errorf("unknown layer type %q", lc.Type)
}
