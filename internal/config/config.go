// Package config reads a YAML run description and assembles the network,
// optimizer and training settings it declares.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/born-ml/dnn/internal/dataset"
	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/optim"
	"github.com/born-ml/dnn/internal/tensor"
	"github.com/born-ml/dnn/internal/train"
	"gopkg.in/yaml.v3"
)

// Config captures everything needed for one training run.
type Config struct {
	Seed       uint64         `yaml:"seed"`
	InputShape []int          `yaml:"input_shape"` // per-sample, e.g. [784] or [1, 28, 28]
	Layers     []LayerConfig  `yaml:"layers"`
	Loss       string         `yaml:"loss"` // softmax_cross_entropy, sigmoid_cross_entropy or mse
	Optimizer  optim.Config   `yaml:"optimizer"`
	Trainer    train.Config   `yaml:"trainer"`
	Data       dataset.Config `yaml:"data"`
	TestRatio  float64        `yaml:"test_ratio"`
	Snapshot   string         `yaml:"snapshot"` // output path; empty disables
}

// LayerConfig declares one layer. Only the fields relevant to Type are read.
type LayerConfig struct {
	Type string `yaml:"type"`

	Units int     `yaml:"units"` // affine
	Init  string  `yaml:"init"`  // affine, conv2d: xavier, he or normal
	Std   float64 `yaml:"std"`   // normal init

	Alpha    float64 `yaml:"alpha"`     // elu
	KeepProb float64 `yaml:"keep_prob"` // dropout
	Momentum float64 `yaml:"momentum"`  // batchnorm
	Epsilon  float64 `yaml:"epsilon"`   // batchnorm

	Filters int `yaml:"filters"` // conv2d
	Kernel  int `yaml:"kernel"`  // conv2d, maxpool2d, avgpool2d
	Stride  int `yaml:"stride"`  // default 1 for conv2d, kernel for pooling
	Padding int `yaml:"padding"`
}

// Layer types accepted in LayerConfig.Type.
var layerTypes = []string{
	"affine", "relu", "sigmoid", "tanh", "elu", "srrelu", "dropout",
	"batchnorm", "conv2d", "maxpool2d", "avgpool2d", "flatten",
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Epochs    int
	BatchSize int
	Seed      uint64
	Snapshot  string
}

// Load reads and validates a Config from YAML.
func Load(path string) (*Config, error) {
	//nolint:gosec // G304: path is chosen by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Epochs > 0 {
		c.Trainer.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.Trainer.BatchSize = o.BatchSize
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
		c.Trainer.Seed = o.Seed
	}
	if o.Snapshot != "" {
		c.Snapshot = o.Snapshot
	}
}

// Validate verifies the config is runnable and fills in defaults.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if len(c.Layers) == 0 {
		return errors.New("at least one layer must be declared")
	}
	if len(c.InputShape) == 0 {
		features := c.Data.Features
		if features == 0 {
			features = 2
		}
		c.InputShape = []int{features}
	}
	if err := tensor.Shape(c.InputShape).Validate(); err != nil {
		return fmt.Errorf("input_shape: %w", err)
	}
	for i := range c.Layers {
		if err := c.Layers[i].validate(); err != nil {
			return fmt.Errorf("layers[%d]: %w", i, err)
		}
	}
	switch c.Loss {
	case "":
		c.Loss = "softmax_cross_entropy"
	case "softmax_cross_entropy", "sigmoid_cross_entropy", "mse":
	default:
		return fmt.Errorf("unknown loss %q", c.Loss)
	}
	if c.Optimizer.Name == "" {
		c.Optimizer.Name = "sgd"
	}
	if !slices.Contains(optim.Names(), c.Optimizer.Name) {
		return fmt.Errorf("%w: %q (known: %v)", optim.ErrUnknownOptimizer, c.Optimizer.Name, optim.Names())
	}
	if c.Optimizer.LR < 0 || c.Optimizer.WeightDecay < 0 {
		return errors.New("optimizer lr and weight_decay must be >= 0")
	}
	if c.Trainer.Seed == 0 {
		c.Trainer.Seed = c.Seed
	}
	if err := c.Trainer.Validate(); err != nil {
		return err
	}
	if c.TestRatio < 0 || c.TestRatio >= 1 {
		return fmt.Errorf("test_ratio must be in [0, 1) (got %v)", c.TestRatio)
	}
	return nil
}

func (l *LayerConfig) validate() error {
	if !slices.Contains(layerTypes, l.Type) {
		return fmt.Errorf("unknown layer type %q", l.Type)
	}
	if l.Init != "" && nn.InitializerByName(l.Init, l.Std) == nil {
		return fmt.Errorf("%s: unknown init %q", l.Type, l.Init)
	}
	switch l.Type {
	case "affine":
		if l.Units <= 0 {
			return fmt.Errorf("affine: units must be > 0 (got %d)", l.Units)
		}
	case "dropout":
		if l.KeepProb == 0 {
			l.KeepProb = 0.5
		}
		if l.KeepProb < 0 || l.KeepProb > 1 {
			return fmt.Errorf("dropout: keep_prob must be in [0, 1] (got %v)", l.KeepProb)
		}
	case "batchnorm":
		if l.Momentum < 0 || l.Momentum >= 1 || l.Epsilon < 0 {
			return fmt.Errorf("batchnorm: momentum must be in [0, 1) and epsilon >= 0")
		}
	case "conv2d", "maxpool2d", "avgpool2d":
		if l.Type == "conv2d" && l.Filters <= 0 {
			return fmt.Errorf("conv2d: filters must be > 0 (got %d)", l.Filters)
		}
		if l.Kernel <= 0 {
			return fmt.Errorf("%s: kernel must be > 0 (got %d)", l.Type, l.Kernel)
		}
		if l.Stride == 0 {
			l.Stride = 1
			if l.Type != "conv2d" {
				l.Stride = l.Kernel
			}
		}
		if l.Stride < 0 || l.Padding < 0 {
			return fmt.Errorf("%s: stride must be > 0 and padding >= 0", l.Type)
		}
	}
	return nil
}
