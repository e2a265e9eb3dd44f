// Package dataset generates small synthetic classification datasets for
// the CLI and end-to-end tests.
package dataset

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config describes a synthetic dataset.
type Config struct {
	Kind     string  `yaml:"kind"`     // blobs or xor
	Samples  int     `yaml:"samples"`  // Total number of samples
	Classes  int     `yaml:"classes"`  // Number of classes (blobs only; xor is always 2)
	Features int     `yaml:"features"` // Feature count (>= 2)
	Spread   float64 `yaml:"spread"`   // Standard deviation of the noise around each center
	Radius   float64 `yaml:"radius"`   // Distance of the class centers from the origin
}

// Generate builds the dataset described by cfg. X is [samples, features]
// and Y holds class indices [samples].
func Generate(cfg Config, rng *rand.Rand) (x, y *tensor.Tensor, err error) {
	switch cfg.Kind {
	case "", "blobs":
		return Blobs(cfg, rng)
	case "xor":
		return XOR(cfg, rng)
	}
	return nil, nil, fmt.Errorf("dataset: unknown kind %q", cfg.Kind)
}

// Blobs draws Gaussian clusters whose centers sit evenly on a circle of
// the given radius in the plane of the first two features. With a spread
// well below radius·sin(π/classes) the classes are linearly separable.
// Samples are assigned to classes round-robin.
func Blobs(cfg Config, rng *rand.Rand) (x, y *tensor.Tensor, err error) {
	cfg = withDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	x = tensor.New(tensor.Shape{cfg.Samples, cfg.Features})
	y = tensor.New(tensor.Shape{cfg.Samples})
	noise := distuv.Normal{Mu: 0, Sigma: cfg.Spread, Src: rng}

	for i := 0; i < cfg.Samples; i++ {
		c := i % cfg.Classes
		angle := 2 * math.Pi * float64(c) / float64(cfg.Classes)
		row := x.Row(i)
		for f := range row {
			row[f] = noise.Rand()
		}
		row[0] += cfg.Radius * math.Cos(angle)
		row[1] += cfg.Radius * math.Sin(angle)
		y.Data()[i] = float64(c)
	}
	return x, y, nil
}

// XOR draws points around the four corners (±r, ±r); the label is 1 when
// the signs of the first two features differ. It is not linearly
// separable.
func XOR(cfg Config, rng *rand.Rand) (x, y *tensor.Tensor, err error) {
	cfg = withDefaults(cfg)
	cfg.Classes = 2
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	x = tensor.New(tensor.Shape{cfg.Samples, cfg.Features})
	y = tensor.New(tensor.Shape{cfg.Samples})
	noise := distuv.Normal{Mu: 0, Sigma: cfg.Spread, Src: rng}
	signs := [4][2]float64{{1, 1}, {-1, -1}, {1, -1}, {-1, 1}}

	for i := 0; i < cfg.Samples; i++ {
		corner := signs[i%4]
		row := x.Row(i)
		for f := range row {
			row[f] = noise.Rand()
		}
		row[0] += cfg.Radius * corner[0]
		row[1] += cfg.Radius * corner[1]
		if corner[0] != corner[1] {
			y.Data()[i] = 1
		}
	}
	return x, y, nil
}

// OneHot expands a [N] class-index tensor to [N, classes].
func OneHot(labels *tensor.Tensor, classes int) (*tensor.Tensor, error) {
	if labels == nil || labels.Rank() != 1 {
		return nil, fmt.Errorf("dataset: labels must be rank 1")
	}
	idx, err := nn.ClassIndices(labels, labels.Dim(0), classes)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return nn.OneHot(idx, classes), nil
}

func withDefaults(cfg Config) Config {
	if cfg.Classes == 0 {
		cfg.Classes = 2
	}
	if cfg.Features == 0 {
		cfg.Features = 2
	}
	if cfg.Spread == 0 {
		cfg.Spread = 0.5
	}
	if cfg.Radius == 0 {
		cfg.Radius = 3
	}
	return cfg
}

func (c Config) validate() error {
	switch {
	case c.Samples <= 0:
		return fmt.Errorf("dataset: samples must be > 0 (got %d)", c.Samples)
	case c.Classes < 2:
		return fmt.Errorf("dataset: need at least 2 classes (got %d)", c.Classes)
	case c.Features < 2:
		return fmt.Errorf("dataset: need at least 2 features (got %d)", c.Features)
	case c.Spread < 0 || c.Radius < 0:
		return fmt.Errorf("dataset: spread and radius must be >= 0")
	}
	return nil
}
