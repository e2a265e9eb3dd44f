package train

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/dnn/internal/tensor"
)

// Dataset is an in-memory set of samples. X is [N, features...]; Y is [N]
// (class indices) or [N, ...] (one-hot rows or regression targets).
type Dataset struct {
	X *tensor.Tensor
	Y *tensor.Tensor
}

// Batch is one mini-batch drawn from a Dataset.
type Batch struct {
	X *tensor.Tensor
	Y *tensor.Tensor
}

// Len returns the number of samples, or 0 for an empty Dataset.
func (d Dataset) Len() int {
	if d.X == nil {
		return 0
	}
	return d.X.Dim(0)
}

// Validate checks that X and Y agree on the number of samples.
func (d Dataset) Validate() error {
	if d.X == nil || d.Y == nil {
		return errors.New("train: dataset needs both X and Y")
	}
	if d.X.Rank() < 2 {
		return fmt.Errorf("train: X must be [N, features...], got %v", d.X.Shape())
	}
	if d.Y.Rank() < 1 || d.Y.Dim(0) != d.X.Dim(0) {
		return fmt.Errorf("train: X has %d samples but Y has shape %v", d.X.Dim(0), d.Y.Shape())
	}
	return nil
}

// Batch gathers the samples at the given indices.
func (d Dataset) Batch(indices []int) Batch {
	return Batch{X: d.X.Rows(indices), Y: d.Y.Rows(indices)}
}

// Split partitions ds into a training and a held-out test set. The test
// set receives round(N·testRatio) samples chosen by rng; a ratio of 0
// returns ds unchanged and an empty test set.
func Split(ds Dataset, testRatio float64, rng *rand.Rand) (Dataset, Dataset, error) {
	if err := ds.Validate(); err != nil {
		return Dataset{}, Dataset{}, err
	}
	if testRatio < 0 || testRatio >= 1 {
		return Dataset{}, Dataset{}, fmt.Errorf("train: test ratio %v outside [0, 1)", testRatio)
	}
	n := ds.Len()
	nTest := int(math.Round(float64(n) * testRatio))
	if nTest == 0 {
		return ds, Dataset{}, nil
	}
	if nTest >= n {
		return Dataset{}, Dataset{}, fmt.Errorf("train: test ratio %v leaves no training samples out of %d", testRatio, n)
	}

	perm := rng.Perm(n)
	test := ds.Batch(perm[:nTest])
	train := ds.Batch(perm[nTest:])
	return Dataset(train), Dataset(test), nil
}
