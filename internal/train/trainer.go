// Package train runs mini-batch gradient training of an nn.Network.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/born-ml/dnn/internal/metrics"
	"github.com/born-ml/dnn/internal/nn"
	"github.com/born-ml/dnn/internal/optim"
)

// Config captures the knobs of the training loop.
type Config struct {
	Epochs    int    `yaml:"epochs"`     // Number of passes over the training set
	BatchSize int    `yaml:"batch_size"` // Samples per step; the last batch of an epoch may be smaller
	EvalEvery int    `yaml:"eval_every"` // Evaluate every N epochs (default 1)
	NoShuffle bool   `yaml:"no_shuffle"` // Keep the dataset order instead of reshuffling every epoch
	Seed      uint64 `yaml:"seed"`       // Seed of the shuffling generator
	Patience  int    `yaml:"patience"`   // Stop after this many evaluations without test-loss improvement (0 disables)
	LogEvery  int    `yaml:"log_every"`  // Emit a debug record every N steps (0 disables)
}

// DefaultConfig returns a Config with evaluation after every epoch.
// Shuffling is on unless NoShuffle is set.
func DefaultConfig() Config {
	return Config{Epochs: 10, BatchSize: 32, EvalEvery: 1}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("train: epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("train: batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.EvalEvery < 0 || c.Patience < 0 || c.LogEvery < 0 {
		return errors.New("train: eval_every, patience and log_every must be >= 0")
	}
	if c.EvalEvery == 0 {
		c.EvalEvery = 1
	}
	return nil
}

// Trainer drives epochs of mini-batch sampling, gradient computation and
// optimizer updates for one Network.
type Trainer struct {
	net    *nn.Network
	opt    optim.Optimizer
	cfg    Config
	logger *slog.Logger
	rng    *rand.Rand
}

// New creates a Trainer. A nil logger selects slog.Default().
func New(net *nn.Network, opt optim.Optimizer, cfg Config, logger *slog.Logger) (*Trainer, error) {
	if net == nil || opt == nil {
		return nil, errors.New("train: network and optimizer are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{
		net:    net,
		opt:    opt,
		cfg:    cfg,
		logger: logger,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d)),
	}, nil
}

// Fit trains on trainSet for the configured number of epochs.
//
// Each epoch runs ⌈N / BatchSize⌉ steps over a fresh permutation of the
// samples (unless NoShuffle is set). A step computes the gradient of one batch
// and applies one optimizer update. Every EvalEvery epochs the loss and
// accuracy are evaluated in inference mode on trainSet and, if non-empty,
// testSet.
//
// ctx is checked between steps; on cancellation Fit returns the history
// so far together with ctx.Err(). Any error from the network or optimizer
// aborts training.
func (t *Trainer) Fit(ctx context.Context, trainSet, testSet Dataset) (*History, error) {
	if err := trainSet.Validate(); err != nil {
		return nil, err
	}
	hasTest := testSet.Len() > 0
	if hasTest {
		if err := testSet.Validate(); err != nil {
			return nil, fmt.Errorf("test set: %w", err)
		}
	}

	n := trainSet.Len()
	stepsPerEpoch := (n + t.cfg.BatchSize - 1) / t.cfg.BatchSize
	hist := &History{}
	bestTest := math.Inf(1)
	stale := 0

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	var window metrics.Window
	step := 0
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if !t.cfg.NoShuffle {
			t.rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		epochLoss := 0.0
		epochStart := time.Now()
		samples := 0
		for s := 0; s < stepsPerEpoch; s++ {
			if err := ctx.Err(); err != nil {
				return hist, err
			}

			startData := time.Now()
			lo, hi := s*t.cfg.BatchSize, min((s+1)*t.cfg.BatchSize, n)
			batch := trainSet.Batch(order[lo:hi])
			dataTime := time.Since(startData)

			startCompute := time.Now()
			loss, err := t.Step(batch)
			if err != nil {
				return hist, fmt.Errorf("epoch %d step %d: %w", epoch, s+1, err)
			}
			computeTime := time.Since(startCompute)

			step++
			samples += hi - lo
			epochLoss += loss
			hist.StepLoss = append(hist.StepLoss, loss)
			window.Record(hi-lo, dataTime, computeTime, loss)

			if t.cfg.LogEvery > 0 && step%t.cfg.LogEvery == 0 {
				snap := window.Snapshot()
				t.logger.Debug("step",
					"step", step,
					"loss", snap.MeanLoss,
					"samples_per_sec", snap.SamplesPerSec,
					"data_ms", snap.AvgDataMS,
					"compute_ms", snap.AvgComputeMS,
				)
			}
		}
		hist.EpochLoss = append(hist.EpochLoss, epochLoss/float64(stepsPerEpoch))

		if epoch%t.cfg.EvalEvery != 0 && epoch != t.cfg.Epochs {
			continue
		}

		trainLoss, trainAcc, err := t.evaluate(trainSet)
		if err != nil {
			return hist, fmt.Errorf("epoch %d: evaluate train set: %w", epoch, err)
		}
		hist.Epochs = append(hist.Epochs, epoch)
		hist.TrainLoss = append(hist.TrainLoss, trainLoss)
		hist.TrainAcc = append(hist.TrainAcc, trainAcc)

		attrs := []any{
			"epoch", epoch,
			"loss", hist.EpochLoss[len(hist.EpochLoss)-1],
			"train_acc", trainAcc,
			"samples_per_sec", float64(samples) / time.Since(epochStart).Seconds(),
		}

		if hasTest {
			testLoss, testAcc, err := t.evaluate(testSet)
			if err != nil {
				return hist, fmt.Errorf("epoch %d: evaluate test set: %w", epoch, err)
			}
			hist.TestLoss = append(hist.TestLoss, testLoss)
			hist.TestAcc = append(hist.TestAcc, testAcc)
			attrs = append(attrs, "test_loss", testLoss, "test_acc", testAcc)

			if testLoss < bestTest {
				bestTest, stale = testLoss, 0
			} else {
				stale++
			}
		}
		t.logger.Info("epoch", attrs...)

		if t.cfg.Patience > 0 && hasTest && stale >= t.cfg.Patience && epoch < t.cfg.Epochs {
			t.logger.Info("early stop", "epoch", epoch, "best_test_loss", bestTest)
			hist.StoppedEarly = true
			break
		}
	}
	return hist, nil
}

// Step computes the gradient of one batch and applies one optimizer
// update. It returns the batch loss.
func (t *Trainer) Step(b Batch) (float64, error) {
	grads, loss, err := t.net.Gradient(b.X, b.Y)
	if err != nil {
		return 0, err
	}
	if err := t.opt.Update(t.net.Params(), grads); err != nil {
		return 0, err
	}
	return loss, nil
}

// evaluate computes the mean loss and accuracy of ds in inference mode,
// batch by batch.
func (t *Trainer) evaluate(ds Dataset) (loss, acc float64, err error) {
	n := ds.Len()
	idx := make([]int, 0, t.cfg.BatchSize)
	for lo := 0; lo < n; lo += t.cfg.BatchSize {
		hi := min(lo+t.cfg.BatchSize, n)
		idx = idx[:0]
		for i := lo; i < hi; i++ {
			idx = append(idx, i)
		}
		b := ds.Batch(idx)
		l, a, err := t.net.Evaluate(b.X, b.Y)
		if err != nil {
			return 0, 0, err
		}
		w := float64(hi - lo)
		loss += l * w
		acc += a * w
	}
	return loss / float64(n), acc / float64(n), nil
}
