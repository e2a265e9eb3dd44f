// Package main provides the dnn command-line tool.
//
//	dnn train -config configs/blobs.yaml [-epochs N] [-batch-size N] [-seed N] [-snapshot out.dnns] [-v]
//	dnn version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/born-ml/dnn/internal/config"
	"github.com/born-ml/dnn/internal/dataset"
	"github.com/born-ml/dnn/internal/snapshot"
	"github.com/born-ml/dnn/internal/tensor"
	"github.com/born-ml/dnn/internal/train"
)

const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "dnn: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "dnn %s\n", version)
		return nil
	case "train":
		return trainCmd(ctx, args[1:], stdout, stderr)
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	}
	usage(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: dnn <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  train      Train a network described by a YAML config")
	fmt.Fprintln(w, "  version    Show version")
}

func trainCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "configs/blobs.yaml", "Path to YAML config")
	epochs := fs.Int("epochs", 0, "Override the number of epochs")
	batchSize := fs.Int("batch-size", 0, "Override the batch size")
	seed := fs.Uint64("seed", 0, "Override the seed")
	snapPath := fs.String("snapshot", "", "Write the trained parameters to this file")
	verbose := fs.Bool("v", false, "Log every step")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(config.Overrides{
		Epochs:    *epochs,
		BatchSize: *batchSize,
		Seed:      *seed,
		Snapshot:  *snapPath,
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	net, opt, err := config.Build(cfg)
	if err != nil {
		return fmt.Errorf("build network: %w", err)
	}

	trainSet, testSet, err := loadData(cfg)
	if err != nil {
		return err
	}
	logger.Info("dataset",
		"kind", cfg.Data.Kind,
		"train", trainSet.Len(),
		"test", testSet.Len(),
		"params", len(net.Parameters()),
		"optimizer", opt.Name(),
	)

	trainer, err := train.New(net, opt, cfg.Trainer, logger)
	if err != nil {
		return err
	}
	hist, err := trainer.Fit(ctx, trainSet, testSet)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Fprintf(stdout, "epochs=%d train_acc=%.4f", len(hist.EpochLoss), hist.FinalTrainAcc())
	if testSet.Len() > 0 {
		fmt.Fprintf(stdout, " test_acc=%.4f", hist.FinalTestAcc())
	}
	if hist.StoppedEarly {
		fmt.Fprint(stdout, " stopped_early=true")
	}
	fmt.Fprintln(stdout)

	if cfg.Snapshot != "" {
		header, err := snapshot.Save(cfg.Snapshot, net, snapshot.Meta{
			Model: "network",
			Metadata: map[string]string{
				"config":    *cfgPath,
				"epochs":    strconv.Itoa(len(hist.EpochLoss)),
				"optimizer": opt.Name(),
				"seed":      strconv.FormatUint(cfg.Seed, 10),
			},
		})
		if err != nil {
			return err
		}
		logger.Info("snapshot written", "path", cfg.Snapshot, "run_id", header.RunID, "tensors", len(header.Tensors))
	}
	return nil
}

// loadData generates the configured dataset, reshapes samples to the
// declared input shape and splits off the test set.
func loadData(cfg *config.Config) (train.Dataset, train.Dataset, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+2))
	x, y, err := dataset.Generate(cfg.Data, rng)
	if err != nil {
		return train.Dataset{}, train.Dataset{}, err
	}

	in := tensor.Shape(cfg.InputShape)
	if in.NumElements() != x.Dim(1) {
		return train.Dataset{}, train.Dataset{}, fmt.Errorf(
			"input_shape %v needs %d features, data has %d", in, in.NumElements(), x.Dim(1))
	}
	x = x.Reshape(append([]int{x.Dim(0)}, in...)...)

	if cfg.Loss == "mse" {
		classes := cfg.Data.Classes
		if classes == 0 || cfg.Data.Kind == "xor" {
			classes = 2
		}
		if y, err = dataset.OneHot(y, classes); err != nil {
			return train.Dataset{}, train.Dataset{}, err
		}
	}
	return train.Split(train.Dataset{X: x, Y: y}, cfg.TestRatio, rng)
}
