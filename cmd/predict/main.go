// Command predict classifies one ingredient photo and prints the label.
//
//	predict [flags] <image-path>
//
// Exactly one label line is written to stdout. If anything fails, a
// diagnostic is logged to stderr and a random label is printed instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/ingredient-classifier/internal/config"
	"github.com/Brownie44l1/ingredient-classifier/internal/logging"
	"github.com/Brownie44l1/ingredient-classifier/internal/model"
	"github.com/Brownie44l1/ingredient-classifier/internal/runner"
)

const (
	exitOK          = 0
	exitOutputError = 1
	exitUsage       = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, factory runner.PredictorFactory) int {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	modelPath := fs.String("model", "", "ONNX model file (overrides model.path)")
	metadataPath := fs.String("metadata", "", "model metadata JSON (overrides model.metadata)")
	format := fs.String("format", "", "output format: text or json (overrides output.format)")
	seed := fs.Int64("seed", 0, "seed for the fallback label, 0 for random (overrides fallback.seed)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: predict [flags] <image-path>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	overrides := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			overrides["model.path"] = *modelPath
		case "metadata":
			overrides["model.metadata"] = *metadataPath
		case "format":
			overrides["output.format"] = *format
		case "seed":
			overrides["fallback.seed"] = *seed
		}
	})

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		return fallbackWithoutConfig(stdout, stderr, *format, *seed, err)
	}

	logger, err := logging.NewLogger(stderr, cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return fallbackWithoutConfig(stdout, stderr, cfg.Output.Format, cfg.Fallback.Seed, err)
	}
	defer logger.Sync() //nolint:errcheck

	if fs.NArg() > 1 {
		logger.Warn("ignoring extra arguments", zap.Strings("args", fs.Args()[1:]))
	}

	res := runner.New(cfg, logger, factory, nil).Run(ctx, fs.Arg(0))
	if err := res.Write(stdout, cfg.Output.Format); err != nil {
		logger.Error("failed to write result", zap.Error(err))
		return exitOutputError
	}
	return exitOK
}

// fallbackWithoutConfig answers with a random label when no usable
// configuration exists, logging at the default level.
func fallbackWithoutConfig(stdout, stderr io.Writer, format string, seed int64, cause error) int {
	logger, err := logging.NewLogger(stderr, "info", false)
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync() //nolint:errcheck

	runID := uuid.NewString()
	res := runner.Fallback(
		logging.WithOperation(logger, "predict", runID),
		runID,
		model.IngredientLabels(),
		model.NewRand(seed),
		logging.NewOperationError(runner.OpConfigLoad, runID, cause),
	)

	if format != config.FormatJSON {
		format = config.FormatText
	}
	if err := res.Write(stdout, format); err != nil {
		logger.Error("failed to write result", zap.Error(err))
		return exitOutputError
	}
	return exitOK
}
