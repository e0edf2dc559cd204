// Package runner drives one classification from image path to printed label.
// Every failure along the way degrades to a random label from the model's
// class list, so the caller always receives exactly one answer.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownie44l1/ingredient-classifier/internal/config"
	"github.com/Brownie44l1/ingredient-classifier/internal/logging"
	"github.com/Brownie44l1/ingredient-classifier/internal/model"
	"github.com/Brownie44l1/ingredient-classifier/internal/preprocess"
)

// Pipeline stages, used as OperationError operations.
const (
	OpConfigLoad      = "config.load"
	OpMetadataLoad    = "model.metadata"
	OpModelLoad       = "model.load"
	OpImageLoad       = "image.load"
	OpImagePreprocess = "image.preprocess"
	OpModelPredict    = "model.predict"
)

type PredictorFactory func(cfg *config.AppConfig, metadata model.Metadata) (model.Predictor, error)

// OpenClassifier is the PredictorFactory backed by onnxruntime.
func OpenClassifier(cfg *config.AppConfig, metadata model.Metadata) (model.Predictor, error) {
	return model.NewClassifier(model.Options{
		ModelPath:   cfg.Model.Path,
		LibraryPath: cfg.Runtime.Library,
		InputName:   cfg.Model.InputName,
		OutputName:  cfg.Model.OutputName,
	}, metadata)
}

type Result struct {
	RunID       string             `json:"run_id"`
	Class       string             `json:"class"`
	Confidence  float32            `json:"confidence,omitempty"`
	Predictions map[string]float32 `json:"predictions,omitempty"`
	Fallback    bool               `json:"fallback"`
	Error       string             `json:"error,omitempty"`
}

// Write prints the result. The text format is the bare label on one line.
func (r *Result) Write(w io.Writer, format string) error {
	switch format {
	case config.FormatJSON:
		return json.NewEncoder(w).Encode(r.finite())
	case config.FormatText, "":
		_, err := fmt.Fprintln(w, r.Class)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// finite drops NaN and Inf scores, which JSON cannot encode.
func (r *Result) finite() *Result {
	out := *r
	if !isFinite(out.Confidence) {
		out.Confidence = 0
	}
	if len(r.Predictions) > 0 {
		out.Predictions = make(map[string]float32, len(r.Predictions))
		for class, score := range r.Predictions {
			if isFinite(score) {
				out.Predictions[class] = score
			}
		}
	}
	return &out
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type Runner struct {
	cfg          *config.AppConfig
	logger       *zap.Logger
	newPredictor PredictorFactory
	rng          *rand.Rand
}

func New(cfg *config.AppConfig, logger *zap.Logger, factory PredictorFactory, rng *rand.Rand) *Runner {
	if factory == nil {
		factory = OpenClassifier
	}
	if rng == nil {
		rng = model.NewRand(cfg.Fallback.Seed)
	}
	return &Runner{
		cfg:          cfg,
		logger:       logger.Named("runner"),
		newPredictor: factory,
		rng:          rng,
	}
}

// Run classifies the image at imagePath. It never fails: errors are logged
// and replaced by a random label.
func (r *Runner) Run(ctx context.Context, imagePath string) *Result {
	runID := uuid.NewString()
	opLogger := logging.WithOperation(r.logger, "predict", runID)

	labels := model.IngredientLabels()
	pred, err := r.classify(ctx, opLogger, runID, imagePath, &labels)
	if err != nil {
		return Fallback(opLogger, runID, labels, r.rng, err)
	}

	opLogger.Debug("prediction complete",
		zap.String("class", pred.Class),
		zap.Int("index", pred.Index),
		zap.Float32("confidence", pred.Confidence))

	return &Result{
		RunID:       runID,
		Class:       pred.Class,
		Confidence:  pred.Confidence,
		Predictions: pred.Predictions,
	}
}

// classify runs the pipeline. labels is replaced by the model's class list
// once metadata is loaded so a fallback draws from the same classes.
func (r *Runner) classify(ctx context.Context, opLogger *zap.Logger, runID, imagePath string, labels *model.Labels) (*model.Prediction, error) {
	if imagePath == "" {
		return nil, logging.NewOperationError(OpImageLoad, runID, fmt.Errorf("missing image path argument"))
	}

	metadata, err := model.LoadMetadata(r.cfg.Model.Metadata, r.cfg.Model.ImageSize, r.cfg.Model.Layout)
	if err != nil {
		return nil, logging.NewOperationError(OpMetadataLoad, runID, err)
	}
	*labels = model.Labels(metadata.Classes)

	predictor, err := r.newPredictor(r.cfg, metadata)
	if err != nil {
		return nil, logging.NewOperationError(OpModelLoad, runID, err)
	}
	defer predictor.Close()

	img, format, err := preprocess.LoadFile(imagePath)
	if err != nil {
		return nil, logging.NewOperationError(OpImageLoad, runID, err)
	}
	opLogger.Debug("image decoded",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	inputData, err := preprocess.Tensor(img, preprocess.Options{
		Size:          metadata.ImageSize,
		Layout:        metadata.Layout,
		Interpolation: r.cfg.Model.Interpolation,
	})
	if err != nil {
		return nil, logging.NewOperationError(OpImagePreprocess, runID, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, logging.NewOperationError(OpModelPredict, runID, err)
	}

	pred, err := predictor.Predict(inputData)
	if err != nil {
		return nil, logging.NewOperationError(OpModelPredict, runID, err)
	}
	return pred, nil
}

// Fallback logs err and returns a result carrying a random label.
func Fallback(logger *zap.Logger, runID string, labels model.Labels, rng *rand.Rand, err error) *Result {
	if len(labels) == 0 {
		labels = model.IngredientLabels()
	}
	class := labels.Random(rng)
	logger.Error("model failed, using random label", zap.Error(err), zap.String("class", class))
	return &Result{
		RunID:    runID,
		Class:    class,
		Fallback: true,
		Error:    err.Error(),
	}
}
