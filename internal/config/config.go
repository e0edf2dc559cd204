package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// EnvPrefix marks environment variables that override configuration keys.
// PREDICT_MODEL_PATH maps to model.path.
const EnvPrefix = "PREDICT_"

// Tensor layouts accepted by the model input.
const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// Resampling filters used when resizing the input image.
const (
	InterpolationNearest  = "nearest"
	InterpolationBilinear = "bilinear"
	InterpolationLanczos3 = "lanczos3"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type ModelConfig struct {
	Path          string `koanf:"path"`
	Metadata      string `koanf:"metadata"`
	InputName     string `koanf:"inputname"`
	OutputName    string `koanf:"outputname"`
	ImageSize     int    `koanf:"imagesize"`
	Layout        string `koanf:"layout"`
	Interpolation string `koanf:"interpolation"`
}

type RuntimeConfig struct {
	Library string `koanf:"library"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

type OutputConfig struct {
	Format string `koanf:"format"`
}

// FallbackConfig seeds the random label used when classification fails.
// A zero seed draws from a random source.
type FallbackConfig struct {
	Seed int64 `koanf:"seed"`
}

type AppConfig struct {
	Model    ModelConfig    `koanf:"model"`
	Runtime  RuntimeConfig  `koanf:"runtime"`
	Log      LogConfig      `koanf:"log"`
	Output   OutputConfig   `koanf:"output"`
	Fallback FallbackConfig `koanf:"fallback"`
}

func Defaults() map[string]any {
	return map[string]any{
		"model.path":          "ingredient_classifier.onnx",
		"model.metadata":      "",
		"model.inputname":     "",
		"model.outputname":    "",
		"model.imagesize":     128,
		"model.layout":        LayoutNHWC,
		"model.interpolation": InterpolationNearest,
		"runtime.library":     "",
		"log.level":           "info",
		"log.development":     false,
		"output.format":       FormatText,
		"fallback.seed":       0,
	}
}

// Load layers defaults, the optional YAML file, PREDICT_* environment
// variables and explicit overrides, in that order, and validates the result.
func Load(filePath string, overrides map[string]any) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if filePath != "" {
		if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", filePath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s string, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
		if !strings.Contains(key, ".") {
			// a bare section name would replace the whole section
			return "", nil
		}
		return key, v
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot act on.
func Validate(cfg *AppConfig) error {
	if strings.TrimSpace(cfg.Model.Path) == "" {
		return fmt.Errorf("model.path must not be empty")
	}
	if cfg.Model.ImageSize <= 0 {
		return fmt.Errorf("model.imagesize must be positive, got %d", cfg.Model.ImageSize)
	}

	switch cfg.Model.Layout {
	case LayoutNHWC, LayoutNCHW:
	default:
		return fmt.Errorf("unknown model.layout %q (expected %s or %s)", cfg.Model.Layout, LayoutNHWC, LayoutNCHW)
	}

	switch cfg.Model.Interpolation {
	case InterpolationNearest, InterpolationBilinear, InterpolationLanczos3:
	default:
		return fmt.Errorf("unknown model.interpolation %q", cfg.Model.Interpolation)
	}

	switch cfg.Output.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown output.format %q (expected %s or %s)", cfg.Output.Format, FormatText, FormatJSON)
	}
	return nil
}
