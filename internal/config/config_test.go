package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "ingredient_classifier.onnx", cfg.Model.Path)
	assert.Equal(t, 128, cfg.Model.ImageSize)
	assert.Equal(t, LayoutNHWC, cfg.Model.Layout)
	assert.Equal(t, InterpolationNearest, cfg.Model.Interpolation)
	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Fallback.Seed)
}

func TestLoadFileThenEnvThenOverrides(t *testing.T) {
	path := writeConfig(t, `
model:
  path: from-file.onnx
  imagesize: 224
  layout: nchw
log:
  level: debug
`)
	t.Setenv("PREDICT_MODEL_PATH", "from-env.onnx")
	t.Setenv("PREDICT_FALLBACK_SEED", "42")

	cfg, err := Load(path, map[string]any{"output.format": FormatJSON})
	require.NoError(t, err)

	assert.Equal(t, "from-env.onnx", cfg.Model.Path)
	assert.Equal(t, 224, cfg.Model.ImageSize)
	assert.Equal(t, LayoutNCHW, cfg.Model.Layout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, int64(42), cfg.Fallback.Seed)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
}

func TestOverridesWinOverEnv(t *testing.T) {
	t.Setenv("PREDICT_MODEL_PATH", "from-env.onnx")

	cfg, err := Load("", map[string]any{"model.path": "from-flag.onnx"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag.onnx", cfg.Model.Path)
}

func TestLoadIgnoresSectionLevelEnv(t *testing.T) {
	t.Setenv("PREDICT_MODEL", "x")
	t.Setenv("PREDICT_LOG", "y")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "ingredient_classifier.onnx", cfg.Model.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Model:  ModelConfig{Path: "m.onnx", ImageSize: 128, Layout: LayoutNHWC, Interpolation: InterpolationNearest},
			Output: OutputConfig{Format: FormatText},
		}
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty model path", func(c *AppConfig) { c.Model.Path = " " }},
		{"zero image size", func(c *AppConfig) { c.Model.ImageSize = 0 }},
		{"unknown layout", func(c *AppConfig) { c.Model.Layout = "hwcn" }},
		{"unknown interpolation", func(c *AppConfig) { c.Model.Interpolation = "cubic" }},
		{"unknown format", func(c *AppConfig) { c.Output.Format = "xml" }},
	}

	ok := base()
	require.NoError(t, Validate(&ok))

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			assert.Error(t, Validate(&cfg))
		})
	}
}
