package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Brownie44l1/ingredient-classifier/internal/config"
)

// DefaultImageSize is the square resolution the ingredient model was trained on.
const DefaultImageSize = 128

type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
}

type Prediction struct {
	Class       string             `json:"class"`
	Index       int                `json:"index"`
	Confidence  float32            `json:"confidence"`
	Predictions map[string]float32 `json:"predictions"`
}

// DefaultMetadata returns the shapes and classes of the ingredient model.
// The input shape follows layout: [1,S,S,3] for nhwc, [1,3,S,S] for nchw.
func DefaultMetadata(imageSize int, layout string) Metadata {
	if imageSize <= 0 {
		imageSize = DefaultImageSize
	}
	if layout == "" {
		layout = config.LayoutNHWC
	}
	labels := IngredientLabels()
	return Metadata{
		InputShape:  inputShape(imageSize, layout),
		OutputShape: []int64{1, int64(len(labels))},
		Classes:     labels,
		ImageSize:   imageSize,
		Layout:      layout,
	}
}

func inputShape(imageSize int, layout string) []int64 {
	size := int64(imageSize)
	if layout == config.LayoutNCHW {
		return []int64{1, 3, size, size}
	}
	return []int64{1, size, size, 3}
}

// LoadMetadata reads a metadata JSON file. Fields missing from the file are
// filled from DefaultMetadata; a layout in the file wins over layout.
// An empty path yields the defaults.
func LoadMetadata(path string, imageSize int, layout string) (Metadata, error) {
	defaults := DefaultMetadata(imageSize, layout)
	if path == "" {
		return defaults, nil
	}

	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if metadata.ImageSize == 0 {
		metadata.ImageSize = defaults.ImageSize
	}
	if metadata.Layout == "" {
		metadata.Layout = defaults.Layout
	}
	if len(metadata.Classes) == 0 {
		metadata.Classes = defaults.Classes
	}
	if len(metadata.InputShape) == 0 {
		metadata.InputShape = inputShape(metadata.ImageSize, metadata.Layout)
	}
	if len(metadata.OutputShape) == 0 {
		metadata.OutputShape = []int64{1, int64(len(metadata.Classes))}
	}

	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

func (m Metadata) Validate() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata has no classes")
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("metadata image_size must be positive, got %d", m.ImageSize)
	}
	if m.Layout != config.LayoutNHWC && m.Layout != config.LayoutNCHW {
		return fmt.Errorf("unknown metadata layout %q", m.Layout)
	}
	if ElementCount(m.InputShape) <= 0 {
		return fmt.Errorf("invalid input_shape %v", m.InputShape)
	}
	if ElementCount(m.OutputShape) <= 0 {
		return fmt.Errorf("invalid output_shape %v", m.OutputShape)
	}
	return nil
}

func (m Metadata) inputSize() int {
	return int(ElementCount(m.InputShape))
}

// ElementCount multiplies the dimensions of a tensor shape. Any
// non-positive dimension makes the shape invalid and yields 0.
func ElementCount(shape []int64) int64 {
	if len(shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, dim := range shape {
		if dim <= 0 {
			return 0
		}
		n *= dim
	}
	return n
}
