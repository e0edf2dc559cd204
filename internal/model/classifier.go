package model

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

type Predictor interface {
	Predict(inputData []float32) (*Prediction, error)
	Close()
}

type Options struct {
	ModelPath   string
	LibraryPath string
	// InputName and OutputName default to the model's first input and output.
	InputName  string
	OutputName string
}

// Classifier runs an ONNX model through onnxruntime with pre-allocated tensors.
type Classifier struct {
	session      *ort.AdvancedSession
	metadata     Metadata
	labels       Labels
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewClassifier initializes the onnxruntime environment and opens a session
// for the model at opts.ModelPath.
func NewClassifier(opts Options, metadata Metadata) (*Classifier, error) {
	if err := metadata.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("failed to open model: %w", err)
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	c := &Classifier{
		metadata: metadata,
		labels:   Labels(metadata.Classes),
	}
	if err := c.open(opts); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Classifier) open(opts Options) error {
	inputName, outputName, err := resolveNames(opts)
	if err != nil {
		return err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(c.metadata.InputShape...))
	if err != nil {
		return fmt.Errorf("failed to create input tensor: %w", err)
	}
	c.inputTensor = inputTensor

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(c.metadata.OutputShape...))
	if err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}
	c.outputTensor = outputTensor

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}
	c.session = session
	return nil
}

func resolveNames(opts Options) (string, string, error) {
	inputName, outputName := opts.InputName, opts.OutputName
	if inputName != "" && outputName != "" {
		return inputName, outputName, nil
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to inspect model: %w", err)
	}
	if inputName == "" {
		if len(inputs) == 0 {
			return "", "", fmt.Errorf("model has no inputs")
		}
		inputName = inputs[0].Name
	}
	if outputName == "" {
		if len(outputs) == 0 {
			return "", "", fmt.Errorf("model has no outputs")
		}
		outputName = outputs[0].Name
	}
	return inputName, outputName, nil
}

// Predict copies inputData into the session input, runs the model and
// classifies the output vector.
func (c *Classifier) Predict(inputData []float32) (*Prediction, error) {
	if expected := c.metadata.inputSize(); len(inputData) != expected {
		return nil, fmt.Errorf("expected %d input values, got %d", expected, len(inputData))
	}
	copy(c.inputTensor.GetData(), inputData)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return Classify(c.outputTensor.GetData(), c.labels)
}

func (c *Classifier) Close() {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	ort.DestroyEnvironment()
}
