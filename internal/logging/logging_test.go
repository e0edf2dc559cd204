package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewOperationErrorNil(t *testing.T) {
	assert.NoError(t, NewOperationError("model.load", "run", nil))
}

func TestOperationErrorUnwrap(t *testing.T) {
	err := NewOperationError("image.preprocess", "run-1", fs.ErrNotExist)

	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, "image.preprocess failed [run run-1]: file does not exist", err.Error())

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "image.preprocess", opErr.Operation)
}

func TestOperationErrorWithoutRunID(t *testing.T) {
	err := NewOperationError("config.load", "", errors.New("bad yaml"))
	assert.Equal(t, "config.load failed: bad yaml", err.Error())
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(io.Discard, "loud", false)
	assert.Error(t, err)
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", false)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("model loaded", zap.String("path", "m.onnx"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "model loaded", entry["msg"])
	assert.Equal(t, "m.onnx", entry["path"])
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLoggerDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", true)
	require.NoError(t, err)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestWithOperationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := WithOperation(zap.New(core), "model.predict", "abc")

	logger.Info("done")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "model.predict", ctx["operation"])
	assert.Equal(t, "abc", ctx["run_id"])
}
