package logging

import "fmt"

// OperationError records which pipeline stage failed.
type OperationError struct {
	Operation string
	RunID     string
	Err       error
}

func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	msg := e.Operation + " failed"
	if e.RunID != "" {
		msg = fmt.Sprintf("%s [run %s]", msg, e.RunID)
	}
	return msg + ": " + e.Err.Error()
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError tags err with its stage. A nil err stays nil.
func NewOperationError(operation, runID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RunID: runID, Err: err}
}
