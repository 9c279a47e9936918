package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowErrorFormat(t *testing.T) {
	cause := errors.New("connection refused")
	err := &WorkflowError{
		Code:        CodeExecution,
		NodeID:      "n1",
		ConnectorID: "http_source",
		Message:     "node execution failed",
		Err:         cause,
	}

	assert.Equal(t,
		"[EXECUTION_ERROR] node n1: connector http_source: node execution failed: connection refused",
		err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestWorkflowErrorIsMatchesByCode(t *testing.T) {
	err := NewExecutionError("n1", errors.New("boom"))
	wrapped := fmt.Errorf("outer: %w", err)

	assert.True(t, errors.Is(wrapped, NewExecutionError("other", nil)))
	assert.False(t, errors.Is(wrapped, NewCancellationError()))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeTimeout, CodeOf(NewTimeoutError(30)))
	assert.Equal(t, CodeConfiguration,
		CodeOf(fmt.Errorf("wrap: %w", NewConfigurationError("bad", "n1", "c1"))))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))

	assert.True(t, IsCode(NewValidationError("nope"), CodeValidation))
	assert.False(t, IsCode(errors.New("plain"), CodeValidation))
}

func TestTimeoutErrorMessage(t *testing.T) {
	err := NewTimeoutError(1)
	assert.Contains(t, err.Error(), "TIMEOUT_ERROR")
	assert.Contains(t, err.Error(), "timeout_seconds=1")
}
