package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies workflow failures.
type ErrorCode string

const (
	// CodeValidation marks graph or node-config well-formedness failures.
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	// CodeConfiguration marks unknown connectors and bad node config;
	// terminal for the affected node.
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// CodeExecution wraps errors returned by a connector's Configure or
	// Execute; subject to retry.
	CodeExecution ErrorCode = "EXECUTION_ERROR"
	// CodeSchemaConflict marks input-schema incompatibilities reported by
	// schema-aware connectors; non-fatal by default.
	CodeSchemaConflict ErrorCode = "SCHEMA_CONFLICT_ERROR"
	// CodeConnector marks factory-level connector failures.
	CodeConnector ErrorCode = "CONNECTOR_ERROR"
	// CodeTimeout marks an execution that hit its context deadline.
	CodeTimeout ErrorCode = "TIMEOUT_ERROR"
	// CodeCancellation marks an execution cancelled by the caller.
	CodeCancellation ErrorCode = "CANCELLATION_ERROR"
)

// WorkflowError is the typed failure used across the engine.
type WorkflowError struct {
	Code        ErrorCode
	NodeID      string
	ConnectorID string
	Message     string
	Err         error
}

// Error formats the failure as "[CODE] node <id>: message: cause".
func (e *WorkflowError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("]")
	if e.NodeID != "" {
		fmt.Fprintf(&b, " node %s:", e.NodeID)
	}
	if e.ConnectorID != "" {
		fmt.Fprintf(&b, " connector %s:", e.ConnectorID)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *WorkflowError) Unwrap() error { return e.Err }

// Is matches against another WorkflowError by code.
func (e *WorkflowError) Is(target error) bool {
	var other *WorkflowError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewValidationError creates a VALIDATION_ERROR.
func NewValidationError(message string) *WorkflowError {
	return &WorkflowError{Code: CodeValidation, Message: message}
}

// NewConfigurationError creates a CONFIGURATION_ERROR for a node.
func NewConfigurationError(message, nodeID, connectorID string) *WorkflowError {
	return &WorkflowError{
		Code:        CodeConfiguration,
		NodeID:      nodeID,
		ConnectorID: connectorID,
		Message:     message,
	}
}

// NewExecutionError wraps a connector failure for a node.
func NewExecutionError(nodeID string, err error) *WorkflowError {
	return &WorkflowError{
		Code:    CodeExecution,
		NodeID:  nodeID,
		Message: "node execution failed",
		Err:     err,
	}
}

// NewSchemaConflictError creates a SCHEMA_CONFLICT_ERROR for a node.
func NewSchemaConflictError(nodeID string, err error) *WorkflowError {
	return &WorkflowError{
		Code:    CodeSchemaConflict,
		NodeID:  nodeID,
		Message: "input schema incompatible",
		Err:     err,
	}
}

// NewConnectorError creates a CONNECTOR_ERROR carrying the connector id.
func NewConnectorError(connectorID string, err error) *WorkflowError {
	return &WorkflowError{
		Code:        CodeConnector,
		ConnectorID: connectorID,
		Message:     "connector failure",
		Err:         err,
	}
}

// NewTimeoutError creates a TIMEOUT_ERROR for the given deadline.
func NewTimeoutError(timeoutSeconds int) *WorkflowError {
	return &WorkflowError{
		Code:    CodeTimeout,
		Message: fmt.Sprintf("workflow execution exceeded deadline (timeout_seconds=%d)", timeoutSeconds),
	}
}

// NewCancellationError creates a CANCELLATION_ERROR.
func NewCancellationError() *WorkflowError {
	return &WorkflowError{Code: CodeCancellation, Message: "workflow execution cancelled"}
}

// CodeOf extracts the error code from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var wErr *WorkflowError
	if errors.As(err, &wErr) {
		return wErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
