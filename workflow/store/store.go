// Package store defines the persistence boundary of the workflow engine.
//
// The engine treats persistence as an opaque record store; concrete
// backends live in subpackages (see inmemory).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Kind identifies a record type.
type Kind string

const (
	// KindWorkflow is a workflow definition record.
	KindWorkflow Kind = "workflow"
	// KindNode is a persisted workflow node record.
	KindNode Kind = "workflow_node"
	// KindConnection is a persisted workflow edge record.
	KindConnection Kind = "workflow_connection"
	// KindExecution is a workflow execution record.
	KindExecution Kind = "workflow_execution"
)

// Record is a persistable entity.
type Record interface {
	// RecordID returns the record's unique id.
	RecordID() string
	// RecordKind returns the record's kind.
	RecordKind() Kind
	// Fields returns the record's filterable field values.
	Fields() map[string]any
}

// Store is the persistence interface consumed by the engine.
type Store interface {
	// FindByID returns the record with the given kind and id, or
	// ErrNotFound.
	FindByID(ctx context.Context, kind Kind, id string) (Record, error)
	// FindByFilter returns all records of kind whose fields match every
	// filter entry.
	FindByFilter(ctx context.Context, kind Kind, filter map[string]any) ([]Record, error)
	// Save inserts or updates a record.
	Save(ctx context.Context, record Record) error
	// Delete removes the record with the given kind and id. Deleting a
	// missing record is not an error.
	Delete(ctx context.Context, kind Kind, id string) error
}

// Workflow is a persisted workflow definition.
type Workflow struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Active            bool   `json:"active"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	MaxRetries        int    `json:"max_retries"`
	RetryDelaySeconds int    `json:"retry_delay_seconds"`
}

// RecordID returns the workflow id.
func (w *Workflow) RecordID() string { return w.ID }

// RecordKind returns KindWorkflow.
func (w *Workflow) RecordKind() Kind { return KindWorkflow }

// Fields returns the workflow's filterable fields.
func (w *Workflow) Fields() map[string]any {
	return map[string]any{
		"id":     w.ID,
		"name":   w.Name,
		"active": w.Active,
	}
}

// WorkflowNode is a persisted node row. Config is JSON text.
type WorkflowNode struct {
	ID          string  `json:"id"`
	WorkflowID  string  `json:"workflow_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ConnectorID string  `json:"connector_id"`
	Config      string  `json:"config"`
	PositionX   float64 `json:"position_x"`
	PositionY   float64 `json:"position_y"`
}

// RecordID returns the node id.
func (n *WorkflowNode) RecordID() string { return n.ID }

// RecordKind returns KindNode.
func (n *WorkflowNode) RecordKind() Kind { return KindNode }

// Fields returns the node's filterable fields.
func (n *WorkflowNode) Fields() map[string]any {
	return map[string]any{
		"id":           n.ID,
		"workflow_id":  n.WorkflowID,
		"category":     n.Category,
		"connector_id": n.ConnectorID,
	}
}

// WorkflowConnection is a persisted directed edge row.
type WorkflowConnection struct {
	ID           string `json:"id"`
	WorkflowID   string `json:"workflow_id"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
}

// RecordID returns the connection id.
func (c *WorkflowConnection) RecordID() string { return c.ID }

// RecordKind returns KindConnection.
func (c *WorkflowConnection) RecordKind() Kind { return KindConnection }

// Fields returns the connection's filterable fields.
func (c *WorkflowConnection) Fields() map[string]any {
	return map[string]any{
		"id":             c.ID,
		"workflow_id":    c.WorkflowID,
		"source_node_id": c.SourceNodeID,
		"target_node_id": c.TargetNodeID,
	}
}

// Execution status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// WorkflowExecution is a persisted execution record. Logs is a JSON array
// of structured events; Results is a JSON object keyed by destination node
// id whose values are envelopes in map form.
type WorkflowExecution struct {
	ID           string    `json:"id"`
	WorkflowID   string    `json:"workflow_id"`
	Status       string    `json:"status"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Logs         string    `json:"logs,omitempty"`
	Results      string    `json:"results,omitempty"`
}

// RecordID returns the execution id.
func (e *WorkflowExecution) RecordID() string { return e.ID }

// RecordKind returns KindExecution.
func (e *WorkflowExecution) RecordKind() Kind { return KindExecution }

// Fields returns the execution's filterable fields.
func (e *WorkflowExecution) Fields() map[string]any {
	return map[string]any{
		"id":          e.ID,
		"workflow_id": e.WorkflowID,
		"status":      e.Status,
	}
}
