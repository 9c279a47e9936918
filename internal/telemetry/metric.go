// Package telemetry holds the engine's metric instruments.
//
// The default instruments are no-ops. Installing a real
// metric.MeterProvider via SetMeterProvider wires them to an exporter.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attribute keys used on workflow metrics.
const (
	KeyWorkflowID  = "workflow.id"
	KeyConnectorID = "workflow.connector.id"
	KeyNodeID      = "workflow.node.id"
	KeyStatus      = "workflow.status"

	meterName = "nenspace.workflow"
)

var (
	// MeterProvider is the provider backing the instruments below.
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	workflowExecutionCnt  metric.Int64Counter     = noop.Int64Counter{}
	nodeExecutionCnt      metric.Int64Counter     = noop.Int64Counter{}
	nodeExecutionDuration metric.Float64Histogram = noop.Float64Histogram{}
	schemaCacheHitCnt     metric.Int64Counter     = noop.Int64Counter{}
	schemaCacheMissCnt    metric.Int64Counter     = noop.Int64Counter{}
	schemaCacheEvictCnt   metric.Int64Counter     = noop.Int64Counter{}
)

// SetMeterProvider installs a real meter provider and recreates all
// instruments against it. Instrument creation errors fall back to no-ops.
func SetMeterProvider(mp metric.MeterProvider) {
	MeterProvider = mp
	meter := mp.Meter(meterName)

	if c, err := meter.Int64Counter("workflow.execution.count"); err == nil {
		workflowExecutionCnt = c
	}
	if c, err := meter.Int64Counter("workflow.node.execution.count"); err == nil {
		nodeExecutionCnt = c
	}
	if h, err := meter.Float64Histogram("workflow.node.execution.duration",
		metric.WithUnit("s")); err == nil {
		nodeExecutionDuration = h
	}
	if c, err := meter.Int64Counter("workflow.schema.cache.hit"); err == nil {
		schemaCacheHitCnt = c
	}
	if c, err := meter.Int64Counter("workflow.schema.cache.miss"); err == nil {
		schemaCacheMissCnt = c
	}
	if c, err := meter.Int64Counter("workflow.schema.cache.eviction"); err == nil {
		schemaCacheEvictCnt = c
	}
}

// IncWorkflowExecution counts a finished workflow execution by status.
func IncWorkflowExecution(ctx context.Context, workflowID, status string) {
	workflowExecutionCnt.Add(ctx, 1, metric.WithAttributes(
		attribute.String(KeyWorkflowID, workflowID),
		attribute.String(KeyStatus, status),
	))
}

// IncNodeExecution counts a node execution attempt outcome for a connector.
func IncNodeExecution(ctx context.Context, connectorID, nodeID, status string) {
	nodeExecutionCnt.Add(ctx, 1, metric.WithAttributes(
		attribute.String(KeyConnectorID, connectorID),
		attribute.String(KeyNodeID, nodeID),
		attribute.String(KeyStatus, status),
	))
}

// RecordNodeExecutionDuration records a node's wall-clock execution time.
func RecordNodeExecutionDuration(ctx context.Context, connectorID string, d time.Duration) {
	nodeExecutionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(KeyConnectorID, connectorID),
	))
}

// IncSchemaCacheHit counts a design-time schema cache hit.
func IncSchemaCacheHit(ctx context.Context) {
	schemaCacheHitCnt.Add(ctx, 1)
}

// IncSchemaCacheMiss counts a design-time schema cache miss.
func IncSchemaCacheMiss(ctx context.Context) {
	schemaCacheMissCnt.Add(ctx, 1)
}

// IncSchemaCacheEviction counts an entry evicted from the schema cache.
func IncSchemaCacheEviction(ctx context.Context) {
	schemaCacheEvictCnt.Add(ctx, 1)
}
