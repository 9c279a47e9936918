// Package engine executes workflow graphs: it compiles persisted nodes
// and edges into an in-memory DAG, schedules ready nodes onto a bounded
// worker pool, propagates data envelopes between them, and reports
// progress through durable execution records.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shashank-sharma/nenspace-sub007/workflow/graph"
	"github.com/shashank-sharma/nenspace-sub007/workflow/schema"
	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// Engine defaults, overridable through options.
const (
	DefaultMaxParallel      = 10
	DefaultWorkflowTimeout  = 3600 * time.Second
	DefaultLogFlushInterval = 2 * time.Second
	DefaultLogFlushBatch    = 10
	DefaultSampleLimit      = 20
	MaxSampleLimit          = 100

	// settleDelay lets the last visited-flag write become observable
	// before the ready queue closes.
	defaultSettleDelay = 50 * time.Millisecond
)

// Options configures an Engine.
type Options struct {
	// MaxParallel bounds concurrently running node workers.
	MaxParallel int
	// SchemaCacheTTL bounds the age of design-time schema cache entries.
	SchemaCacheTTL time.Duration
	// SchemaCacheMaxEntries bounds the schema cache size.
	SchemaCacheMaxEntries int
	// LogFlushInterval is the time trigger of the execution log flush.
	LogFlushInterval time.Duration
	// LogFlushBatch is the size trigger of the execution log flush.
	LogFlushBatch int
	// DefaultTimeout applies to workflows without TimeoutSeconds.
	DefaultTimeout time.Duration
	// SampleLimitDefault and SampleLimitMax bound sample-data previews.
	SampleLimitDefault int
	SampleLimitMax     int
	// SettleDelay is the pause between worker drain and queue close.
	SettleDelay time.Duration
}

// Option configures an Engine.
type Option func(*Options)

// WithMaxParallel sets the worker pool size.
func WithMaxParallel(n int) Option {
	return func(o *Options) { o.MaxParallel = n }
}

// WithSchemaCacheTTL sets the schema cache entry TTL.
func WithSchemaCacheTTL(ttl time.Duration) Option {
	return func(o *Options) { o.SchemaCacheTTL = ttl }
}

// WithSchemaCacheMaxEntries sets the schema cache size bound.
func WithSchemaCacheMaxEntries(n int) Option {
	return func(o *Options) { o.SchemaCacheMaxEntries = n }
}

// WithLogFlushInterval sets the execution log time trigger.
func WithLogFlushInterval(d time.Duration) Option {
	return func(o *Options) { o.LogFlushInterval = d }
}

// WithLogFlushBatch sets the execution log size trigger.
func WithLogFlushBatch(n int) Option {
	return func(o *Options) { o.LogFlushBatch = n }
}

// WithDefaultTimeout sets the fallback workflow timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *Options) { o.DefaultTimeout = d }
}

// WithSampleLimits sets the default and maximum preview limits.
func WithSampleLimits(defaultLimit, maxLimit int) Option {
	return func(o *Options) {
		o.SampleLimitDefault = defaultLimit
		o.SampleLimitMax = maxLimit
	}
}

// WithSettleDelay sets the scheduler settle delay.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Options) { o.SettleDelay = d }
}

func defaultOptions() Options {
	return Options{
		MaxParallel:           DefaultMaxParallel,
		SchemaCacheTTL:        schema.DefaultTTL,
		SchemaCacheMaxEntries: schema.DefaultMaxEntries,
		LogFlushInterval:      DefaultLogFlushInterval,
		LogFlushBatch:         DefaultLogFlushBatch,
		DefaultTimeout:        DefaultWorkflowTimeout,
		SampleLimitDefault:    DefaultSampleLimit,
		SampleLimitMax:        MaxSampleLimit,
		SettleDelay:           defaultSettleDelay,
	}
}

// Engine is the workflow execution engine. It owns the connector
// registry, the design-time schema cache, and the set of in-flight
// executions.
type Engine struct {
	store     store.Store
	registry  *types.Registry
	cache     *schema.Cache
	validator *graph.Validator
	opts      Options
	stats     *connectorStats

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New creates an engine over the given store and connector registry.
func New(st store.Store, registry *types.Registry, opts ...Option) *Engine {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.MaxParallel <= 0 {
		options.MaxParallel = DefaultMaxParallel
	}
	return &Engine{
		store:     st,
		registry:  registry,
		cache:     schema.NewCache(options.SchemaCacheTTL, options.SchemaCacheMaxEntries),
		validator: graph.NewValidator(registry),
		opts:      options,
		stats:     newConnectorStats(),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Registry returns the engine's connector registry.
func (e *Engine) Registry() *types.Registry { return e.registry }

// ListConnectors returns descriptors for every registered connector.
func (e *Engine) ListConnectors() []*types.ConnectorDescriptor {
	return e.registry.List()
}

// CacheStats returns the schema cache counters.
func (e *Engine) CacheStats() schema.Stats { return e.cache.Stats() }

// ConnectorStats returns per-connector execution counters.
func (e *Engine) ConnectorStats() []ConnectorStats { return e.stats.Snapshot() }

// ValidateWorkflow loads the workflow's persisted graph and validates it.
func (e *Engine) ValidateWorkflow(ctx context.Context, workflowID string) (*graph.ValidationResult, error) {
	g, err := e.loadGraph(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return e.validator.Validate(g), nil
}

// ExecutionSnapshot is an execution record with its logs and results
// parsed out of their serialized form.
type ExecutionSnapshot struct {
	Execution *store.WorkflowExecution `json:"execution"`
	Logs      []LogEvent               `json:"logs"`
	Results   map[string]any           `json:"results"`
}

// GetExecutionStatus returns the execution record with parsed logs and
// results.
func (e *Engine) GetExecutionStatus(ctx context.Context, executionID string) (*ExecutionSnapshot, error) {
	record, err := e.store.FindByID(ctx, store.KindExecution, executionID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}
	exec, ok := record.(*store.WorkflowExecution)
	if !ok {
		return nil, fmt.Errorf("execution %s: unexpected record type %T", executionID, record)
	}

	snapshot := &ExecutionSnapshot{
		Execution: exec,
		Logs:      []LogEvent{},
		Results:   map[string]any{},
	}
	if exec.Logs != "" {
		if err := json.Unmarshal([]byte(exec.Logs), &snapshot.Logs); err != nil {
			return nil, fmt.Errorf("execution %s: parse logs: %w", executionID, err)
		}
	}
	if exec.Results != "" {
		if err := json.Unmarshal([]byte(exec.Results), &snapshot.Results); err != nil {
			return nil, fmt.Errorf("execution %s: parse results: %w", executionID, err)
		}
	}
	return snapshot, nil
}

// CancelExecution cancels a running execution. The execution record
// transitions to cancelled once its workers observe the cancellation.
func (e *Engine) CancelExecution(executionID string) error {
	e.mu.Lock()
	cancel, ok := e.cancels[executionID]
	e.mu.Unlock()
	if !ok {
		return &types.WorkflowError{
			Code:    types.CodeExecution,
			Message: fmt.Sprintf("no running execution with id %s", executionID),
		}
	}
	cancel()
	return nil
}

func (e *Engine) registerCancel(executionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	e.cancels[executionID] = cancel
	e.mu.Unlock()
}

func (e *Engine) unregisterCancel(executionID string) {
	e.mu.Lock()
	delete(e.cancels, executionID)
	e.mu.Unlock()
}

func (e *Engine) loadWorkflow(ctx context.Context, workflowID string) (*store.Workflow, error) {
	record, err := e.store.FindByID(ctx, store.KindWorkflow, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}
	wf, ok := record.(*store.Workflow)
	if !ok {
		return nil, fmt.Errorf("workflow %s: unexpected record type %T", workflowID, record)
	}
	return wf, nil
}

func (e *Engine) loadGraph(ctx context.Context, workflowID string) (*graph.Graph, error) {
	nodes, connections, err := e.loadGraphRows(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	g, err := graph.Build(nodes, connections)
	if err != nil {
		return nil, fmt.Errorf("build graph for workflow %s: %w", workflowID, err)
	}
	return g, nil
}

func (e *Engine) loadGraphRows(ctx context.Context, workflowID string) ([]*store.WorkflowNode, []*store.WorkflowConnection, error) {
	filter := map[string]any{"workflow_id": workflowID}

	nodeRecords, err := e.store.FindByFilter(ctx, store.KindNode, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("load nodes for workflow %s: %w", workflowID, err)
	}
	nodes := make([]*store.WorkflowNode, 0, len(nodeRecords))
	for _, record := range nodeRecords {
		node, ok := record.(*store.WorkflowNode)
		if !ok {
			return nil, nil, fmt.Errorf("workflow %s: unexpected node record type %T", workflowID, record)
		}
		nodes = append(nodes, node)
	}

	connRecords, err := e.store.FindByFilter(ctx, store.KindConnection, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("load connections for workflow %s: %w", workflowID, err)
	}
	connections := make([]*store.WorkflowConnection, 0, len(connRecords))
	for _, record := range connRecords {
		conn, ok := record.(*store.WorkflowConnection)
		if !ok {
			return nil, nil, fmt.Errorf("workflow %s: unexpected connection record type %T", workflowID, record)
		}
		connections = append(connections, conn)
	}

	return nodes, connections, nil
}
