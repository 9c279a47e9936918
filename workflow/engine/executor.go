package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/shashank-sharma/nenspace-sub007/internal/telemetry"
	"github.com/shashank-sharma/nenspace-sub007/log"
	"github.com/shashank-sharma/nenspace-sub007/workflow/graph"
	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// ExecuteWorkflow starts an asynchronous execution of the workflow and
// returns the created execution record in running state. The run itself
// is detached from ctx; it is bounded by the workflow timeout and by
// CancelExecution.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string) (*store.WorkflowExecution, error) {
	wf, err := e.loadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	exec := &store.WorkflowExecution{
		ID:         uuid.NewString(),
		WorkflowID: wf.ID,
		Status:     store.StatusRunning,
		StartTime:  time.Now(),
	}
	if err := e.store.Save(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution record: %w", err)
	}

	timeout := e.opts.DefaultTimeout
	if wf.TimeoutSeconds > 0 {
		timeout = time.Duration(wf.TimeoutSeconds) * time.Second
	}
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	e.registerCancel(exec.ID, cancel)

	go e.run(runCtx, cancel, wf, exec)

	snapshot := *exec
	return &snapshot, nil
}

func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, wf *store.Workflow, exec *store.WorkflowExecution) {
	defer e.unregisterCancel(exec.ID)
	defer cancel()

	buf := newLogBuffer(e.store, exec, e.opts.LogFlushInterval, e.opts.LogFlushBatch)
	log.Infof("workflow %s: execution %s started", wf.ID, exec.ID)
	buf.Info("workflow execution started", map[string]any{"workflowId": wf.ID})

	g, err := e.loadGraph(ctx, wf.ID)
	if err != nil {
		e.finish(buf, wf, store.StatusFailed, types.NewValidationError(err.Error()), nil)
		return
	}
	validation := e.validator.Validate(g)
	for _, warning := range validation.Warnings {
		buf.Warn(warning, nil)
	}
	if !validation.Valid {
		err := types.NewValidationError(strings.Join(validation.Errors, "; "))
		e.finish(buf, wf, store.StatusFailed, err, nil)
		return
	}

	results, runErr := e.runGraph(ctx, g, wf, buf)

	status := store.StatusCompleted
	var termErr error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = store.StatusFailed
		termErr = types.NewTimeoutError(e.timeoutSeconds(wf))
	case errors.Is(ctx.Err(), context.Canceled):
		status = store.StatusCancelled
		termErr = types.NewCancellationError()
	case runErr != nil:
		status = store.StatusFailed
		termErr = runErr
	}
	e.finish(buf, wf, status, termErr, results)
}

func (e *Engine) finish(buf *logBuffer, wf *store.Workflow, status string, err error, results map[string]any) {
	message := ""
	if err != nil {
		message = err.Error()
		buf.Error(message, nil)
		log.Errorf("workflow %s: execution finished %s: %v", wf.ID, status, err)
	} else {
		buf.Info("workflow execution completed", nil)
		log.Infof("workflow %s: execution finished %s", wf.ID, status)
	}
	buf.Finish(status, message, results)
	telemetry.IncWorkflowExecution(context.Background(), wf.ID, status)
}

// runState is the shared scheduler state: which nodes completed and what
// they produced. Both maps are guarded by mu; the visited flag and the
// downstream readiness check transition under the same lock so a node is
// enqueued exactly once.
type runState struct {
	mu      sync.Mutex
	visited map[string]bool
	results map[string]map[string]any
}

// runGraph executes g with a bounded worker pool. Source nodes seed the
// ready queue; each completed node enqueues those of its successors whose
// inputs are all available. The first node failure wins and is returned.
// The envelopes computed so far are returned keyed by node id on every
// path, so failed and cancelled executions keep their partial results.
func (e *Engine) runGraph(ctx context.Context, g *graph.Graph, wf *store.Workflow, buf *logBuffer) (map[string]any, error) {
	pool, err := ants.NewPool(e.opts.MaxParallel)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	state := &runState{
		visited: make(map[string]bool),
		results: make(map[string]map[string]any),
	}
	labels := g.NodeLabels()

	// Queue capacity covers every node so enqueues from inside workers
	// never block while holding the state lock.
	readyCh := make(chan *graph.Node, len(g.Nodes)+1)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	sources := g.SourceNodes()
	wg.Add(len(sources))
	for _, n := range sources {
		readyCh <- n
	}

	// The queue closes once every admitted node has drained. Each enqueue
	// increments wg before the send, so the close cannot race a pending
	// enqueue.
	go func() {
		wg.Wait()
		time.Sleep(e.opts.SettleDelay)
		close(readyCh)
	}()

	for node := range readyCh {
		n := node
		if submitErr := pool.Submit(func() {
			defer wg.Done()
			e.runNode(ctx, g, wf, n, state, readyCh, errCh, labels, buf, &wg)
		}); submitErr != nil {
			wg.Done()
			reportError(errCh, fmt.Errorf("submit node %s: %w", n.ID, submitErr))
		}
	}

	results := make(map[string]any, len(state.results))
	state.mu.Lock()
	for id, envelope := range state.results {
		results[id] = envelope
	}
	state.mu.Unlock()

	select {
	case err := <-errCh:
		return results, err
	default:
	}
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

func (e *Engine) runNode(ctx context.Context, g *graph.Graph, wf *store.Workflow, n *graph.Node,
	state *runState, readyCh chan *graph.Node, errCh chan error,
	labels map[string]string, buf *logBuffer, wg *sync.WaitGroup) {
	if ctx.Err() != nil {
		return
	}

	state.mu.Lock()
	if state.visited[n.ID] {
		state.mu.Unlock()
		return
	}
	inputs := make([]map[string]any, 0, len(n.Inputs))
	missing := ""
	for _, upstream := range n.Inputs {
		envelope, ok := state.results[upstream]
		if !ok {
			missing = upstream
			break
		}
		inputs = append(inputs, envelope)
	}
	state.mu.Unlock()

	if missing != "" {
		reportError(errCh, types.NewExecutionError(n.ID,
			fmt.Errorf("input from node %s is not available", missing)))
		return
	}

	var input map[string]any
	if !n.IsSource() {
		input = aggregateNodeInputs(inputs, labels)
	}

	buf.Info(fmt.Sprintf("executing node %s", n.Name),
		map[string]any{"nodeId": n.ID, "connectorId": n.ConnectorID})

	output, err := e.executeNodeWithRetry(ctx, wf, n, input, buf)
	if err != nil {
		if ctx.Err() == nil {
			buf.Error(fmt.Sprintf("node %s failed: %v", n.Name, err),
				map[string]any{"nodeId": n.ID})
			reportError(errCh, err)
		}
		return
	}

	state.mu.Lock()
	state.results[n.ID] = output
	state.visited[n.ID] = true
	enqueued := make(map[string]bool, len(n.Outputs))
	for _, nextID := range n.Outputs {
		if enqueued[nextID] || state.visited[nextID] {
			continue
		}
		next := g.Nodes[nextID]
		ready := true
		for _, upstream := range next.Inputs {
			if !state.visited[upstream] {
				ready = false
				break
			}
		}
		if ready {
			enqueued[nextID] = true
			wg.Add(1)
			readyCh <- next
		}
	}
	state.mu.Unlock()
}

// aggregateNodeInputs merges the map-form envelopes produced by a node's
// upstream neighbours into the single input envelope the node receives.
func aggregateNodeInputs(inputs []map[string]any, labels map[string]string) map[string]any {
	envelopes := make([]*types.DataEnvelope, 0, len(inputs))
	for _, raw := range inputs {
		envelopes = append(envelopes, types.FromMap(raw))
	}
	return types.MergeEnvelopes(envelopes, labels).ToMap()
}

// executeNodeWithRetry runs a node up to MaxRetries+1 times with linear
// backoff. Configuration errors and context termination end the attempts
// immediately.
func (e *Engine) executeNodeWithRetry(ctx context.Context, wf *store.Workflow, n *graph.Node,
	input map[string]any, buf *logBuffer) (map[string]any, error) {
	attempts := wf.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, e.contextError(ctx, wf)
		}
		if attempt > 1 {
			delay := time.Duration(wf.RetryDelaySeconds) * time.Second * time.Duration(attempt-1)
			if delay > 0 {
				select {
				case <-ctx.Done():
					return nil, e.contextError(ctx, wf)
				case <-time.After(delay):
				}
			}
			buf.Warn(fmt.Sprintf("retrying node %s (attempt %d of %d)", n.Name, attempt, attempts),
				map[string]any{"nodeId": n.ID})
		}

		output, err := e.executeNodeOnce(ctx, n, input, buf)
		if err == nil {
			return output, nil
		}
		if ctx.Err() != nil {
			return nil, e.contextError(ctx, wf)
		}
		if types.IsCode(err, types.CodeConfiguration) {
			return nil, err
		}
		lastErr = err
		buf.Warn(fmt.Sprintf("node %s attempt %d failed: %v", n.Name, attempt, err),
			map[string]any{"nodeId": n.ID})
		log.Warnf("node %s attempt %d failed: %v", n.ID, attempt, err)
	}
	return nil, lastErr
}

// executeNodeOnce creates a fresh connector instance, configures it, runs
// it, and normalizes the output envelope metadata.
func (e *Engine) executeNodeOnce(ctx context.Context, n *graph.Node, input map[string]any,
	buf *logBuffer) (map[string]any, error) {
	conn, err := e.registry.Create(n.ConnectorID)
	if err != nil {
		return nil, err
	}
	if err := conn.Configure(n.Config); err != nil {
		if types.IsCode(err, types.CodeConfiguration) {
			return nil, err
		}
		return nil, types.NewConfigurationError(err.Error(), n.ID, n.ConnectorID)
	}

	// Input schema mismatches are advisory: connectors receive the data
	// regardless and decide themselves what to do with unknown fields.
	if schemaAware, ok := conn.(types.SchemaAwareConnector); ok && input != nil {
		inputEnv := types.FromMap(input)
		if err := schemaAware.ValidateInputSchema(&inputEnv.Metadata.Schema); err != nil {
			buf.Warn(fmt.Sprintf("node %s: input schema validation: %v", n.Name, err),
				map[string]any{"nodeId": n.ID})
			log.Warnf("node %s: input schema validation: %v", n.ID, err)
		}
	}

	start := time.Now()
	output, err := conn.Execute(ctx, input)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	telemetry.RecordNodeExecutionDuration(ctx, n.ConnectorID, elapsed)
	telemetry.IncNodeExecution(ctx, n.ConnectorID, n.ID, status)
	e.stats.record(n.ConnectorID, err == nil, elapsed)

	if err != nil {
		var wfErr *types.WorkflowError
		if errors.As(err, &wfErr) {
			return nil, err
		}
		return nil, types.NewExecutionError(n.ID, err)
	}

	envelope := types.FromMap(output)
	envelope.Metadata.NodeID = n.ID
	envelope.Metadata.NodeType = n.ConnectorID
	envelope.Metadata.ExecutionTimeMs = elapsed.Milliseconds()
	envelope.Metadata.RecordCount = len(envelope.Data)
	if len(envelope.Metadata.Schema.Fields) == 0 && len(envelope.Data) > 0 {
		envelope.Metadata.Schema = types.InferSchemaFromData(n.ID, envelope.Data)
	}
	if n.IsSource() {
		stampSourceNode(envelope, n.ID)
	}
	return envelope.ToMap(), nil
}

func (e *Engine) contextError(ctx context.Context, wf *store.Workflow) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return types.NewTimeoutError(e.timeoutSeconds(wf))
	}
	return types.NewCancellationError()
}

func (e *Engine) timeoutSeconds(wf *store.Workflow) int {
	if wf.TimeoutSeconds > 0 {
		return wf.TimeoutSeconds
	}
	return int(e.opts.DefaultTimeout / time.Second)
}

// stampSourceNode fills in the producing source node's id on an envelope
// whose connector could not know it: the sources set, the schema's source
// list, and each field's lineage.
func stampSourceNode(envelope *types.DataEnvelope, nodeID string) {
	if !containsString(envelope.Metadata.Sources, nodeID) {
		envelope.Metadata.Sources = append(envelope.Metadata.Sources, nodeID)
	}
	if !envelope.Metadata.Schema.HasSourceNode(nodeID) {
		envelope.Metadata.Schema.SourceNodes = append(envelope.Metadata.Schema.SourceNodes, nodeID)
	}
	for i := range envelope.Metadata.Schema.Fields {
		if envelope.Metadata.Schema.Fields[i].SourceNode == "" {
			envelope.Metadata.Schema.Fields[i].SourceNode = nodeID
		}
	}
}

// reportError records the first failure; later ones are dropped.
func reportError(errCh chan error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
