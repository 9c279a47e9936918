package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/shashank-sharma/nenspace-sub007/workflow/graph"
	"github.com/shashank-sharma/nenspace-sub007/workflow/schema"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// GetNodeOutputSchema derives the output schema of a node at design time,
// without executing any connector against real data. Derivation recurses
// over the node's upstream chain and memoises results in the schema
// cache, keyed by config and input hashes.
func (e *Engine) GetNodeOutputSchema(ctx context.Context, workflowID, nodeID string) (*types.DataSchema, error) {
	g, err := e.loadGraph(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	d := newSchemaDeriver(e, g, workflowID)
	return d.derive(ctx, nodeID)
}

// NodeSchemaInfo is one entry of a workflow-wide schema report.
type NodeSchemaInfo struct {
	NodeName    string            `json:"node_name"`
	ConnectorID string            `json:"connector_id"`
	Schema      *types.DataSchema `json:"schema,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// GetWorkflowSchema derives the output schema of every node in the
// workflow. A node whose derivation fails gets an error entry; one bad
// node does not hide the others.
func (e *Engine) GetWorkflowSchema(ctx context.Context, workflowID string) (map[string]NodeSchemaInfo, error) {
	g, err := e.loadGraph(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	d := newSchemaDeriver(e, g, workflowID)

	report := make(map[string]NodeSchemaInfo, len(g.Nodes))
	for id, node := range g.Nodes {
		info := NodeSchemaInfo{NodeName: node.Name, ConnectorID: node.ConnectorID}
		derived, err := d.derive(ctx, id)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Schema = derived
		}
		report[id] = info
	}
	return report, nil
}

// schemaDeriver walks a graph upstream-first, deriving output schemas.
// Results are memoised per call so shared upstream nodes derive once, and
// in the engine cache across calls.
type schemaDeriver struct {
	engine     *Engine
	graph      *graph.Graph
	workflowID string
	labels     map[string]string
	visiting   map[string]bool
	schemas    map[string]*types.DataSchema
	hashes     map[string]string
}

func newSchemaDeriver(e *Engine, g *graph.Graph, workflowID string) *schemaDeriver {
	return &schemaDeriver{
		engine:     e,
		graph:      g,
		workflowID: workflowID,
		labels:     g.NodeLabels(),
		visiting:   make(map[string]bool),
		schemas:    make(map[string]*types.DataSchema),
		hashes:     make(map[string]string),
	}
}

func (d *schemaDeriver) derive(ctx context.Context, nodeID string) (*types.DataSchema, error) {
	if derived, ok := d.schemas[nodeID]; ok {
		return derived.Clone(), nil
	}
	node, ok := d.graph.Nodes[nodeID]
	if !ok {
		return nil, types.NewValidationError(fmt.Sprintf("node %s does not exist", nodeID))
	}
	if d.visiting[nodeID] {
		return nil, types.NewValidationError(graph.ErrCircularDependency)
	}
	d.visiting[nodeID] = true
	defer delete(d.visiting, nodeID)

	configHash, err := schema.HashConfig(node.Config)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, err)
	}

	inputSchemas := make([]*types.DataSchema, 0, len(node.Inputs))
	inputHashes := make([]string, 0, len(node.Inputs))
	for _, upstream := range node.Inputs {
		upstreamSchema, err := d.derive(ctx, upstream)
		if err != nil {
			return nil, err
		}
		inputSchemas = append(inputSchemas, upstreamSchema)
		hash, err := d.schemaHash(upstream, upstreamSchema)
		if err != nil {
			return nil, err
		}
		inputHashes = append(inputHashes, hash)
	}

	if cached, ok := d.engine.cache.Get(ctx, nodeID, configHash, inputHashes); ok {
		d.schemas[nodeID] = cached
		return cached.Clone(), nil
	}

	derived, err := d.deriveFromConnector(node, inputSchemas)
	if err != nil {
		return nil, err
	}
	if derived == nil {
		derived = &types.DataSchema{}
	}
	if node.IsSource() {
		if !derived.HasSourceNode(node.ID) {
			derived.SourceNodes = append(derived.SourceNodes, node.ID)
		}
		for i := range derived.Fields {
			if derived.Fields[i].SourceNode == "" {
				derived.Fields[i].SourceNode = node.ID
			}
		}
	}

	d.engine.cache.Set(ctx, d.workflowID, nodeID, derived, configHash, inputHashes)
	d.schemas[nodeID] = derived
	return derived.Clone(), nil
}

func (d *schemaDeriver) deriveFromConnector(node *graph.Node, inputSchemas []*types.DataSchema) (*types.DataSchema, error) {
	conn, err := d.engine.registry.Create(node.ConnectorID)
	if err != nil {
		return nil, err
	}
	if err := conn.Configure(node.Config); err != nil {
		if types.IsCode(err, types.CodeConfiguration) {
			return nil, err
		}
		return nil, types.NewConfigurationError(err.Error(), node.ID, node.ConnectorID)
	}
	schemaAware, ok := conn.(types.SchemaAwareConnector)
	if !ok {
		return nil, types.NewConfigurationError(
			fmt.Sprintf("connector %s does not support schema derivation", node.ConnectorID),
			node.ID, node.ConnectorID)
	}

	var input *types.DataSchema
	if !node.IsSource() && len(inputSchemas) > 0 {
		input = types.MergeSchemas(inputSchemas, d.labels)
	}
	derived, err := schemaAware.GetOutputSchema(input)
	if err != nil {
		return nil, types.NewConnectorError(node.ConnectorID, err)
	}
	return derived, nil
}

func (d *schemaDeriver) schemaHash(nodeID string, derived *types.DataSchema) (string, error) {
	if hash, ok := d.hashes[nodeID]; ok {
		return hash, nil
	}
	hash, err := schema.HashSchema(derived)
	if err != nil {
		return "", fmt.Errorf("node %s: %w", nodeID, err)
	}
	d.hashes[nodeID] = hash
	return hash, nil
}

// GetNodeSampleData executes the node's upstream chain against real
// connectors and returns a truncated preview envelope. Nothing is
// persisted; limit is clamped to the configured maximum.
func (e *Engine) GetNodeSampleData(ctx context.Context, workflowID, nodeID string, limit int) (map[string]any, error) {
	if limit <= 0 {
		limit = e.opts.SampleLimitDefault
	}
	if limit > e.opts.SampleLimitMax {
		limit = e.opts.SampleLimitMax
	}

	g, err := e.loadGraph(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	s := &sampler{
		engine:   e,
		graph:    g,
		labels:   g.NodeLabels(),
		limit:    limit,
		visiting: make(map[string]bool),
		memo:     make(map[string]map[string]any),
	}
	return s.sample(ctx, nodeID)
}

type sampler struct {
	engine   *Engine
	graph    *graph.Graph
	labels   map[string]string
	limit    int
	visiting map[string]bool
	memo     map[string]map[string]any
}

func (s *sampler) sample(ctx context.Context, nodeID string) (map[string]any, error) {
	if envelope, ok := s.memo[nodeID]; ok {
		return envelope, nil
	}
	node, ok := s.graph.Nodes[nodeID]
	if !ok {
		return nil, types.NewValidationError(fmt.Sprintf("node %s does not exist", nodeID))
	}
	if s.visiting[nodeID] {
		return nil, types.NewValidationError(graph.ErrCircularDependency)
	}
	s.visiting[nodeID] = true
	defer delete(s.visiting, nodeID)

	inputs := make([]map[string]any, 0, len(node.Inputs))
	for _, upstream := range node.Inputs {
		envelope, err := s.sample(ctx, upstream)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, envelope)
	}

	var input map[string]any
	if !node.IsSource() && len(inputs) > 0 {
		input = aggregateNodeInputs(inputs, s.labels)
	}

	conn, err := s.engine.registry.Create(node.ConnectorID)
	if err != nil {
		return nil, err
	}
	if err := conn.Configure(node.Config); err != nil {
		if types.IsCode(err, types.CodeConfiguration) {
			return nil, err
		}
		return nil, types.NewConfigurationError(err.Error(), node.ID, node.ConnectorID)
	}
	output, err := conn.Execute(ctx, input)
	if err != nil {
		var wfErr *types.WorkflowError
		if errors.As(err, &wfErr) {
			return nil, err
		}
		return nil, types.NewExecutionError(node.ID, err)
	}

	envelope := types.FromMap(output)
	envelope.Metadata.NodeID = node.ID
	envelope.Metadata.NodeType = node.ConnectorID
	if len(envelope.Data) > s.limit {
		envelope.Data = envelope.Data[:s.limit]
	}
	envelope.Metadata.RecordCount = len(envelope.Data)
	if len(envelope.Metadata.Schema.Fields) == 0 && len(envelope.Data) > 0 {
		envelope.Metadata.Schema = types.InferSchemaFromData(node.ID, envelope.Data)
	}
	if node.IsSource() {
		stampSourceNode(envelope, node.ID)
	}

	result := envelope.ToMap()
	s.memo[nodeID] = result
	return result, nil
}
