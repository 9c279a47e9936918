package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shashank-sharma/nenspace-sub007/log"
	"github.com/shashank-sharma/nenspace-sub007/workflow/graph"
	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
)

// SaveResult reports the outcome of SaveWorkflowGraph.
type SaveResult struct {
	// Validation is the result of validating the saved graph. Invalid
	// graphs are still persisted; they only fail at execution start.
	Validation *graph.ValidationResult `json:"validation"`
	// Nodes and Connections are the persisted rows with durable ids.
	Nodes       []*store.WorkflowNode       `json:"nodes"`
	Connections []*store.WorkflowConnection `json:"connections"`
	// IDMap maps temporary editor ids to the durable ids minted for them.
	IDMap map[string]string `json:"id_map,omitempty"`
}

// SaveWorkflowGraph replaces the persisted graph of a workflow with the
// given nodes and connections. Temporary editor ids are replaced with
// durable ids and edge endpoints are rewritten accordingly; rows absent
// from the new graph are deleted. The workflow's schema cache entries are
// invalidated.
func (e *Engine) SaveWorkflowGraph(ctx context.Context, workflowID string,
	nodes []*store.WorkflowNode, connections []*store.WorkflowConnection) (*SaveResult, error) {
	if _, err := e.loadWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}

	idMap := make(map[string]string)
	savedNodes := make([]*store.WorkflowNode, 0, len(nodes))
	for _, node := range nodes {
		row := *node
		row.WorkflowID = workflowID
		if row.ID == "" || graph.IsTempID(row.ID) {
			durable := uuid.NewString()
			if row.ID != "" {
				idMap[row.ID] = durable
			}
			row.ID = durable
		}
		savedNodes = append(savedNodes, &row)
	}

	savedConns := make([]*store.WorkflowConnection, 0, len(connections))
	for _, conn := range connections {
		row := *conn
		row.WorkflowID = workflowID
		if durable, ok := idMap[row.SourceNodeID]; ok {
			row.SourceNodeID = durable
		}
		if durable, ok := idMap[row.TargetNodeID]; ok {
			row.TargetNodeID = durable
		}
		if row.ID == "" || graph.IsTempID(row.ID) {
			durable := uuid.NewString()
			if row.ID != "" {
				idMap[row.ID] = durable
			}
			row.ID = durable
		}
		savedConns = append(savedConns, &row)
	}

	g, err := graph.Build(savedNodes, savedConns)
	if err != nil {
		return nil, fmt.Errorf("save workflow %s: %w", workflowID, err)
	}
	validation := e.validator.Validate(g)

	existingNodes, existingConns, err := e.loadGraphRows(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	keepNodes := make(map[string]bool, len(savedNodes))
	for _, row := range savedNodes {
		keepNodes[row.ID] = true
	}
	for _, row := range existingNodes {
		if !keepNodes[row.ID] {
			if err := e.store.Delete(ctx, store.KindNode, row.ID); err != nil {
				return nil, fmt.Errorf("delete node %s: %w", row.ID, err)
			}
		}
	}
	keepConns := make(map[string]bool, len(savedConns))
	for _, row := range savedConns {
		keepConns[row.ID] = true
	}
	for _, row := range existingConns {
		if !keepConns[row.ID] {
			if err := e.store.Delete(ctx, store.KindConnection, row.ID); err != nil {
				return nil, fmt.Errorf("delete connection %s: %w", row.ID, err)
			}
		}
	}

	for _, row := range savedNodes {
		if err := e.store.Save(ctx, row); err != nil {
			return nil, fmt.Errorf("save node %s: %w", row.ID, err)
		}
	}
	for _, row := range savedConns {
		if err := e.store.Save(ctx, row); err != nil {
			return nil, fmt.Errorf("save connection %s: %w", row.ID, err)
		}
	}

	e.cache.InvalidateWorkflow(workflowID)
	log.Infof("workflow %s: saved %d nodes, %d connections", workflowID, len(savedNodes), len(savedConns))

	return &SaveResult{
		Validation:  validation,
		Nodes:       savedNodes,
		Connections: savedConns,
		IDMap:       idMap,
	}, nil
}
