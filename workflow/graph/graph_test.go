package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

func nodeRow(id, category, connectorID, config string) *store.WorkflowNode {
	return &store.WorkflowNode{
		ID:          id,
		WorkflowID:  "wf-1",
		Name:        "Node " + id,
		Category:    category,
		ConnectorID: connectorID,
		Config:      config,
	}
}

func edgeRow(id, from, to string) *store.WorkflowConnection {
	return &store.WorkflowConnection{
		ID:           id,
		WorkflowID:   "wf-1",
		SourceNodeID: from,
		TargetNodeID: to,
	}
}

func TestBuild(t *testing.T) {
	nodes := []*store.WorkflowNode{
		nodeRow("a", string(types.SourceConnector), "static_source", `{"records":[]}`),
		nodeRow("b", string(types.ProcessorConnector), "filter", ""),
		nodeRow("c", string(types.DestinationConnector), "memory_destination", `{"key":"out"}`),
	}
	edges := []*store.WorkflowConnection{
		edgeRow("e1", "a", "b"),
		edgeRow("e2", "b", "c"),
	}

	g, err := Build(nodes, edges)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, []string{"b"}, g.Nodes["a"].Outputs)
	assert.Equal(t, []string{"a"}, g.Nodes["b"].Inputs)
	assert.Equal(t, []string{"b"}, g.Nodes["c"].Inputs)
	assert.Equal(t, map[string]any{"records": []any{}}, g.Nodes["a"].Config)
	assert.Empty(t, g.Nodes["b"].Config)

	sources := g.SourceNodes()
	require.Len(t, sources, 1)
	assert.Equal(t, "a", sources[0].ID)
	destinations := g.DestinationNodes()
	require.Len(t, destinations, 1)
	assert.Equal(t, "c", destinations[0].ID)

	labels := g.NodeLabels()
	assert.Equal(t, "Node a", labels["a"])
}

func TestBuildRejectsDanglingEdges(t *testing.T) {
	nodes := []*store.WorkflowNode{
		nodeRow("a", string(types.SourceConnector), "static_source", ""),
	}

	t.Run("missing target", func(t *testing.T) {
		_, err := Build(nodes, []*store.WorkflowConnection{edgeRow("e1", "a", "ghost")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "target node ghost")
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := Build(nodes, []*store.WorkflowConnection{edgeRow("e1", "ghost", "a")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source node ghost")
	})
}

func TestBuildRejectsBadConfigJSON(t *testing.T) {
	nodes := []*store.WorkflowNode{
		nodeRow("a", string(types.SourceConnector), "static_source", "{not json"),
	}

	_, err := Build(nodes, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config JSON")
}

func TestIsTempID(t *testing.T) {
	assert.True(t, IsTempID("node_17"))
	assert.True(t, IsTempID("edge_3"))
	assert.False(t, IsTempID("1f8b2c"))
	assert.False(t, IsTempID(""))
}
