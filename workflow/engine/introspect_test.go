package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-sharma/nenspace-sub007/workflow/connectors"
	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

func seedLinear(t *testing.T, st store.Store) {
	t.Helper()
	wf := &store.Workflow{ID: "wf-1", Name: "Linear"}
	nodes := []*store.WorkflowNode{
		nodeRow("src", "wf-1", "Users", types.SourceConnector, connectors.StaticSourceID,
			`{"records":[{"id":1,"name":"alice"},{"id":2,"name":"bob"},{"id":3,"name":"carol"}]}`),
		nodeRow("map", "wf-1", "Rename", types.ProcessorConnector, connectors.FieldMapperID,
			`{"mappings":{"name":"full_name"}}`),
		nodeRow("dst", "wf-1", "Out", types.DestinationConnector, connectors.MemoryDestinationID,
			`{"key":"out"}`),
	}
	edges := []*store.WorkflowConnection{
		edgeRow("e1", "wf-1", "src", "map"),
		edgeRow("e2", "wf-1", "map", "dst"),
	}
	seed(t, st, wf, nodes, edges)
}

func TestGetNodeOutputSchema(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)

	derived, err := e.GetNodeOutputSchema(ctx, "wf-1", "map")
	require.NoError(t, err)

	names := make([]string, 0, len(derived.Fields))
	for _, f := range derived.Fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"id", "full_name"}, names)
	assert.Equal(t, []string{"src"}, derived.SourceNodes)
	for _, f := range derived.Fields {
		assert.Equal(t, "src", f.SourceNode)
	}
}

func TestGetNodeOutputSchemaUsesCache(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)

	_, err := e.GetNodeOutputSchema(ctx, "wf-1", "map")
	require.NoError(t, err)
	misses := e.CacheStats().Misses
	assert.Greater(t, misses, int64(0))

	_, err = e.GetNodeOutputSchema(ctx, "wf-1", "map")
	require.NoError(t, err)

	stats := e.CacheStats()
	assert.Equal(t, misses, stats.Misses, "second derivation should not miss")
	assert.Greater(t, stats.Hits, int64(0))
}

func TestGetNodeOutputSchemaConfigChangeMisses(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)

	_, err := e.GetNodeOutputSchema(ctx, "wf-1", "src")
	require.NoError(t, err)
	missesBefore := e.CacheStats().Misses

	// Change the source config; the config hash no longer matches.
	require.NoError(t, st.Save(ctx, nodeRow("src", "wf-1", "Users", types.SourceConnector,
		connectors.StaticSourceID, `{"records":[{"id":"now-a-string"}]}`)))

	derived, err := e.GetNodeOutputSchema(ctx, "wf-1", "src")
	require.NoError(t, err)
	assert.Greater(t, e.CacheStats().Misses, missesBefore)
	require.Len(t, derived.Fields, 1)
	assert.Equal(t, types.FieldTypeString, derived.Fields[0].Type)
}

func TestGetNodeOutputSchemaErrors(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)

	t.Run("unknown node", func(t *testing.T) {
		_, err := e.GetNodeOutputSchema(ctx, "wf-1", "ghost")
		require.Error(t, err)
		assert.True(t, types.IsCode(err, types.CodeValidation))
	})

	t.Run("cycle", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, edgeRow("e3", "wf-1", "map", "map")))
		defer func() { require.NoError(t, st.Delete(ctx, store.KindConnection, "e3")) }()

		_, err := e.GetNodeOutputSchema(ctx, "wf-1", "map")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "circular dependencies")
	})
}

func TestGetWorkflowSchema(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)
	// A node with an unknown connector must not hide the others.
	require.NoError(t, st.Save(ctx, nodeRow("bad", "wf-1", "Broken", types.ProcessorConnector, "missing", "")))

	report, err := e.GetWorkflowSchema(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, report, 4)

	assert.NotNil(t, report["src"].Schema)
	assert.NotNil(t, report["map"].Schema)
	assert.NotNil(t, report["dst"].Schema)
	assert.Empty(t, report["src"].Error)
	assert.Equal(t, "Rename", report["map"].NodeName)

	assert.Nil(t, report["bad"].Schema)
	assert.Contains(t, report["bad"].Error, "connector not registered")
}

func TestGetNodeSampleData(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)

	t.Run("limit truncates records", func(t *testing.T) {
		out, err := e.GetNodeSampleData(ctx, "wf-1", "map", 2)
		require.NoError(t, err)
		envelope := types.FromMap(out)
		assert.Len(t, envelope.Data, 2)
		assert.Equal(t, 2, envelope.Metadata.RecordCount)
		assert.Equal(t, "alice", envelope.Data[0]["full_name"])
	})

	t.Run("zero limit uses default", func(t *testing.T) {
		out, err := e.GetNodeSampleData(ctx, "wf-1", "src", 0)
		require.NoError(t, err)
		envelope := types.FromMap(out)
		assert.Len(t, envelope.Data, 3, "default limit exceeds record count")
	})

	t.Run("limit clamped to maximum", func(t *testing.T) {
		out, err := e.GetNodeSampleData(ctx, "wf-1", "src", 5000)
		require.NoError(t, err)
		envelope := types.FromMap(out)
		assert.Len(t, envelope.Data, 3)
	})

	t.Run("nothing persisted", func(t *testing.T) {
		executions, err := st.FindByFilter(ctx, store.KindExecution, map[string]any{"workflow_id": "wf-1"})
		require.NoError(t, err)
		assert.Empty(t, executions)
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := e.GetNodeSampleData(ctx, "wf-1", "ghost", 1)
		require.Error(t, err)
	})
}

func TestValidateWorkflowOperation(t *testing.T) {
	ctx := context.Background()
	e, st, _ := newTestEngine()
	seedLinear(t, st)

	result, err := e.ValidateWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	require.NoError(t, st.Delete(ctx, store.KindNode, "dst"))
	require.NoError(t, st.Delete(ctx, store.KindConnection, "e2"))

	result, err = e.ValidateWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "workflow has no destination node")
}
