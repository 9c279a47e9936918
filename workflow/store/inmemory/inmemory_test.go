package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
)

func TestSaveAndFindByID(t *testing.T) {
	ctx := context.Background()
	s := New()

	wf := &store.Workflow{ID: "wf-1", Name: "Orders", Active: true}
	require.NoError(t, s.Save(ctx, wf))

	record, err := s.FindByID(ctx, store.KindWorkflow, "wf-1")
	require.NoError(t, err)
	got, ok := record.(*store.Workflow)
	require.True(t, ok)
	assert.Equal(t, "Orders", got.Name)
}

func TestFindByIDNotFound(t *testing.T) {
	s := New()

	_, err := s.FindByID(context.Background(), store.KindWorkflow, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveRequiresID(t *testing.T) {
	s := New()

	err := s.Save(context.Background(), &store.Workflow{})
	assert.Error(t, err)
}

func TestFindByFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, &store.WorkflowNode{ID: "n1", WorkflowID: "wf-1"}))
	require.NoError(t, s.Save(ctx, &store.WorkflowNode{ID: "n2", WorkflowID: "wf-1"}))
	require.NoError(t, s.Save(ctx, &store.WorkflowNode{ID: "n3", WorkflowID: "wf-2"}))

	records, err := s.FindByFilter(ctx, store.KindNode, map[string]any{"workflow_id": "wf-1"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.FindByFilter(ctx, store.KindNode, map[string]any{"workflow_id": "wf-9"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, &store.WorkflowNode{ID: "n1", WorkflowID: "wf-1"}))

	require.NoError(t, s.Delete(ctx, store.KindNode, "n1"))
	_, err := s.FindByID(ctx, store.KindNode, "n1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Deleting a missing record is not an error.
	assert.NoError(t, s.Delete(ctx, store.KindNode, "ghost"))
}

func TestRecordsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()

	wf := &store.Workflow{ID: "wf-1", Name: "Before"}
	require.NoError(t, s.Save(ctx, wf))
	wf.Name = "After"

	record, err := s.FindByID(ctx, store.KindWorkflow, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Before", record.(*store.Workflow).Name)

	record.(*store.Workflow).Name = "Mutated"
	again, err := s.FindByID(ctx, store.KindWorkflow, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Before", again.(*store.Workflow).Name)
}
