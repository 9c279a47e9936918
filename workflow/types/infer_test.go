package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferSchemaFromData(t *testing.T) {
	records := []map[string]any{
		{"id": 1, "name": "alice", "active": true, "joined": time.Now(), "tags": []any{"a"}},
		{"id": 2, "name": nil, "score": 9.5},
	}

	schema := InferSchemaFromData("src-1", records)

	assert.Equal(t, []string{"src-1"}, schema.SourceNodes)

	byName := make(map[string]FieldDefinition)
	for _, f := range schema.Fields {
		byName[f.Name] = f
	}
	require.Len(t, byName, 6)
	assert.Equal(t, FieldTypeNumber, byName["id"].Type)
	assert.Equal(t, FieldTypeString, byName["name"].Type)
	assert.Equal(t, FieldTypeBoolean, byName["active"].Type)
	assert.Equal(t, FieldTypeDate, byName["joined"].Type)
	assert.Equal(t, FieldTypeJSON, byName["tags"].Type)
	assert.Equal(t, FieldTypeNumber, byName["score"].Type)

	assert.True(t, byName["name"].Nullable)
	assert.False(t, byName["id"].Nullable)
	assert.Equal(t, "src-1", byName["id"].SourceNode)
}

func TestInferSchemaNullThenValue(t *testing.T) {
	records := []map[string]any{
		{"v": nil},
		{"v": 3},
	}

	schema := InferSchemaFromData("s", records)

	require.Len(t, schema.Fields, 1)
	assert.Equal(t, FieldTypeNumber, schema.Fields[0].Type)
	assert.True(t, schema.Fields[0].Nullable)
}

func TestInferSchemaAllNullDefaultsToString(t *testing.T) {
	schema := InferSchemaFromData("s", []map[string]any{{"v": nil}})

	require.Len(t, schema.Fields, 1)
	assert.Equal(t, FieldTypeString, schema.Fields[0].Type)
	assert.True(t, schema.Fields[0].Nullable)
}

func TestInferSchemaJSONNumber(t *testing.T) {
	schema := InferSchemaFromData("s", []map[string]any{{"v": json.Number("42")}})

	require.Len(t, schema.Fields, 1)
	assert.Equal(t, FieldTypeNumber, schema.Fields[0].Type)
}

func TestInferSchemaDeterministicOrder(t *testing.T) {
	records := []map[string]any{{"b": 1, "a": 1, "c": 1}}

	first := InferSchemaFromData("s", records)
	second := InferSchemaFromData("s", records)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b", "c"}, fieldNames(&first))
}

func TestInferSchemaEmptySourceNode(t *testing.T) {
	schema := InferSchemaFromData("", []map[string]any{{"v": 1}})

	assert.Empty(t, schema.SourceNodes)
	assert.Equal(t, "", schema.Fields[0].SourceNode)
}
