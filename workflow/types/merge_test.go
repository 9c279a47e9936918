package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leftEnvelope() *DataEnvelope {
	schema := DataSchema{
		Fields: []FieldDefinition{
			{Name: "id", Type: FieldTypeNumber, SourceNode: "left-node"},
			{Name: "email", Type: FieldTypeString, SourceNode: "left-node"},
		},
		SourceNodes: []string{"left-node"},
	}
	env := NewEnvelope("left-node", "static_source",
		[]map[string]any{{"id": 1, "email": "a@example.com"}}, schema)
	return env
}

func rightEnvelope() *DataEnvelope {
	schema := DataSchema{
		Fields: []FieldDefinition{
			{Name: "id", Type: FieldTypeNumber, SourceNode: "right-node", Nullable: true},
			{Name: "city", Type: FieldTypeString, SourceNode: "right-node"},
		},
		SourceNodes: []string{"right-node"},
	}
	env := NewEnvelope("right-node", "static_source",
		[]map[string]any{{"id": 7, "city": "oslo"}}, schema)
	return env
}

func TestMergeEnvelopesSinglePassthrough(t *testing.T) {
	env := leftEnvelope()
	merged := MergeEnvelopes([]*DataEnvelope{env}, nil)
	assert.Same(t, env, merged)
}

func TestMergeEnvelopesEmpty(t *testing.T) {
	merged := MergeEnvelopes(nil, nil)
	assert.Empty(t, merged.Data)
	assert.Empty(t, merged.Metadata.Sources)
	assert.Empty(t, merged.Metadata.Schema.Fields)
}

func TestMergeEnvelopes(t *testing.T) {
	labels := map[string]string{"left-node": "Left Input", "right-node": "Right"}

	merged := MergeEnvelopes([]*DataEnvelope{leftEnvelope(), rightEnvelope()}, labels)

	t.Run("data concatenated in input order", func(t *testing.T) {
		require.Len(t, merged.Data, 2)
		assert.Equal(t, "a@example.com", merged.Data[0]["email"])
		assert.Equal(t, "oslo", merged.Data[1]["city"])
		assert.Equal(t, 2, merged.Metadata.RecordCount)
	})

	t.Run("sources unioned in first-seen order", func(t *testing.T) {
		assert.Equal(t, []string{"left-node", "right-node"}, merged.Metadata.Sources)
		assert.Equal(t, []string{"left-node", "right-node"}, merged.Metadata.Schema.SourceNodes)
	})

	t.Run("colliding fields renamed with label prefix", func(t *testing.T) {
		names := fieldNames(&merged.Metadata.Schema)
		// "Left Input" lowercases to "left_input", exactly the prefix cap.
		assert.Contains(t, names, "left_input_id")
		assert.Contains(t, names, "right_id")
		assert.Contains(t, names, "email")
		assert.Contains(t, names, "city")
		assert.NotContains(t, names, "id")
	})

	t.Run("nullable ORed across occurrences", func(t *testing.T) {
		for _, f := range merged.Metadata.Schema.Fields {
			if f.Name == "left_input_id" || f.Name == "right_id" {
				assert.True(t, f.Nullable, f.Name)
			}
		}
	})
}

func TestMergeSchemasPrefixTruncation(t *testing.T) {
	schemas := []*DataSchema{
		{Fields: []FieldDefinition{{Name: "k", SourceNode: "n1"}}},
		{Fields: []FieldDefinition{{Name: "k", SourceNode: "n2"}}},
	}
	labels := map[string]string{
		"n1": "A Very Long Node Label",
		"n2": "short",
	}

	merged := MergeSchemas(schemas, labels)

	names := fieldNames(merged)
	assert.Equal(t, []string{"a_very_lon_k", "short_k"}, names)
}

func TestMergeSchemasFallbackPrefix(t *testing.T) {
	schemas := []*DataSchema{
		{Fields: []FieldDefinition{{Name: "k", SourceNode: "0123456789abcdef"}}},
		{Fields: []FieldDefinition{{Name: "k", SourceNode: "fe"}}},
	}

	merged := MergeSchemas(schemas, nil)

	names := fieldNames(merged)
	assert.Equal(t, []string{"01234567_k", "fe_k"}, names)
}

func TestMergeSchemasUniqueNamesUntouched(t *testing.T) {
	schemas := []*DataSchema{
		{Fields: []FieldDefinition{{Name: "a", SourceNode: "n1"}}},
		{Fields: []FieldDefinition{{Name: "b", SourceNode: "n2"}}},
	}

	merged := MergeSchemas(schemas, map[string]string{"n1": "One", "n2": "Two"})

	assert.Equal(t, []string{"a", "b"}, fieldNames(merged))
}

func TestMergeEnvelopesCustomCollision(t *testing.T) {
	left := leftEnvelope()
	left.Metadata.Custom = map[string]any{"stamp": "l", "only_left": true}
	right := rightEnvelope()
	right.Metadata.Custom = map[string]any{"stamp": "r"}

	merged := MergeEnvelopes([]*DataEnvelope{left, right}, nil)

	assert.Equal(t, []any{"l", "r"}, merged.Metadata.Custom["stamp"])
	assert.Equal(t, true, merged.Metadata.Custom["only_left"])
}

func TestMergeEnvelopesCustomListValueCollision(t *testing.T) {
	left := leftEnvelope()
	left.Metadata.Custom = map[string]any{"tags": []any{"x", "y"}}
	right := rightEnvelope()
	right.Metadata.Custom = map[string]any{"tags": "z"}

	merged := MergeEnvelopes([]*DataEnvelope{left, right}, nil)

	// The original list stays one collected value; it is not flattened
	// into the collision list.
	assert.Equal(t, []any{[]any{"x", "y"}, "z"}, merged.Metadata.Custom["tags"])

	third := leftEnvelope()
	third.Metadata.Custom = map[string]any{"tags": "w"}
	merged = MergeEnvelopes([]*DataEnvelope{left, right, third}, nil)
	assert.Equal(t, []any{[]any{"x", "y"}, "z", "w"}, merged.Metadata.Custom["tags"])
}

func fieldNames(s *DataSchema) []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}
