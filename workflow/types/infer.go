package types

import (
	"encoding/json"
	"sort"
	"time"
)

// InferSchemaFromData deduces a schema by walking records. A field's type
// comes from its first non-null value; nullable becomes true if any
// occurrence is null. Field order is first-appearance order, with keys
// inside each record visited alphabetically so the result is deterministic.
func InferSchemaFromData(sourceNode string, records []map[string]any) DataSchema {
	schema := DataSchema{Fields: []FieldDefinition{}, SourceNodes: []string{}}
	if sourceNode != "" {
		schema.SourceNodes = []string{sourceNode}
	}

	index := make(map[string]int)
	for _, record := range records {
		keys := make([]string, 0, len(record))
		for k := range record {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			value := record[key]
			pos, seen := index[key]
			if !seen {
				index[key] = len(schema.Fields)
				schema.Fields = append(schema.Fields, FieldDefinition{
					Name:       key,
					Type:       inferFieldType(value),
					SourceNode: sourceNode,
					Nullable:   value == nil,
				})
				continue
			}
			field := &schema.Fields[pos]
			if value == nil {
				field.Nullable = true
				continue
			}
			// An earlier null left the type undecided; the first non-null
			// occurrence settles it.
			if field.Type == "" {
				field.Type = inferFieldType(value)
			}
		}
	}

	// Fields that never saw a non-null value default to string.
	for i := range schema.Fields {
		if schema.Fields[i].Type == "" {
			schema.Fields[i].Type = FieldTypeString
		}
	}
	return schema
}

func inferFieldType(value any) FieldType {
	switch value.(type) {
	case nil:
		return ""
	case bool:
		return FieldTypeBoolean
	case int, int32, int64, float32, float64, json.Number:
		return FieldTypeNumber
	case string:
		return FieldTypeString
	case time.Time:
		return FieldTypeDate
	case []any, map[string]any:
		return FieldTypeJSON
	default:
		return FieldTypeJSON
	}
}
