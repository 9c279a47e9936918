package types

import "strings"

const (
	conflictPrefixMaxLen = 10
	nodeIDPrefixLen      = 8
)

// MergeEnvelopes combines several envelopes into one. Data records are
// concatenated in input order, schemas are merged with conflict-prefixing
// (see MergeSchemas), sources are unioned, and colliding custom metadata
// keys collapse into ordered lists.
func MergeEnvelopes(envelopes []*DataEnvelope, nodeLabels map[string]string) *DataEnvelope {
	if len(envelopes) == 0 {
		return &DataEnvelope{
			Data: []map[string]any{},
			Metadata: Metadata{
				Schema:  DataSchema{Fields: []FieldDefinition{}, SourceNodes: []string{}},
				Sources: []string{},
			},
		}
	}
	if len(envelopes) == 1 {
		return envelopes[0]
	}

	var data []map[string]any
	schemas := make([]*DataSchema, 0, len(envelopes))
	var sources []string
	seenSource := make(map[string]bool)
	custom := make(map[string]any)
	collided := make(map[string]bool)

	for _, env := range envelopes {
		data = append(data, env.Data...)
		schema := env.Metadata.Schema
		schemas = append(schemas, &schema)
		for _, src := range env.Metadata.Sources {
			if !seenSource[src] {
				seenSource[src] = true
				sources = append(sources, src)
			}
		}
		for k, v := range env.Metadata.Custom {
			existing, ok := custom[k]
			if !ok {
				custom[k] = v
				continue
			}
			// Collision: keep every value in input order. Only lists
			// produced by an earlier collision are extended; a list that
			// arrived as an original value stays one element.
			if collided[k] {
				custom[k] = append(existing.([]any), v)
			} else {
				custom[k] = []any{existing, v}
				collided[k] = true
			}
		}
	}

	merged := MergeSchemas(schemas, nodeLabels)

	out := &DataEnvelope{
		Data: data,
		Metadata: Metadata{
			Schema:      *merged,
			RecordCount: len(data),
			Sources:     sources,
		},
	}
	if len(custom) > 0 {
		out.Metadata.Custom = custom
	}
	return out
}

// MergeSchemas merges several schemas into one. When two inputs contribute
// a field with the same name, every occurrence is kept and renamed with a
// stable prefix derived from the producing node's label; unique names pass
// through untouched. Nullable is ORed across all occurrences of a name.
func MergeSchemas(schemas []*DataSchema, nodeLabels map[string]string) *DataSchema {
	nameCount := make(map[string]int)
	nullableByName := make(map[string]bool)
	for _, schema := range schemas {
		if schema == nil {
			continue
		}
		for _, f := range schema.Fields {
			nameCount[f.Name]++
			nullableByName[f.Name] = nullableByName[f.Name] || f.Nullable
		}
	}

	merged := &DataSchema{Fields: []FieldDefinition{}, SourceNodes: []string{}}
	seenSource := make(map[string]bool)

	for _, schema := range schemas {
		if schema == nil {
			continue
		}
		for _, f := range schema.Fields {
			field := f
			field.Nullable = nullableByName[f.Name]
			if nameCount[f.Name] > 1 {
				field.Name = conflictPrefix(f.SourceNode, nodeLabels) + "_" + f.Name
			}
			merged.Fields = append(merged.Fields, field)
		}
		for _, src := range schema.SourceNodes {
			if !seenSource[src] {
				seenSource[src] = true
				merged.SourceNodes = append(merged.SourceNodes, src)
			}
		}
	}
	return merged
}

// conflictPrefix derives the rename prefix for a colliding field from the
// producing node's label: lowercased, spaces replaced with underscores,
// truncated to ten characters. Nodes without a label fall back to the
// first eight characters of their id.
func conflictPrefix(nodeID string, nodeLabels map[string]string) string {
	label := strings.TrimSpace(nodeLabels[nodeID])
	if label == "" {
		if len(nodeID) > nodeIDPrefixLen {
			return nodeID[:nodeIDPrefixLen]
		}
		return nodeID
	}
	prefix := strings.ReplaceAll(strings.ToLower(label), " ", "_")
	if len(prefix) > conflictPrefixMaxLen {
		prefix = prefix[:conflictPrefixMaxLen]
	}
	return prefix
}
