// Package types defines the data model shared by the workflow engine:
// the envelope exchanged between nodes, the schema metadata that travels
// with it, and the connector contract node implementations fulfil.
package types

// FieldType enumerates the value types a schema field may carry.
type FieldType string

const (
	// FieldTypeString is a UTF-8 string value.
	FieldTypeString FieldType = "string"
	// FieldTypeNumber is an integer or floating point value.
	FieldTypeNumber FieldType = "number"
	// FieldTypeBoolean is a true/false value.
	FieldTypeBoolean FieldType = "boolean"
	// FieldTypeDate is a timestamp value.
	FieldTypeDate FieldType = "date"
	// FieldTypeJSON is a nested array or object value.
	FieldTypeJSON FieldType = "json"
)

// ConnectorType categorizes connectors by their role in a workflow.
type ConnectorType string

const (
	// SourceConnector produces data and accepts no input.
	SourceConnector ConnectorType = "source"
	// ProcessorConnector transforms upstream data.
	ProcessorConnector ConnectorType = "processor"
	// DestinationConnector consumes data at the end of a workflow.
	DestinationConnector ConnectorType = "destination"
)

// FieldDefinition describes a single field of a data schema.
type FieldDefinition struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	SourceNode  string    `json:"source_node"`
	Nullable    bool      `json:"nullable"`
	Description string    `json:"description,omitempty"`
}

// DataSchema describes the shape of the records inside an envelope.
// Every field's SourceNode appears in SourceNodes.
type DataSchema struct {
	Fields      []FieldDefinition `json:"fields"`
	SourceNodes []string          `json:"source_nodes"`
}

// Clone returns a deep copy of the schema.
func (s *DataSchema) Clone() *DataSchema {
	clone := &DataSchema{
		Fields:      make([]FieldDefinition, len(s.Fields)),
		SourceNodes: make([]string, len(s.SourceNodes)),
	}
	copy(clone.Fields, s.Fields)
	copy(clone.SourceNodes, s.SourceNodes)
	return clone
}

// HasSourceNode reports whether id contributed fields to the schema.
func (s *DataSchema) HasSourceNode(id string) bool {
	for _, n := range s.SourceNodes {
		if n == id {
			return true
		}
	}
	return false
}

// Metadata carries the provenance of an envelope's data.
type Metadata struct {
	// NodeID identifies the node that produced the envelope.
	NodeID string `json:"node_id"`
	// NodeType is the connector id of the producing node.
	NodeType string `json:"node_type"`
	// Schema describes the fields present in Data.
	Schema DataSchema `json:"schema"`
	// RecordCount equals len(Data).
	RecordCount int `json:"record_count"`
	// Sources is the transitive set of source node ids whose data
	// contributed to this envelope.
	Sources []string `json:"sources"`
	// ExecutionTimeMs is the wall-clock duration of the producing node.
	ExecutionTimeMs int64 `json:"execution_time_ms"`
	// Custom holds connector-specific extras.
	Custom map[string]any `json:"custom,omitempty"`
}

// DataEnvelope is the universal payload exchanged between workflow nodes.
type DataEnvelope struct {
	Data     []map[string]any `json:"data"`
	Metadata Metadata         `json:"metadata"`
}

// NewEnvelope creates an envelope for the given producing node.
func NewEnvelope(nodeID, nodeType string, data []map[string]any, schema DataSchema) *DataEnvelope {
	return &DataEnvelope{
		Data: data,
		Metadata: Metadata{
			NodeID:      nodeID,
			NodeType:    nodeType,
			Schema:      schema,
			RecordCount: len(data),
			Sources:     append([]string(nil), schema.SourceNodes...),
		},
	}
}

// ToMap converts the envelope to its loose map form used at package
// boundaries (persistence, connector input/output).
func (e *DataEnvelope) ToMap() map[string]any {
	data := make([]any, len(e.Data))
	for i, record := range e.Data {
		data[i] = record
	}

	fields := make([]any, len(e.Metadata.Schema.Fields))
	for i, f := range e.Metadata.Schema.Fields {
		field := map[string]any{
			"name":        f.Name,
			"type":        string(f.Type),
			"source_node": f.SourceNode,
			"nullable":    f.Nullable,
		}
		if f.Description != "" {
			field["description"] = f.Description
		}
		fields[i] = field
	}

	metadata := map[string]any{
		"node_id":      e.Metadata.NodeID,
		"node_type":    e.Metadata.NodeType,
		"record_count": e.Metadata.RecordCount,
		"sources":      toAnySlice(e.Metadata.Sources),
		"schema": map[string]any{
			"fields":       fields,
			"source_nodes": toAnySlice(e.Metadata.Schema.SourceNodes),
		},
		"execution_time_ms": e.Metadata.ExecutionTimeMs,
	}
	if len(e.Metadata.Custom) > 0 {
		metadata["custom"] = e.Metadata.Custom
	}

	return map[string]any{
		"data":     data,
		"metadata": metadata,
	}
}

// FromMap reconstructs an envelope from its loose map form. A raw map
// without a "metadata" key is treated as a single legacy record wrapped in
// an envelope with an empty schema.
func FromMap(raw map[string]any) *DataEnvelope {
	metaRaw, ok := raw["metadata"].(map[string]any)
	if !ok {
		return &DataEnvelope{
			Data: []map[string]any{raw},
			Metadata: Metadata{
				RecordCount: 1,
				Schema:      DataSchema{Fields: []FieldDefinition{}, SourceNodes: []string{}},
				Sources:     []string{},
			},
		}
	}

	envelope := &DataEnvelope{
		Data: toRecordSlice(raw["data"]),
		Metadata: Metadata{
			NodeID:          asString(metaRaw["node_id"]),
			NodeType:        asString(metaRaw["node_type"]),
			RecordCount:     asInt(metaRaw["record_count"]),
			Sources:         toStringSlice(metaRaw["sources"]),
			ExecutionTimeMs: int64(asInt(metaRaw["execution_time_ms"])),
			Schema:          schemaFromMap(metaRaw["schema"]),
		},
	}
	if custom, ok := metaRaw["custom"].(map[string]any); ok {
		envelope.Metadata.Custom = custom
	}
	if envelope.Metadata.RecordCount != len(envelope.Data) {
		envelope.Metadata.RecordCount = len(envelope.Data)
	}
	return envelope
}

// SchemaToMap converts a schema to its loose map form.
func SchemaToMap(s *DataSchema) map[string]any {
	fields := make([]any, len(s.Fields))
	for i, f := range s.Fields {
		field := map[string]any{
			"name":        f.Name,
			"type":        string(f.Type),
			"source_node": f.SourceNode,
			"nullable":    f.Nullable,
		}
		if f.Description != "" {
			field["description"] = f.Description
		}
		fields[i] = field
	}
	return map[string]any{
		"fields":       fields,
		"source_nodes": toAnySlice(s.SourceNodes),
	}
}

// SchemaFromMap reconstructs a schema from its loose map form.
func SchemaFromMap(raw map[string]any) *DataSchema {
	s := schemaFromMap(raw)
	return &s
}

func schemaFromMap(raw any) DataSchema {
	schema := DataSchema{Fields: []FieldDefinition{}, SourceNodes: []string{}}
	m, ok := raw.(map[string]any)
	if !ok {
		return schema
	}
	schema.SourceNodes = toStringSlice(m["source_nodes"])

	fieldsRaw, ok := m["fields"].([]any)
	if !ok {
		return schema
	}
	for _, fr := range fieldsRaw {
		fm, ok := fr.(map[string]any)
		if !ok {
			continue
		}
		schema.Fields = append(schema.Fields, FieldDefinition{
			Name:        asString(fm["name"]),
			Type:        FieldType(asString(fm["type"])),
			SourceNode:  asString(fm["source_node"]),
			Nullable:    asBool(fm["nullable"]),
			Description: asString(fm["description"]),
		})
	}
	return schema
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

func toRecordSlice(raw any) []map[string]any {
	switch v := raw.(type) {
	case []map[string]any:
		return append([]map[string]any(nil), v...)
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if record, ok := item.(map[string]any); ok {
				out = append(out, record)
			}
		}
		return out
	default:
		return []map[string]any{}
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
