package connectors

import (
	"context"
	"fmt"

	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// StaticSource emits records embedded in its config. It is the simplest
// source connector and the workhorse of workflow tests and previews.
type StaticSource struct {
	types.BaseConnector
	records []map[string]any
	schema  *types.DataSchema
}

// NewStaticSource creates an unconfigured static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		BaseConnector: types.BaseConnector{
			ConnID:   StaticSourceID,
			ConnName: "Static Source",
			ConnType: types.SourceConnector,
			ConfigSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"records": map[string]any{
						"type":        "array",
						"description": "Records to emit, one object per record.",
					},
					"schema": map[string]any{
						"type":        "object",
						"description": "Optional explicit output schema in map form.",
					},
				},
				"required": []string{"records"},
			},
		},
	}
}

// Configure parses the configured record list and optional schema.
func (c *StaticSource) Configure(config map[string]any) error {
	if err := c.BaseConnector.Configure(config); err != nil {
		return err
	}

	raw, _ := c.ConfigValue("records")
	list, ok := raw.([]any)
	if !ok {
		return types.NewConfigurationError("records must be an array of objects", "", c.ConnID)
	}
	records := make([]map[string]any, 0, len(list))
	for i, item := range list {
		record, ok := item.(map[string]any)
		if !ok {
			return types.NewConfigurationError(
				fmt.Sprintf("records[%d] is not an object", i), "", c.ConnID)
		}
		records = append(records, record)
	}
	c.records = records

	c.schema = nil
	if rawSchema, ok := c.ConfigValue("schema"); ok {
		schemaMap, ok := rawSchema.(map[string]any)
		if !ok {
			return types.NewConfigurationError("schema must be an object", "", c.ConnID)
		}
		c.schema = types.SchemaFromMap(schemaMap)
	}
	return nil
}

// Execute emits the configured records as an envelope.
func (c *StaticSource) Execute(_ context.Context, _ map[string]any) (map[string]any, error) {
	schema := c.outputSchema()
	return types.NewEnvelope("", c.ConnID, c.records, *schema).ToMap(), nil
}

// GetOutputSchema returns the explicit schema when configured, otherwise
// the schema inferred from the configured records.
func (c *StaticSource) GetOutputSchema(_ *types.DataSchema) (*types.DataSchema, error) {
	return c.outputSchema(), nil
}

// ValidateInputSchema always succeeds; sources have no input.
func (c *StaticSource) ValidateInputSchema(_ *types.DataSchema) error { return nil }

func (c *StaticSource) outputSchema() *types.DataSchema {
	if c.schema != nil {
		return c.schema.Clone()
	}
	inferred := types.InferSchemaFromData("", c.records)
	return &inferred
}
