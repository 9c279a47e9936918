package connectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// FieldMapper renames record fields according to a configured mapping.
// Unmapped fields pass through unless keep_unmapped is false.
type FieldMapper struct {
	types.BaseConnector
	mappings     map[string]string
	keepUnmapped bool
}

// NewFieldMapper creates an unconfigured field mapper.
func NewFieldMapper() *FieldMapper {
	return &FieldMapper{
		BaseConnector: types.BaseConnector{
			ConnID:   FieldMapperID,
			ConnName: "Field Mapper",
			ConnType: types.ProcessorConnector,
			ConfigSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"mappings": map[string]any{
						"type":        "object",
						"description": "Old field name to new field name.",
					},
					"keep_unmapped": map[string]any{
						"type":        "boolean",
						"description": "Pass through fields not named in mappings. Default true.",
					},
				},
				"required": []string{"mappings"},
			},
		},
	}
}

// Configure parses the mapping table.
func (c *FieldMapper) Configure(config map[string]any) error {
	if err := c.BaseConnector.Configure(config); err != nil {
		return err
	}

	raw, _ := c.ConfigValue("mappings")
	table, ok := raw.(map[string]any)
	if !ok {
		return types.NewConfigurationError("mappings must be an object of old to new names", "", c.ConnID)
	}
	mappings := make(map[string]string, len(table))
	for oldName, rawNew := range table {
		newName, ok := rawNew.(string)
		if !ok || newName == "" {
			return types.NewConfigurationError(
				fmt.Sprintf("mapping for field %s must be a non-empty string", oldName), "", c.ConnID)
		}
		mappings[oldName] = newName
	}
	c.mappings = mappings

	c.keepUnmapped = true
	if v, ok := c.ConfigValue("keep_unmapped"); ok {
		if b, ok := v.(bool); ok {
			c.keepUnmapped = b
		}
	}
	return nil
}

// Execute renames fields on every record and in the schema.
func (c *FieldMapper) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	envelope := types.FromMap(input)

	out := make([]map[string]any, 0, len(envelope.Data))
	for _, record := range envelope.Data {
		mapped := make(map[string]any, len(record))
		for name, value := range record {
			newName, renamed := c.mappings[name]
			switch {
			case renamed:
				mapped[newName] = value
			case c.keepUnmapped:
				mapped[name] = value
			}
		}
		out = append(out, mapped)
	}

	schema := c.mapSchema(&envelope.Metadata.Schema)
	result := types.NewEnvelope("", c.ConnID, out, *schema)
	result.Metadata.Sources = envelope.Metadata.Sources
	return result.ToMap(), nil
}

// GetOutputSchema applies the mapping to the input schema.
func (c *FieldMapper) GetOutputSchema(inputSchema *types.DataSchema) (*types.DataSchema, error) {
	if inputSchema == nil {
		return &types.DataSchema{}, nil
	}
	return c.mapSchema(inputSchema), nil
}

// ValidateInputSchema reports mapped fields missing from the input.
func (c *FieldMapper) ValidateInputSchema(inputSchema *types.DataSchema) error {
	if inputSchema == nil {
		return nil
	}
	present := make(map[string]bool, len(inputSchema.Fields))
	for _, f := range inputSchema.Fields {
		present[f.Name] = true
	}
	var missing []string
	for oldName := range c.mappings {
		if !present[oldName] {
			missing = append(missing, oldName)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("mapped fields not present in input: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *FieldMapper) mapSchema(inputSchema *types.DataSchema) *types.DataSchema {
	out := &types.DataSchema{
		Fields:      []types.FieldDefinition{},
		SourceNodes: append([]string(nil), inputSchema.SourceNodes...),
	}
	for _, f := range inputSchema.Fields {
		field := f
		newName, renamed := c.mappings[f.Name]
		switch {
		case renamed:
			field.Name = newName
		case !c.keepUnmapped:
			continue
		}
		out.Fields = append(out.Fields, field)
	}
	return out
}
