package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// Filter operators.
const (
	OpEquals      = "eq"
	OpNotEquals   = "neq"
	OpGreaterThan = "gt"
	OpLessThan    = "lt"
	OpContains    = "contains"
	OpExists      = "exists"
)

var filterOperators = []string{OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpExists}

// Filter passes through records matching a single-field predicate. The
// schema is unchanged; only the record set shrinks.
type Filter struct {
	types.BaseConnector
	field    string
	operator string
	value    any
}

// NewFilter creates an unconfigured filter.
func NewFilter() *Filter {
	return &Filter{
		BaseConnector: types.BaseConnector{
			ConnID:   FilterID,
			ConnName: "Filter",
			ConnType: types.ProcessorConnector,
			ConfigSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field": map[string]any{
						"type":        "string",
						"description": "Record field the predicate applies to.",
					},
					"operator": map[string]any{
						"type": "string",
						"enum": toAny(filterOperators),
					},
					"value": map[string]any{
						"description": "Comparison value; unused for exists.",
					},
				},
				"required": []string{"field", "operator"},
			},
		},
	}
}

// Configure parses the predicate.
func (c *Filter) Configure(config map[string]any) error {
	if err := c.BaseConnector.Configure(config); err != nil {
		return err
	}

	field, ok := c.ConfigString("field")
	if !ok || field == "" {
		return types.NewConfigurationError("field must be a non-empty string", "", c.ConnID)
	}
	operator, ok := c.ConfigString("operator")
	if !ok {
		return types.NewConfigurationError("operator must be a string", "", c.ConnID)
	}
	valid := false
	for _, op := range filterOperators {
		if op == operator {
			valid = true
			break
		}
	}
	if !valid {
		return types.NewConfigurationError(
			fmt.Sprintf("unknown operator %q, want one of %s", operator, strings.Join(filterOperators, ", ")),
			"", c.ConnID)
	}

	c.field = field
	c.operator = operator
	c.value, _ = c.ConfigValue("value")
	return nil
}

// Execute keeps only records matching the predicate.
func (c *Filter) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	envelope := types.FromMap(input)

	kept := make([]map[string]any, 0, len(envelope.Data))
	for _, record := range envelope.Data {
		if c.matches(record) {
			kept = append(kept, record)
		}
	}

	result := types.NewEnvelope("", c.ConnID, kept, envelope.Metadata.Schema)
	result.Metadata.Sources = envelope.Metadata.Sources
	return result.ToMap(), nil
}

// GetOutputSchema passes the input schema through unchanged.
func (c *Filter) GetOutputSchema(inputSchema *types.DataSchema) (*types.DataSchema, error) {
	if inputSchema == nil {
		return &types.DataSchema{}, nil
	}
	return inputSchema.Clone(), nil
}

// ValidateInputSchema reports a filter field missing from the input.
func (c *Filter) ValidateInputSchema(inputSchema *types.DataSchema) error {
	if inputSchema == nil {
		return nil
	}
	for _, f := range inputSchema.Fields {
		if f.Name == c.field {
			return nil
		}
	}
	return fmt.Errorf("filter field %s not present in input", c.field)
}

func (c *Filter) matches(record map[string]any) bool {
	value, exists := record[c.field]
	switch c.operator {
	case OpExists:
		return exists && value != nil
	case OpEquals:
		return exists && equalValues(value, c.value)
	case OpNotEquals:
		return !exists || !equalValues(value, c.value)
	case OpGreaterThan:
		a, aok := asFloat(value)
		b, bok := asFloat(c.value)
		return aok && bok && a > b
	case OpLessThan:
		a, aok := asFloat(value)
		b, bok := asFloat(c.value)
		return aok && bok && a < b
	case OpContains:
		s, sok := value.(string)
		sub, subok := c.value.(string)
		return sok && subok && strings.Contains(s, sub)
	default:
		return false
	}
}

// equalValues compares numerics by value so 2 and 2.0 are equal, which
// matters after a JSON round trip.
func equalValues(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
