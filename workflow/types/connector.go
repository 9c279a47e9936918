package types

import "context"

// Connector is a pluggable node implementation. Instances are created per
// execution attempt by the registry, so implementations may safely hold
// mutable fields set by Configure.
type Connector interface {
	// ID returns the registry key of the connector, e.g. "static_source".
	ID() string
	// Name returns the human-readable connector name.
	Name() string
	// Type returns the connector category.
	Type() ConnectorType
	// GetConfigSchema describes valid config. The well-known key
	// "required" lists mandatory config field names.
	GetConfigSchema() map[string]any
	// Configure applies and validates config before execution.
	Configure(config map[string]any) error
	// Execute performs the node's work. Sources receive a nil input;
	// processors and destinations receive the aggregated upstream envelope
	// in map form. The returned map is an envelope in map form.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// SchemaAwareConnector is a connector that can derive its output schema
// without executing. GetOutputSchema must be pure so the design-time
// schema cache stays sound.
type SchemaAwareConnector interface {
	Connector
	// GetOutputSchema derives the output schema from config plus the
	// merged upstream schema (nil for sources).
	GetOutputSchema(inputSchema *DataSchema) (*DataSchema, error)
	// ValidateInputSchema checks upstream schema compatibility.
	ValidateInputSchema(inputSchema *DataSchema) error
}

// BaseConnector carries the common identity and config fields of a
// connector. Concrete connectors embed it and implement Execute.
type BaseConnector struct {
	ConnID       string
	ConnName     string
	ConnType     ConnectorType
	ConfigSchema map[string]any
	Config       map[string]any
}

// ID returns the registry key of the connector.
func (b *BaseConnector) ID() string { return b.ConnID }

// Name returns the human-readable connector name.
func (b *BaseConnector) Name() string { return b.ConnName }

// Type returns the connector category.
func (b *BaseConnector) Type() ConnectorType { return b.ConnType }

// GetConfigSchema returns the connector's config schema.
func (b *BaseConnector) GetConfigSchema() map[string]any {
	if b.ConfigSchema == nil {
		return map[string]any{}
	}
	return b.ConfigSchema
}

// Configure stores the config after checking required fields from the
// config schema.
func (b *BaseConnector) Configure(config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}
	for _, name := range RequiredConfigFields(b.GetConfigSchema()) {
		if _, ok := config[name]; !ok {
			return NewConfigurationError(
				"required config field "+name+" is missing", "", b.ConnID)
		}
	}
	b.Config = config
	return nil
}

// ConfigValue returns a config value by key.
func (b *BaseConnector) ConfigValue(key string) (any, bool) {
	if b.Config == nil {
		return nil, false
	}
	v, ok := b.Config[key]
	return v, ok
}

// ConfigString returns a string config value by key.
func (b *BaseConnector) ConfigString(key string) (string, bool) {
	v, ok := b.ConfigValue(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// RequiredConfigFields extracts the "required" name list from a config
// schema mapping.
func RequiredConfigFields(schema map[string]any) []string {
	switch required := schema["required"].(type) {
	case []string:
		return required
	case []any:
		out := make([]string, 0, len(required))
		for _, item := range required {
			if name, ok := item.(string); ok {
				out = append(out, name)
			}
		}
		return out
	default:
		return nil
	}
}
