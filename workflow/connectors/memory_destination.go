package connectors

import (
	"context"
	"sync"

	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// MemorySink collects records written by memory destinations. One sink is
// shared across connector instances, which are created fresh per
// execution attempt.
type MemorySink struct {
	mu      sync.Mutex
	buckets map[string][]map[string]any
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{buckets: make(map[string][]map[string]any)}
}

// Write appends records under the given bucket key.
func (s *MemorySink) Write(key string, records []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[key] = append(s.buckets[key], records...)
}

// Records returns a copy of the records written under key.
func (s *MemorySink) Records(key string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.buckets[key]...)
}

// Reset drops all written records.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string][]map[string]any)
}

// MemoryDestination writes incoming records into a MemorySink bucket and
// echoes its input envelope so the records show up in execution results.
type MemoryDestination struct {
	types.BaseConnector
	sink *MemorySink
	key  string
}

// NewMemoryDestination creates a destination writing into sink.
func NewMemoryDestination(sink *MemorySink) *MemoryDestination {
	return &MemoryDestination{
		BaseConnector: types.BaseConnector{
			ConnID:   MemoryDestinationID,
			ConnName: "Memory Destination",
			ConnType: types.DestinationConnector,
			ConfigSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"key": map[string]any{
						"type":        "string",
						"description": "Sink bucket to write into.",
					},
				},
				"required": []string{"key"},
			},
		},
		sink: sink,
	}
}

// Configure parses the bucket key.
func (c *MemoryDestination) Configure(config map[string]any) error {
	if err := c.BaseConnector.Configure(config); err != nil {
		return err
	}
	key, ok := c.ConfigString("key")
	if !ok || key == "" {
		return types.NewConfigurationError("key must be a non-empty string", "", c.ConnID)
	}
	c.key = key
	return nil
}

// Execute writes the incoming records into the sink.
func (c *MemoryDestination) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	envelope := types.FromMap(input)
	c.sink.Write(c.key, envelope.Data)

	result := types.NewEnvelope("", c.ConnID, envelope.Data, envelope.Metadata.Schema)
	result.Metadata.Sources = envelope.Metadata.Sources
	return result.ToMap(), nil
}

// GetOutputSchema passes the input schema through unchanged.
func (c *MemoryDestination) GetOutputSchema(inputSchema *types.DataSchema) (*types.DataSchema, error) {
	if inputSchema == nil {
		return &types.DataSchema{}, nil
	}
	return inputSchema.Clone(), nil
}

// ValidateInputSchema always succeeds; the sink accepts any shape.
func (c *MemoryDestination) ValidateInputSchema(_ *types.DataSchema) error { return nil }
