// Package connectors ships the builtin connector set: an inline static
// source, a field mapper, a record filter, and an in-memory destination.
// They cover the common pipeline shapes and serve as reference
// implementations for custom connectors.
package connectors

import (
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// Builtin connector ids.
const (
	StaticSourceID      = "static_source"
	FieldMapperID       = "field_mapper"
	FilterID            = "filter"
	MemoryDestinationID = "memory_destination"
)

// RegisterBuiltins registers every builtin connector on the registry.
// Destinations write into sink; pass a fresh sink per registry.
func RegisterBuiltins(registry *types.Registry, sink *MemorySink) {
	registry.Register(StaticSourceID, func() types.Connector { return NewStaticSource() })
	registry.Register(FieldMapperID, func() types.Connector { return NewFieldMapper() })
	registry.Register(FilterID, func() types.Connector { return NewFilter() })
	registry.Register(MemoryDestinationID, func() types.Connector { return NewMemoryDestination(sink) })
}
