package types

import (
	"sort"
	"sync"
)

// ConnectorFactory constructs a fresh connector instance. Factories give
// per-execution isolation: no state leaks between runs because every
// attempt operates on a new instance.
type ConnectorFactory func() Connector

// ConnectorDescriptor is the introspection view of a registered connector.
type ConnectorDescriptor struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         ConnectorType  `json:"type"`
	ConfigSchema map[string]any `json:"config_schema"`
}

// Registry maps connector ids to factories. It is owned by the engine
// instance; registration happens at startup, lookups are concurrent.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ConnectorFactory
}

// NewRegistry creates an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ConnectorFactory)}
}

// Register adds a factory under id. Registering an existing id replaces
// the previous factory.
func (r *Registry) Register(id string, factory ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[id] = factory
}

// Create returns a fresh connector instance for id.
func (r *Registry) Create(id string) (Connector, error) {
	r.mu.RLock()
	factory, ok := r.factories[id]
	r.mu.RUnlock()
	if !ok {
		return nil, NewConfigurationError("connector not registered", "", id)
	}
	return factory(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[id]
	return ok
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (*ConnectorDescriptor, error) {
	conn, err := r.Create(id)
	if err != nil {
		return nil, err
	}
	return &ConnectorDescriptor{
		ID:           id,
		Name:         conn.Name(),
		Type:         conn.Type(),
		ConfigSchema: conn.GetConfigSchema(),
	}, nil
}

// List returns descriptors for every registered connector, ordered by id.
func (r *Registry) List() []*ConnectorDescriptor {
	r.mu.RLock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)

	out := make([]*ConnectorDescriptor, 0, len(ids))
	for _, id := range ids {
		desc, err := r.Get(id)
		if err != nil {
			continue
		}
		out = append(out, desc)
	}
	return out
}
