// Package inmemory provides a map-backed Store used in tests and
// single-process deployments.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/shashank-sharma/nenspace-sub007/workflow/store"
)

// Store is an in-memory implementation of store.Store. Records are copied
// on save and on read so callers never share memory with the store, which
// mirrors how a real backend behaves.
type Store struct {
	mu      sync.RWMutex
	records map[store.Kind]map[string]store.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[store.Kind]map[string]store.Record)}
}

// FindByID returns the record with the given kind and id.
func (s *Store) FindByID(_ context.Context, kind store.Kind, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return clone(record), nil
}

// FindByFilter returns all records of kind matching every filter entry.
func (s *Store) FindByFilter(_ context.Context, kind store.Kind, filter map[string]any) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Record
	for _, record := range s.records[kind] {
		if matches(record, filter) {
			out = append(out, clone(record))
		}
	}
	return out, nil
}

// Save inserts or updates a record.
func (s *Store) Save(_ context.Context, record store.Record) error {
	if record.RecordID() == "" {
		return fmt.Errorf("cannot save %s record without id", record.RecordKind())
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kind := record.RecordKind()
	if s.records[kind] == nil {
		s.records[kind] = make(map[string]store.Record)
	}
	s.records[kind][record.RecordID()] = clone(record)
	return nil
}

// Delete removes the record with the given kind and id.
func (s *Store) Delete(_ context.Context, kind store.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[kind], id)
	return nil
}

func matches(record store.Record, filter map[string]any) bool {
	fields := record.Fields()
	for key, want := range filter {
		if fields[key] != want {
			return false
		}
	}
	return true
}

func clone(record store.Record) store.Record {
	switch r := record.(type) {
	case *store.Workflow:
		c := *r
		return &c
	case *store.WorkflowNode:
		c := *r
		return &c
	case *store.WorkflowConnection:
		c := *r
		return &c
	case *store.WorkflowExecution:
		c := *r
		return &c
	default:
		return record
	}
}
