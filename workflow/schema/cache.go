// Package schema implements the design-time output-schema cache.
//
// Entries are keyed by node id and guarded by a validity predicate over
// the node's config hash, its upstream schema hashes, and a TTL. A
// secondary per-workflow index lets a save invalidate every affected node
// at once.
package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shashank-sharma/nenspace-sub007/internal/canonicaljson"
	"github.com/shashank-sharma/nenspace-sub007/internal/telemetry"
	"github.com/shashank-sharma/nenspace-sub007/workflow/types"
)

// Default cache tuning.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 1000
)

type entry struct {
	schema      *types.DataSchema
	configHash  string
	inputHashes []string
	workflowID  string
	timestamp   time.Time
}

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Sets      int64   `json:"sets"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// Cache memoises derived output schemas per node.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	byWorkflow map[string]map[string]struct{}
	ttl        time.Duration
	maxEntries int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	sets      atomic.Int64
}

// NewCache creates a cache with the given TTL and size bound. Zero values
// select the defaults.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*entry),
		byWorkflow: make(map[string]map[string]struct{}),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns the cached schema for nodeID when the entry is still valid:
// same config hash, same input hashes, and younger than the TTL.
func (c *Cache) Get(ctx context.Context, nodeID, configHash string, inputHashes []string) (*types.DataSchema, bool) {
	c.mu.Lock()
	e, ok := c.entries[nodeID]
	valid := ok &&
		e.configHash == configHash &&
		equalHashes(e.inputHashes, inputHashes) &&
		time.Since(e.timestamp) < c.ttl
	var schema *types.DataSchema
	if valid {
		schema = e.schema.Clone()
	}
	c.mu.Unlock()

	if valid {
		c.hits.Add(1)
		telemetry.IncSchemaCacheHit(ctx)
		return schema, true
	}
	c.misses.Add(1)
	telemetry.IncSchemaCacheMiss(ctx)
	return nil, false
}

// Set stores a derived schema for nodeID. When the cache is full the
// single oldest entry by timestamp is evicted first.
func (c *Cache) Set(ctx context.Context, workflowID, nodeID string, schema *types.DataSchema, configHash string, inputHashes []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[nodeID]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked(ctx)
	}

	c.entries[nodeID] = &entry{
		schema:      schema.Clone(),
		configHash:  configHash,
		inputHashes: append([]string(nil), inputHashes...),
		workflowID:  workflowID,
		timestamp:   time.Now(),
	}
	if c.byWorkflow[workflowID] == nil {
		c.byWorkflow[workflowID] = make(map[string]struct{})
	}
	c.byWorkflow[workflowID][nodeID] = struct{}{}
	c.sets.Add(1)
}

// InvalidateWorkflow drops every cached entry belonging to workflowID.
// Called after a workflow save.
func (c *Cache) InvalidateWorkflow(workflowID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for nodeID := range c.byWorkflow[workflowID] {
		delete(c.entries, nodeID)
	}
	delete(c.byWorkflow, workflowID)
}

// InvalidateNode drops the cached entry for a single node.
func (c *Cache) InvalidateNode(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[nodeID]
	if !ok {
		return
	}
	delete(c.entries, nodeID)
	if nodes := c.byWorkflow[e.workflowID]; nodes != nil {
		delete(nodes, nodeID)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	stats := Stats{
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		Sets:      c.sets.Load(),
		Size:      size,
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// evictOldestLocked removes the entry with the oldest timestamp.
// Approximate LRU: exact recency order is not required.
func (c *Cache) evictOldestLocked(ctx context.Context) {
	var oldestID string
	var oldest time.Time
	for nodeID, e := range c.entries {
		if oldestID == "" || e.timestamp.Before(oldest) {
			oldestID = nodeID
			oldest = e.timestamp
		}
	}
	if oldestID == "" {
		return
	}
	e := c.entries[oldestID]
	delete(c.entries, oldestID)
	if nodes := c.byWorkflow[e.workflowID]; nodes != nil {
		delete(nodes, oldestID)
	}
	c.evictions.Add(1)
	telemetry.IncSchemaCacheEviction(ctx)
}

func equalHashes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HashConfig computes the cache key component for a node config:
// sha256 over the canonical JSON encoding.
func HashConfig(config map[string]any) (string, error) {
	return hashValue(config)
}

// HashSchema computes the hash of a derived schema, used as the input
// hash for downstream cache entries.
func HashSchema(schema *types.DataSchema) (string, error) {
	if schema == nil {
		return hashValue(nil)
	}
	return hashValue(types.SchemaToMap(schema))
}

func hashValue(v any) (string, error) {
	canonical, err := canonicaljson.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
