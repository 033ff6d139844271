// Package store is the persistent store manager: durable search history,
// favorites, settings, and metric snapshots over a kv.Store backend.
//
// Every storage failure is logged and swallowed. The search flow must never
// fail because a durable read or write did; worst case the caller sees an
// empty collection.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/haneul-dev/addrsearch/internal/infra/kv"
)

// Durable key namespaces. Each collection is one serialized JSON document
// under its own key. No schema version tag is carried; a future field
// addition relies on JSON's tolerance for unknown fields.
const (
	keyHistory    = "search:history"
	keyFavorites  = "search:favorites"
	keySettings   = "search:settings"
	keyMetrics    = "search:metrics"
	keyCleanupRun = "search:cleanup_last_run"
)

// Manager owns the durable collections. Construct once at application start;
// it lives for the process lifetime.
type Manager struct {
	kv     kv.Store
	logger *slog.Logger

	// Serializes read-modify-write cycles on the collections so two rapid
	// updates cannot interleave.
	mu sync.Mutex
}

// NewManager creates a store manager over the given backend.
func NewManager(backend kv.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{kv: backend, logger: logger}
}

// load reads and unmarshals the collection under key into out. A missing key
// leaves out untouched. Returns false only on a real failure, which has
// already been logged.
func (m *Manager) load(ctx context.Context, key string, out any) bool {
	raw, err := m.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return true
	}
	if err != nil {
		m.logger.Warn("storage read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		m.logger.Warn("stored collection is corrupt, ignoring", "key", key, "error", err)
		return false
	}
	return true
}

// save marshals and writes the collection under key, logging any failure.
func (m *Manager) save(ctx context.Context, key string, in any) {
	raw, err := json.Marshal(in)
	if err != nil {
		m.logger.Warn("storage marshal failed", "key", key, "error", err)
		return
	}
	if err := m.kv.Set(ctx, key, string(raw)); err != nil {
		m.logger.Warn("storage write failed", "key", key, "error", err)
	}
}
