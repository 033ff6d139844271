package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/infra/kv"
)

const (
	cleanupInterval  = 24 * time.Hour
	favoriteMaxIdle  = 365 * 24 * time.Hour
	quotaProbeKey    = "search:quota_probe"
	quotaProbeRounds = 8
)

// Cleanup runs the maintenance pass: re-applies the history window and drops
// favorites that are over a year old and never used. Guarded to at most once
// per day by a persisted last-run stamp; pass force to override.
func (m *Manager) Cleanup(ctx context.Context, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !force {
		if raw, err := m.kv.Get(ctx, keyCleanupRun); err == nil {
			if last, err := time.Parse(time.RFC3339, raw); err == nil &&
				time.Since(last) < cleanupInterval {
				return
			}
		}
	}

	now := time.Now()

	var items []domain.SearchHistoryItem
	if m.load(ctx, keyHistory, &items) {
		m.save(ctx, keyHistory, filterHistoryWindow(items, now))
	}

	var favs []domain.FavoriteAddress
	if m.load(ctx, keyFavorites, &favs) {
		kept := favs[:0]
		for _, f := range favs {
			stale := f.UseCount == 0 && now.Sub(f.AddedAt) > favoriteMaxIdle
			if !stale {
				kept = append(kept, f)
			}
		}
		m.save(ctx, keyFavorites, kept)
	}

	if err := m.kv.Set(ctx, keyCleanupRun, now.Format(time.RFC3339)); err != nil {
		m.logger.Warn("storage write failed", "key", keyCleanupRun, "error", err)
	}
}

// RunCleanupLoop runs Cleanup on a ticker until ctx is done. Intended to be
// started once from the control layer.
func (m *Manager) RunCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	m.Cleanup(ctx, false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup(ctx, false)
		}
	}
}

// QuotaEstimate describes approximate storage usage.
type QuotaEstimate struct {
	UsedBytes     int `json:"usedBytes"`
	HeadroomBytes int `json:"headroomBytes"`
}

// EstimateQuota reports bytes used by the durable collections and probes
// available headroom by writing doubling test payloads until one fails.
func (m *Manager) EstimateQuota(ctx context.Context) QuotaEstimate {
	m.mu.Lock()
	defer m.mu.Unlock()

	var est QuotaEstimate
	for _, key := range []string{keyHistory, keyFavorites, keySettings, keyMetrics} {
		raw, err := m.kv.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, kv.ErrNotFound) {
				m.logger.Warn("storage read failed", "key", key, "error", err)
			}
			continue
		}
		est.UsedBytes += len(key) + len(raw)
	}

	size := 1024
	for i := 0; i < quotaProbeRounds; i++ {
		payload := strings.Repeat("x", size)
		if err := m.kv.Set(ctx, quotaProbeKey, payload); err != nil {
			break
		}
		est.HeadroomBytes = size
		size *= 2
	}
	if err := m.kv.Delete(ctx, quotaProbeKey); err != nil {
		m.logger.Warn("storage delete failed", "key", quotaProbeKey, "error", err)
	}

	return est
}

// String implements fmt.Stringer for log lines.
func (q QuotaEstimate) String() string {
	return fmt.Sprintf("used=%dB headroom>=%dB", q.UsedBytes, q.HeadroomBytes)
}
