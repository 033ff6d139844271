package store

import (
	"context"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// SaveMetrics persists a metric snapshot, newest first. The performance
// monitor caps what it hands over; the store does not re-trim.
func (m *Manager) SaveMetrics(ctx context.Context, metrics []domain.SearchMetric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.save(ctx, keyMetrics, metrics)
}

// LoadMetrics returns persisted metrics recorded after since.
func (m *Manager) LoadMetrics(ctx context.Context, since time.Time) []domain.SearchMetric {
	m.mu.Lock()
	defer m.mu.Unlock()

	var metrics []domain.SearchMetric
	m.load(ctx, keyMetrics, &metrics)

	kept := make([]domain.SearchMetric, 0, len(metrics))
	for _, mt := range metrics {
		if mt.RecordedAt.After(since) {
			kept = append(kept, mt)
		}
	}
	return kept
}
