package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// historyWindow is how far back reads reach; older entries are pruned.
const historyWindow = 30 * 24 * time.Hour

// AddHistory records a completed search. Entries are deduplicated by
// case-insensitive query text: a repeat query removes the prior entry and
// reinserts at the front. A no-op when AutoSaveToHistory is off.
func (m *Manager) AddHistory(ctx context.Context, query string, resultCount int, selected *domain.AddressResult) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	settings := m.Settings(ctx)
	if !settings.AutoSaveToHistory {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var items []domain.SearchHistoryItem
	m.load(ctx, keyHistory, &items)

	lower := strings.ToLower(query)
	kept := items[:0]
	for _, it := range items {
		if strings.ToLower(it.Query) != lower {
			kept = append(kept, it)
		}
	}

	entry := domain.SearchHistoryItem{
		ID:          uuid.NewString(),
		Query:       query,
		RecordedAt:  time.Now(),
		ResultCount: resultCount,
		Selected:    selected,
	}
	items = append([]domain.SearchHistoryItem{entry}, kept...)

	max := settings.MaxHistoryItems
	if max <= 0 {
		max = domain.DefaultSettings().MaxHistoryItems
	}
	if len(items) > max {
		items = items[:max]
	}

	m.save(ctx, keyHistory, items)
}

// History returns remembered searches, newest first, filtered to the rolling
// 30-day window.
func (m *Manager) History(ctx context.Context) []domain.SearchHistoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []domain.SearchHistoryItem
	m.load(ctx, keyHistory, &items)
	return filterHistoryWindow(items, time.Now())
}

// RemoveHistory deletes a single entry by id.
func (m *Manager) RemoveHistory(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []domain.SearchHistoryItem
	if !m.load(ctx, keyHistory, &items) {
		return
	}
	kept := items[:0]
	for _, it := range items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	m.save(ctx, keyHistory, kept)
}

// ClearHistory deletes all history.
func (m *Manager) ClearHistory(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Delete(ctx, keyHistory); err != nil {
		m.logger.Warn("storage delete failed", "key", keyHistory, "error", err)
	}
}

func filterHistoryWindow(items []domain.SearchHistoryItem, now time.Time) []domain.SearchHistoryItem {
	cutoff := now.Add(-historyWindow)
	kept := make([]domain.SearchHistoryItem, 0, len(items))
	for _, it := range items {
		if it.RecordedAt.After(cutoff) {
			kept = append(kept, it)
		}
	}
	return kept
}
