package store

import (
	"context"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// Settings returns the effective settings: durable overrides merged onto the
// compiled-in defaults.
func (m *Manager) Settings(ctx context.Context) domain.SearchSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingsLocked(ctx)
}

func (m *Manager) settingsLocked(ctx context.Context) domain.SearchSettings {
	// Stored as a patch so absent fields fall through to defaults even if the
	// defaults change between releases.
	var stored domain.SettingsPatch
	m.load(ctx, keySettings, &stored)
	return stored.Apply(domain.DefaultSettings())
}

// UpdateSettings applies a partial update and persists the merged overrides.
// Returns the effective settings after the update.
func (m *Manager) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) domain.SearchSettings {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stored domain.SettingsPatch
	m.load(ctx, keySettings, &stored)

	if patch.MaxHistoryItems != nil {
		stored.MaxHistoryItems = patch.MaxHistoryItems
	}
	if patch.EnableGeolocation != nil {
		stored.EnableGeolocation = patch.EnableGeolocation
	}
	if patch.DefaultMode != nil {
		stored.DefaultMode = patch.DefaultMode
	}
	if patch.AutoSaveToHistory != nil {
		stored.AutoSaveToHistory = patch.AutoSaveToHistory
	}
	if patch.DebounceDelayMs != nil {
		stored.DebounceDelayMs = patch.DebounceDelayMs
	}

	m.save(ctx, keySettings, stored)
	return stored.Apply(domain.DefaultSettings())
}
