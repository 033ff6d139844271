package store

import (
	"context"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// AddFavorite pins an address. Returns false if the address is already a
// favorite (matched by FormattedName or ID) or the write failed.
func (m *Manager) AddFavorite(ctx context.Context, addr domain.AddressResult, nickname, category string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var favs []domain.FavoriteAddress
	if !m.load(ctx, keyFavorites, &favs) {
		return false
	}

	for _, f := range favs {
		if sameAddress(f.AddressResult, addr) {
			return false
		}
	}

	if category == "" {
		category = "general"
	}
	favs = append(favs, domain.FavoriteAddress{
		AddressResult: addr,
		Nickname:      nickname,
		Category:      category,
		AddedAt:       time.Now(),
	})
	m.save(ctx, keyFavorites, favs)
	return true
}

// Favorites returns all pinned addresses.
func (m *Manager) Favorites(ctx context.Context) []domain.FavoriteAddress {
	m.mu.Lock()
	defer m.mu.Unlock()

	var favs []domain.FavoriteAddress
	m.load(ctx, keyFavorites, &favs)
	return favs
}

// RemoveFavorite unpins by id or formatted name.
func (m *Manager) RemoveFavorite(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var favs []domain.FavoriteAddress
	if !m.load(ctx, keyFavorites, &favs) {
		return
	}
	kept := favs[:0]
	for _, f := range favs {
		if f.ID != key && f.FormattedName != key {
			kept = append(kept, f)
		}
	}
	m.save(ctx, keyFavorites, kept)
}

// UpdateFavorite changes the nickname and/or category of a favorite. Nil
// fields are left unchanged. Returns false if no favorite matched.
func (m *Manager) UpdateFavorite(ctx context.Context, key string, nickname, category *string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var favs []domain.FavoriteAddress
	if !m.load(ctx, keyFavorites, &favs) {
		return false
	}
	updated := false
	for i := range favs {
		if favs[i].ID == key || favs[i].FormattedName == key {
			if nickname != nil {
				favs[i].Nickname = *nickname
			}
			if category != nil {
				favs[i].Category = *category
			}
			updated = true
		}
	}
	if updated {
		m.save(ctx, keyFavorites, favs)
	}
	return updated
}

// IncrementUseCount bumps the reuse counter for a favorite.
func (m *Manager) IncrementUseCount(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var favs []domain.FavoriteAddress
	if !m.load(ctx, keyFavorites, &favs) {
		return
	}
	for i := range favs {
		if favs[i].ID == key || favs[i].FormattedName == key {
			favs[i].UseCount++
			m.save(ctx, keyFavorites, favs)
			return
		}
	}
}

// IsFavorite reports whether the address is already pinned.
func (m *Manager) IsFavorite(ctx context.Context, addr domain.AddressResult) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var favs []domain.FavoriteAddress
	m.load(ctx, keyFavorites, &favs)
	for _, f := range favs {
		if sameAddress(f.AddressResult, addr) {
			return true
		}
	}
	return false
}

func sameAddress(a, b domain.AddressResult) bool {
	if a.FormattedName != "" && a.FormattedName == b.FormattedName {
		return true
	}
	return a.ID != "" && a.ID == b.ID
}
