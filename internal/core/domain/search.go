package domain

import "time"

// SearchMode selects which provider index a search targets.
type SearchMode string

const (
	ModeAddress SearchMode = "address"
	ModeKeyword SearchMode = "keyword"
)

// SearchMetric records one completed search, success or failure.
type SearchMetric struct {
	Query          string     `json:"query"`
	ResponseTimeMs int64      `json:"responseTimeMs"`
	ResultCount    int        `json:"resultCount"`
	CacheHit       bool       `json:"cacheHit"`
	UpstreamCalls  int        `json:"upstreamCalls"`
	Mode           SearchMode `json:"mode"`
	RecordedAt     time.Time  `json:"recordedAt"`
}

// SearchHistoryItem is one remembered search. Deduplicated by query text
// (case-insensitive) on insert and pruned to a 30-day window on read.
type SearchHistoryItem struct {
	ID          string         `json:"id"`
	Query       string         `json:"query"`
	RecordedAt  time.Time      `json:"recordedAt"`
	ResultCount int            `json:"resultCount"`
	Selected    *AddressResult `json:"selected,omitempty"`
}

// FavoriteAddress is an address the user pinned. Unique by FormattedName or ID.
type FavoriteAddress struct {
	AddressResult
	Nickname string    `json:"nickname,omitempty"`
	Category string    `json:"category"`
	AddedAt  time.Time `json:"addedAt"`
	UseCount int       `json:"useCount"`
}

// SearchSettings is the singleton user preference record. Loaded values are
// merged onto DefaultSettings; updates are partial (see SettingsPatch).
type SearchSettings struct {
	MaxHistoryItems   int        `json:"maxHistoryItems"`
	EnableGeolocation bool       `json:"enableGeolocation"`
	DefaultMode       SearchMode `json:"defaultMode"`
	AutoSaveToHistory bool       `json:"autoSaveToHistory"`
	DebounceDelayMs   int        `json:"debounceDelayMs"`
}

// DefaultSettings returns the compiled-in settings baseline.
func DefaultSettings() SearchSettings {
	return SearchSettings{
		MaxHistoryItems:   50,
		EnableGeolocation: true,
		DefaultMode:       ModeAddress,
		AutoSaveToHistory: true,
		DebounceDelayMs:   200,
	}
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
type SettingsPatch struct {
	MaxHistoryItems   *int        `json:"maxHistoryItems,omitempty"`
	EnableGeolocation *bool       `json:"enableGeolocation,omitempty"`
	DefaultMode       *SearchMode `json:"defaultMode,omitempty"`
	AutoSaveToHistory *bool       `json:"autoSaveToHistory,omitempty"`
	DebounceDelayMs   *int        `json:"debounceDelayMs,omitempty"`
}

// Apply merges the patch onto s and returns the result.
func (p SettingsPatch) Apply(s SearchSettings) SearchSettings {
	if p.MaxHistoryItems != nil {
		s.MaxHistoryItems = *p.MaxHistoryItems
	}
	if p.EnableGeolocation != nil {
		s.EnableGeolocation = *p.EnableGeolocation
	}
	if p.DefaultMode != nil {
		s.DefaultMode = *p.DefaultMode
	}
	if p.AutoSaveToHistory != nil {
		s.AutoSaveToHistory = *p.AutoSaveToHistory
	}
	if p.DebounceDelayMs != nil {
		s.DebounceDelayMs = *p.DebounceDelayMs
	}
	return s
}
