// Package monitor tracks per-search timing and result metrics and derives
// rolling statistics, trends, and performance findings from them.
package monitor

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/search/metrics"
	"github.com/haneul-dev/addrsearch/internal/store"
)

const (
	maxInMemory  = 100
	maxDurable   = 50
	reloadWindow = 24 * time.Hour

	// Trend detection: mean of the newest trendSample metrics versus the
	// prior trendSample, with a significance threshold.
	trendSample    = 20
	trendThreshold = 50 * time.Millisecond

	alertResponseTime = 5 * time.Second
)

// Token marks a search in progress. A zero Token degrades the measured
// response time to 0 instead of failing.
type Token struct {
	startedAt time.Time
}

// EndParams carries the final counts for a completed search.
type EndParams struct {
	Query         string
	ResultCount   int
	CacheHit      bool
	UpstreamCalls int
	Mode          domain.SearchMode
}

// Trend is the direction of recent response times.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// Statistics is a rolling summary over the in-memory metric window.
type Statistics struct {
	TotalSearches         int          `json:"totalSearches"`
	AverageResponseTimeMs float64      `json:"averageResponseTimeMs"`
	CacheHitRate          float64      `json:"cacheHitRate"` // percent
	AverageResultCount    float64      `json:"averageResultCount"`
	TotalUpstreamCalls    int          `json:"totalUpstreamCalls"`
	SearchesLastMinute    int          `json:"searchesLastMinute"`
	TopQueries            []QueryCount `json:"topQueries"`
	Trend                 Trend        `json:"performanceTrend"`
}

// QueryCount is one entry of the most-frequent-query ranking.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Issue is a warning or critical finding over the rolling window.
type Issue struct {
	Severity string `json:"severity"` // "warning" or "critical"
	Message  string `json:"message"`
}

// Monitor retains a bounded rolling window of search metrics, oldest evicted
// first. Construct once at application start.
type Monitor struct {
	store  *store.Manager
	logger *slog.Logger

	mu     sync.Mutex
	window []domain.SearchMetric // oldest first
}

// New creates a monitor, reloading durable metrics from the last 24 hours.
func New(st *store.Manager, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{store: st, logger: logger}

	if st != nil {
		loaded := st.LoadMetrics(context.Background(), time.Now().Add(-reloadWindow))
		// Persisted newest-first; the window is kept oldest-first.
		for i := len(loaded) - 1; i >= 0; i-- {
			m.window = append(m.window, loaded[i])
		}
		if len(m.window) > maxInMemory {
			m.window = m.window[len(m.window)-maxInMemory:]
		}
	}
	return m
}

// StartSearch begins timing a search.
func (m *Monitor) StartSearch(query string, mode domain.SearchMode) Token {
	return Token{startedAt: time.Now()}
}

// EndSearch finalizes a metric, records it in the rolling window, persists
// the most recent snapshot, and mirrors it into Prometheus.
func (m *Monitor) EndSearch(ctx context.Context, tok Token, p EndParams) domain.SearchMetric {
	var elapsed int64
	if !tok.startedAt.IsZero() {
		elapsed = time.Since(tok.startedAt).Milliseconds()
	}

	metric := domain.SearchMetric{
		Query:          p.Query,
		ResponseTimeMs: elapsed,
		ResultCount:    p.ResultCount,
		CacheHit:       p.CacheHit,
		UpstreamCalls:  p.UpstreamCalls,
		Mode:           p.Mode,
		RecordedAt:     time.Now(),
	}

	m.mu.Lock()
	m.window = append(m.window, metric)
	if len(m.window) > maxInMemory {
		m.window = m.window[len(m.window)-maxInMemory:]
	}
	snapshot := m.durableSnapshotLocked()
	m.mu.Unlock()

	if m.store != nil {
		m.store.SaveMetrics(ctx, snapshot)
	}

	metrics.SearchesTotal.WithLabelValues(string(p.Mode)).Inc()
	metrics.SearchLatency.WithLabelValues(string(p.Mode)).
		Observe(float64(elapsed) / 1000)
	if p.CacheHit {
		metrics.CacheHitsTotal.Inc()
	}
	metrics.UpstreamCallsTotal.Add(float64(p.UpstreamCalls))

	for _, alert := range m.CheckAlerts(metric) {
		m.logger.Warn("search performance alert", "query", p.Query, "alert", alert)
	}

	return metric
}

// durableSnapshotLocked returns the newest maxDurable metrics, newest first.
func (m *Monitor) durableSnapshotLocked() []domain.SearchMetric {
	n := len(m.window)
	count := n
	if count > maxDurable {
		count = maxDurable
	}
	out := make([]domain.SearchMetric, 0, count)
	for i := n - 1; i >= n-count; i-- {
		out = append(out, m.window[i])
	}
	return out
}

// Statistics derives the rolling summary.
func (m *Monitor) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{Trend: TrendStable}
	n := len(m.window)
	stats.TotalSearches = n
	if n == 0 {
		return stats
	}

	var totalMs, totalResults int64
	hits := 0
	minuteAgo := time.Now().Add(-time.Minute)
	freq := make(map[string]int)

	for _, mt := range m.window {
		totalMs += mt.ResponseTimeMs
		totalResults += int64(mt.ResultCount)
		stats.TotalUpstreamCalls += mt.UpstreamCalls
		if mt.CacheHit {
			hits++
		}
		if mt.RecordedAt.After(minuteAgo) {
			stats.SearchesLastMinute++
		}
		if q := strings.ToLower(strings.TrimSpace(mt.Query)); q != "" {
			freq[q]++
		}
	}

	stats.AverageResponseTimeMs = float64(totalMs) / float64(n)
	stats.CacheHitRate = float64(hits) / float64(n) * 100
	stats.AverageResultCount = float64(totalResults) / float64(n)
	stats.TopQueries = topQueries(freq, 10)
	stats.Trend = m.trendLocked()

	return stats
}

func (m *Monitor) trendLocked() Trend {
	n := len(m.window)
	if n < 2*trendSample {
		return TrendStable
	}

	recent := m.window[n-trendSample:]
	prior := m.window[n-2*trendSample : n-trendSample]

	mean := func(ms []domain.SearchMetric) float64 {
		var sum int64
		for _, mt := range ms {
			sum += mt.ResponseTimeMs
		}
		return float64(sum) / float64(len(ms))
	}

	diff := mean(recent) - mean(prior)
	threshold := float64(trendThreshold.Milliseconds())
	switch {
	case diff <= -threshold:
		return TrendImproving
	case diff >= threshold:
		return TrendDegrading
	default:
		return TrendStable
	}
}

func topQueries(freq map[string]int, limit int) []QueryCount {
	out := make([]QueryCount, 0, len(freq))
	for q, c := range freq {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Query < out[j].Query
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PerformanceIssues reports window-wide findings.
func (m *Monitor) PerformanceIssues() []Issue {
	stats := m.Statistics()

	var issues []Issue
	switch {
	case stats.AverageResponseTimeMs > 2000:
		issues = append(issues, Issue{
			Severity: "critical",
			Message:  "Average search response time exceeds 2s",
		})
	case stats.AverageResponseTimeMs > 1000:
		issues = append(issues, Issue{
			Severity: "warning",
			Message:  "Average search response time exceeds 1s",
		})
	}

	if stats.TotalSearches > 10 && stats.CacheHitRate < 30 {
		issues = append(issues, Issue{
			Severity: "warning",
			Message:  "Cache hit rate is below 30%",
		})
	}

	if stats.TotalUpstreamCalls > 2*stats.TotalSearches {
		issues = append(issues, Issue{
			Severity: "warning",
			Message:  "Upstream call volume is more than twice the search count",
		})
	}

	return issues
}

// CheckAlerts flags findings for one individual search.
func (m *Monitor) CheckAlerts(metric domain.SearchMetric) []string {
	var alerts []string
	if metric.ResponseTimeMs > alertResponseTime.Milliseconds() {
		alerts = append(alerts, "response time over 5s")
	}
	if metric.ResultCount == 0 && !metric.CacheHit {
		alerts = append(alerts, "zero results from a live search")
	}
	return alerts
}
