// Package search orchestrates the resilient address-search flow: retrying
// classified failures, broadening under-returning queries, recording history,
// and timing every search. The Controller adds debounced, cancellable
// dispatch on top for interactive sessions.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
	"github.com/haneul-dev/addrsearch/internal/search/metrics"
	"github.com/haneul-dev/addrsearch/internal/search/monitor"
	"github.com/haneul-dev/addrsearch/internal/search/proxy"
	"github.com/haneul-dev/addrsearch/internal/store"
)

const (
	// broadenThreshold is the primary result count below which supplementary
	// queries are issued.
	broadenThreshold = 3

	// maxResults caps the merged primary + broadened result set.
	maxResults = 10

	// minQueryRunes is the shortest query that may reach the network.
	minQueryRunes = 2
)

// PipelineConfig tunes one pipeline instance.
type PipelineConfig struct {
	// Policy overrides the retry policy; zero value means DefaultPolicy.
	Policy classify.Policy

	// SingleFlight routes primary lookups through the proxy client's
	// cancel-previous discipline. Enable for interactive controllers that own
	// their client; leave off when the client is shared across requests.
	SingleFlight bool

	// SaveHistory records non-empty results into the store.
	SaveHistory bool
}

// Pipeline runs one complete search per call. Safe for concurrent use when
// SingleFlight is off.
type Pipeline struct {
	client  *proxy.Client
	store   *store.Manager
	monitor *monitor.Monitor
	logger  *slog.Logger
	cfg     PipelineConfig
}

// Outcome is a completed search.
type Outcome struct {
	Results []domain.AddressResult
	Metric  domain.SearchMetric
}

// NewPipeline wires a pipeline. store and monitor may be shared instances.
func NewPipeline(client *proxy.Client, st *store.Manager, mon *monitor.Monitor,
	logger *slog.Logger, cfg PipelineConfig) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy == (classify.Policy{}) {
		cfg.Policy = classify.DefaultPolicy
	}
	return &Pipeline{client: client, store: st, monitor: mon, logger: logger, cfg: cfg}
}

// Run executes a full search: retry on transient failures, broaden when the
// primary under-returns, record history, and finalize the metric. The
// returned error is always a classified *classify.SearchError.
func (p *Pipeline) Run(ctx context.Context, query string, size int, mode domain.SearchMode) (*Outcome, error) {
	tok := p.monitor.StartSearch(query, mode)

	res, attempts, serr := p.searchWithRetry(ctx, query, size)
	if serr != nil {
		metrics.SearchErrorsTotal.WithLabelValues(string(serr.Kind)).Inc()
		p.monitor.EndSearch(ctx, tok, monitor.EndParams{
			Query: query, UpstreamCalls: attempts, Mode: mode,
		})
		return nil, serr
	}

	results := res.Addresses
	// Failed attempts before the recovery still spent upstream calls; only a
	// cache-served final attempt did not.
	upstream := attempts
	if res.CacheHit {
		upstream--
	}

	if len(results) < broadenThreshold && runeLen(query) >= minQueryRunes {
		extra, branchCalls := p.broaden(ctx, query)
		upstream += branchCalls
		results = mergeResults(results, extra, maxResults)
	}

	if p.cfg.SaveHistory && len(results) > 0 {
		p.store.AddHistory(ctx, query, len(results), nil)
	}

	metric := p.monitor.EndSearch(ctx, tok, monitor.EndParams{
		Query:         query,
		ResultCount:   len(results),
		CacheHit:      res.CacheHit,
		UpstreamCalls: upstream,
		Mode:          mode,
	})

	return &Outcome{Results: results, Metric: metric}, nil
}

// searchWithRetry runs the primary lookup under the retry policy, sleeping
// between attempts with context-aware backoff.
func (p *Pipeline) searchWithRetry(ctx context.Context, query string, size int) (*proxy.Result, int, *classify.SearchError) {
	var lastErr *classify.SearchError

	for attempt := 1; ; attempt++ {
		res, err := p.primaryLookup(ctx, query, size)
		if err == nil {
			return res, attempt, nil
		}

		lastErr = classify.Classify(err)
		if !p.cfg.Policy.ShouldRetry(lastErr, attempt) {
			return nil, attempt, lastErr
		}

		delay := p.cfg.Policy.Delay(attempt-1, lastErr.Kind)
		p.logger.Debug("retrying search",
			"query", query, "attempt", attempt, "kind", lastErr.Kind, "delay", delay)
		metrics.RetriesTotal.WithLabelValues(string(lastErr.Kind)).Inc()

		select {
		case <-ctx.Done():
			return nil, attempt, classify.Classify(ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (p *Pipeline) primaryLookup(ctx context.Context, query string, size int) (*proxy.Result, error) {
	if p.cfg.SingleFlight {
		return p.client.Search(ctx, query, size)
	}
	return p.client.Lookup(ctx, query, size)
}

func runeLen(s string) int { return len([]rune(s)) }
