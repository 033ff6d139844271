package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/infra/kv/memory"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
	"github.com/haneul-dev/addrsearch/internal/search/monitor"
	"github.com/haneul-dev/addrsearch/internal/search/proxy"
	"github.com/haneul-dev/addrsearch/internal/store"
)

// fastPolicy keeps retry backoff out of test wall time.
var fastPolicy = classify.Policy{
	MaxAttempts:         3,
	RateLimitedAttempts: 2,
	RateLimitedDelay:    10 * time.Millisecond,
	BaseDelay:           10 * time.Millisecond,
	MaxDelay:            50 * time.Millisecond,
}

func respond(w http.ResponseWriter, names ...string) {
	docs := make([]map[string]any, 0, len(names))
	for _, n := range names {
		docs = append(docs, map[string]any{
			"address_name": n,
			"address_type": "REGION",
			"x":            "127.0",
			"y":            "37.5",
		})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"documents": docs,
		"meta":      map[string]any{"total_count": len(docs), "pageable_count": len(docs), "is_end": true},
	})
}

type testEnv struct {
	pipeline *Pipeline
	store    *store.Manager
	monitor  *monitor.Monitor
	client   *proxy.Client
}

func newTestPipeline(t *testing.T, handler http.HandlerFunc, cfg PipelineConfig) *testEnv {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	st := store.NewManager(memory.New(), nil)
	mon := monitor.New(st, nil)
	client := proxy.NewClient(proxy.Config{BaseURL: srv.URL})

	if cfg.Policy == (classify.Policy{}) {
		cfg.Policy = fastPolicy
	}
	return &testEnv{
		pipeline: NewPipeline(client, st, mon, nil, cfg),
		store:    st,
		monitor:  mon,
		client:   client,
	}
}

func TestRunPlentyOfResultsSkipsBroadening(t *testing.T) {
	var calls int32
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		respond(w, "결과1", "결과2", "결과3")
	}, PipelineConfig{SaveHistory: true})

	out, err := env.pipeline.Run(context.Background(), "강남대로", 10, domain.ModeAddress)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 3 {
		t.Errorf("got %d results, want 3", len(out.Results))
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("upstream calls = %d, want 1 (no broadening at threshold)", calls)
	}
	if out.Metric.UpstreamCalls != 1 {
		t.Errorf("metric upstream calls = %d, want 1", out.Metric.UpstreamCalls)
	}

	hist := env.store.History(context.Background())
	if len(hist) != 1 || hist[0].Query != "강남대로" {
		t.Errorf("history not recorded: %+v", hist)
	}
}

func TestRunBroadensUnderThreshold(t *testing.T) {
	var mu sync.Mutex
	queries := []string{}

	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		mu.Lock()
		queries = append(queries, q)
		mu.Unlock()

		switch q {
		case "Gang":
			respond(w, "Gangnam Primary")
		case "Gang시":
			respond(w, "Gangnam City", "Gangnam Primary") // duplicate of primary
		case "Gang구":
			respond(w, "Gangnam District")
		case "Gang동":
			w.WriteHeader(http.StatusInternalServerError) // isolated failure
		default:
			respond(w)
		}
	}, PipelineConfig{})

	out, err := env.pipeline.Run(context.Background(), "Gang", 10, domain.ModeAddress)
	if err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	total := len(queries)
	mu.Unlock()
	if total != 7 {
		t.Errorf("issued %d queries, want 1 primary + 6 supplementary", total)
	}
	if out.Metric.UpstreamCalls != 7 {
		t.Errorf("metric upstream calls = %d, want 7", out.Metric.UpstreamCalls)
	}

	if len(out.Results) > maxResults {
		t.Errorf("result set exceeds cap: %d", len(out.Results))
	}
	seen := map[string]bool{}
	for _, r := range out.Results {
		if seen[r.FormattedName] {
			t.Errorf("duplicate formatted name: %q", r.FormattedName)
		}
		seen[r.FormattedName] = true
	}
	if out.Results[0].FormattedName != "Gangnam Primary" {
		t.Errorf("primary result should stay first, got %q", out.Results[0].FormattedName)
	}
	if len(out.Results) != 3 {
		t.Errorf("got %d merged results, want 3 (primary + 2 unique branches)", len(out.Results))
	}
}

func TestRunCapsMergedResults(t *testing.T) {
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("query")
		if q == "팔공" {
			respond(w, "팔공 본점")
			return
		}
		// Each branch returns three distinct names.
		respond(w, q+" 1", q+" 2", q+" 3")
	}, PipelineConfig{})

	out, err := env.pipeline.Run(context.Background(), "팔공", 10, domain.ModeAddress)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != maxResults {
		t.Errorf("got %d results, want cap of %d", len(out.Results), maxResults)
	}
}

func TestRunTransientFailureRecovery(t *testing.T) {
	var calls int32
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		respond(w, "복구된 결과", "두번째", "세번째")
	}, PipelineConfig{})

	out, err := env.pipeline.Run(context.Background(), "회복시험", 10, domain.ModeAddress)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("upstream calls = %d, want 2 (one failure, one success)", calls)
	}
	if out.Metric.UpstreamCalls != 2 {
		t.Errorf("metric upstream calls = %d, want 2 (failed attempt counts)", out.Metric.UpstreamCalls)
	}
	if len(out.Results) != 3 {
		t.Errorf("got %d results after recovery", len(out.Results))
	}
}

func TestRunRetryCap(t *testing.T) {
	var calls int32
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, PipelineConfig{})

	_, err := env.pipeline.Run(context.Background(), "실패시험", 10, domain.ModeAddress)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("attempts = %d, want exactly 3", got)
	}

	var serr *classify.SearchError
	if !errors.As(err, &serr) || serr.Kind != classify.KindNetwork {
		t.Errorf("expected a network-classified error, got %v", err)
	}
}

func TestRunRateLimitedRetriesOnce(t *testing.T) {
	var calls int32
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, PipelineConfig{})

	_, err := env.pipeline.Run(context.Background(), "한도시험", 10, domain.ModeAddress)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("attempts = %d, want exactly 2 for rateLimited", got)
	}
}

func TestRunTerminalFailureSkipsRetry(t *testing.T) {
	var calls int32
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, PipelineConfig{})

	_, err := env.pipeline.Run(context.Background(), "인증시험", 10, domain.ModeAddress)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("attempts = %d, want 1 for invalidCredential", got)
	}
	var serr *classify.SearchError
	if !errors.As(err, &serr) || serr.Retryable {
		t.Errorf("credential failure should be non-retryable: %v", err)
	}
}

func TestRunEmptyResultsSkipHistory(t *testing.T) {
	env := newTestPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w) // empty but valid
	}, PipelineConfig{SaveHistory: true})

	out, err := env.pipeline.Run(context.Background(), "없는주소어딘가", 10, domain.ModeAddress)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 0 {
		t.Errorf("expected no results, got %d", len(out.Results))
	}
	if hist := env.store.History(context.Background()); len(hist) != 0 {
		t.Errorf("empty searches must not enter history: %+v", hist)
	}
}

func TestMergeResultsDedupByName(t *testing.T) {
	a := domain.AddressResult{ID: "1", FormattedName: "서울 강남구"}
	b := domain.AddressResult{ID: "2", FormattedName: "서울 강남구"} // distinct id, same name
	c := domain.AddressResult{ID: "3", FormattedName: "서울 서초구"}

	merged := mergeResults([]domain.AddressResult{a}, []domain.AddressResult{b, c}, 10)
	if len(merged) != 2 {
		t.Fatalf("got %d, want 2", len(merged))
	}
	if merged[0].ID != "1" || merged[1].ID != "3" {
		t.Errorf("first-seen order not preserved: %+v", merged)
	}
}
