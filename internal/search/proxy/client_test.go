package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
)

const sampleBody = `{
	"documents": [
		{
			"address_name": "서울 강남구 역삼동",
			"address_type": "REGION",
			"x": "127.0365", "y": "37.5002",
			"address": {
				"region_1depth_name": "서울",
				"region_2depth_name": "강남구",
				"region_3depth_name": "역삼동"
			}
		}
	],
	"meta": {"total_count": 1, "pageable_count": 1, "is_end": true}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	return NewClient(cfg), srv
}

func TestSearchMapsDocuments(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		fmt.Fprint(w, sampleBody)
	}, Config{})

	res, err := c.Search(context.Background(), "역삼", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if gotPath != "/api/kakao-address" {
		t.Errorf("path = %q, want /api/kakao-address", gotPath)
	}
	if gotQuery != "역삼" {
		t.Errorf("query = %q, want 역삼", gotQuery)
	}
	if len(res.Addresses) != 1 {
		t.Fatalf("got %d addresses, want 1", len(res.Addresses))
	}

	a := res.Addresses[0]
	if a.FormattedName != "서울 강남구 역삼동" {
		t.Errorf("formatted name = %q", a.FormattedName)
	}
	if a.Kind != domain.AddressKindLot {
		t.Errorf("kind = %s, want lot", a.Kind)
	}
	if a.Coordinates.X != 127.0365 || a.Coordinates.Y != 37.5002 {
		t.Errorf("coordinates = %+v", a.Coordinates)
	}
	if a.Region.FullName != "서울 강남구 역삼동" {
		t.Errorf("region full name = %q", a.Region.FullName)
	}
	if a.ID == "" {
		t.Error("expected a derived id")
	}
}

func TestCacheIdempotence(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, sampleBody)
	}, Config{})

	first, err := c.Search(context.Background(), "역삼", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Search(context.Background(), "역삼", 10)
	if err != nil {
		t.Fatal(err)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
	if first.CacheHit {
		t.Error("first call must not be a cache hit")
	}
	if !second.CacheHit {
		t.Error("second call within TTL must be a cache hit")
	}
	if len(second.Addresses) != len(first.Addresses) ||
		second.Addresses[0] != first.Addresses[0] {
		t.Error("cached results differ from the original")
	}

	// A different size is a different cache key.
	if _, err := c.Search(context.Background(), "역삼", 5); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("upstream calls = %d, want 2 after a size change", calls)
	}
}

func TestCacheExpiry(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, sampleBody)
	}, Config{CacheTTL: 50 * time.Millisecond})

	if _, err := c.Search(context.Background(), "역삼", 10); err != nil {
		t.Fatal(err)
	}
	time.Sleep(80 * time.Millisecond)
	res, err := c.Search(context.Background(), "역삼", 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("expired entry must not serve a cache hit")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("upstream calls = %d, want 2", calls)
	}
}

func TestNon2xxCarriesBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream exploded")
	}, Config{})

	_, err := c.Search(context.Background(), "역삼", 10)
	if err == nil {
		t.Fatal("expected an error")
	}
	var httpErr *classify.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.Status != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", httpErr.Status)
	}
	if !strings.Contains(httpErr.Body, "upstream exploded") {
		t.Errorf("body text lost: %q", httpErr.Body)
	}
}

func TestHardTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Config{Timeout: 50 * time.Millisecond})

	_, err := c.Search(context.Background(), "역삼", 10)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if got := classify.Classify(err); got.Kind != classify.KindTimeout {
		t.Errorf("classified as %s, want timeout", got.Kind)
	}
}

func TestSingleFlightCancelsPrevious(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
				return
			case <-release:
			}
		}
		fmt.Fprint(w, sampleBody)
	}, Config{})

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Search(context.Background(), "첫번째", 10)
		errCh <- err
	}()

	// Give the first request time to reach the handler.
	time.Sleep(50 * time.Millisecond)

	res, err := c.Search(context.Background(), "두번째", 10)
	if err != nil {
		t.Fatalf("second search failed: %v", err)
	}
	if len(res.Addresses) != 1 {
		t.Errorf("second search results lost: %+v", res)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("superseded search should have failed")
		} else if got := classify.Classify(err); got.Kind != classify.KindCancelled {
			t.Errorf("superseded search classified as %s, want cancelled", got.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search never returned")
	}
	close(release)
}

func TestLookupDoesNotCancelOthers(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, sampleBody)
	}, Config{})

	// Concurrent Lookups must all complete; they are the broadening fan-out
	// primitive.
	errCh := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func(i int) {
			_, err := c.Lookup(context.Background(), fmt.Sprintf("q%d", i), 10)
			errCh <- err
		}(i)
	}
	for i := 0; i < 3; i++ {
		if err := <-errCh; err != nil {
			t.Errorf("concurrent lookup failed: %v", err)
		}
	}
}
