// Package proxy implements the geocoding proxy client: all provider traffic
// goes through the credential-holding proxy endpoint, never to the provider
// directly.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
)

const (
	defaultTimeout  = 5 * time.Second
	defaultCacheTTL = 5 * time.Minute
	defaultSize     = 10
)

// Config holds proxy client settings.
type Config struct {
	// BaseURL of the internal proxy, e.g. "http://proxy.internal".
	BaseURL string `yaml:"base_url"`

	// Provider names the proxy route: GET <base>/api/<provider>-address.
	Provider string `yaml:"provider"`

	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Client issues geocoding searches through the proxy with a per-call hard
// timeout, a short-TTL result cache, and single-flight discipline on Search.
type Client struct {
	baseURL    string
	provider   string
	timeout    time.Duration
	httpClient *http.Client
	cache      *cache

	mu             sync.Mutex
	cancelInFlight context.CancelFunc
	flightGen      uint64
}

// Result is one search outcome.
type Result struct {
	Addresses []domain.AddressResult
	CacheHit  bool
}

// NewClient creates a proxy client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "kakao"
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		provider: provider,
		timeout:  timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache: newCache(ttl),
	}
}

// Search runs a single-flight lookup: issuing a new call cancels any request
// already in flight on this client, so a stale completion can never land
// after a newer one.
func (c *Client) Search(ctx context.Context, query string, size int) (*Result, error) {
	c.mu.Lock()
	if c.cancelInFlight != nil {
		c.cancelInFlight()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancelInFlight = cancel
	c.flightGen++
	gen := c.flightGen
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		// A newer call may have replaced the handle already; only clear our own.
		if c.flightGen == gen {
			c.cancelInFlight = nil
		}
		c.mu.Unlock()
	}()

	return c.Lookup(ctx, query, size)
}

// Lookup checks the cache and falls through to the proxy. Unlike Search it
// does not cancel other in-flight calls; broadening branches use it to run
// concurrently.
func (c *Client) Lookup(ctx context.Context, query string, size int) (*Result, error) {
	if size <= 0 {
		size = defaultSize
	}

	if results, ok := c.cache.get(query, size); ok {
		return &Result{Addresses: results, CacheHit: true}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results, err := c.fetch(ctx, query, size)
	if err != nil {
		return nil, err
	}

	c.cache.set(query, size, results)
	return &Result{Addresses: results}, nil
}

// InvalidateCache drops all cached results.
func (c *Client) InvalidateCache() { c.cache.invalidate() }

func (c *Client) fetch(ctx context.Context, query string, size int) ([]domain.AddressResult, error) {
	endpoint := fmt.Sprintf("%s/api/%s-address", c.baseURL, c.provider)

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy endpoint: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("size", fmt.Sprintf("%d", size))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface the underlying cause so the classifier can tell a
		// cancellation from a timeout from a connectivity failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("proxy call: %w", ctxErr)
		}
		return nil, fmt.Errorf("proxy call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &classify.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]domain.AddressResult, 0, len(decoded.Documents))
	for _, doc := range decoded.Documents {
		results = append(results, doc.toDomain())
	}
	return results, nil
}
