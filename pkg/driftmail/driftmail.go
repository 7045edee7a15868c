// Package driftmail is a helper client for the Driftmail marketing-automation
// API. It shapes simple call arguments into the API's resource documents and
// layers local resilience on top of the HTTP collaborator: request pacing,
// a best-effort TTL cache for read paths, and per-item batch aggregation.
package driftmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/driftmail/driftmail-go/internal/cache"
	"github.com/driftmail/driftmail-go/internal/logger"
	"github.com/driftmail/driftmail-go/internal/ratelimit"
	"github.com/driftmail/driftmail-go/internal/upstream"
)

const (
	defaultBaseURL   = "https://api.driftmail.io"
	defaultRateLimit = 3.0
	defaultCacheTTL  = 300

	// CacheBackendFilesystem stores one <key>.cache file per entry.
	CacheBackendFilesystem = "filesystem"
	// CacheBackendBolt stores entries in a single bbolt database file.
	CacheBackendBolt = "bolt"
)

// Options configures a Client. One Client is constructed per API-key session.
type Options struct {
	APIKey  string
	BaseURL string

	// Debug enables logging; without it the client logs nothing at all.
	Debug   bool
	LogFile string

	// NumRetries is passed through to the HTTP collaborator's transport
	// retry policy. This layer performs zero retries itself.
	NumRetries      int
	UserAgentSuffix string

	CacheEnabled bool
	CacheDir     string
	CacheBackend string
	// CacheTTL is the default per-entry time to live in seconds.
	CacheTTL int

	// RateLimit is the request budget in requests per second, converted once
	// to a minimum inter-request interval of ceil(1000/rate) milliseconds.
	RateLimit float64

	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
}

// api is the upstream collaborator surface the client depends on.
type api interface {
	CreateResource(ctx context.Context, path string, document any) (json.RawMessage, error)
	ListResources(ctx context.Context, path string, query url.Values) ([]json.RawMessage, error)
}

// Client is the session handle. Methods report failures as returned errors;
// nothing here is fatal and nothing is retried locally.
type Client struct {
	log     *slog.Logger
	cache   *cache.Store
	limiter *ratelimit.Limiter
	api     api
	closers []func() error
}

// New builds a Client from options. A missing API key is the only
// construction failure; cache backend problems degrade to a disabled cache.
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("driftmail: api key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	log, closeLog, err := logger.New(opts.Debug, opts.LogFile)
	if err != nil {
		return nil, err
	}

	c := &Client{
		log:     log,
		limiter: ratelimit.New(opts.RateLimit),
		closers: []func() error{closeLog},
	}
	c.cache = cache.New(cache.Config{
		Enabled:    opts.CacheEnabled,
		Backend:    c.openCacheBackend(opts),
		DefaultTTL: time.Duration(opts.CacheTTL) * time.Second,
		Logger:     log,
	})
	c.api = upstream.New(upstream.Config{
		BaseURL:         opts.BaseURL,
		APIKey:          opts.APIKey,
		UserAgentSuffix: opts.UserAgentSuffix,
		NumRetries:      opts.NumRetries,
		HTTPClient:      opts.HTTPClient,
		Logger:          log,
	})
	return c, nil
}

func (c *Client) openCacheBackend(opts Options) cache.Backend {
	if !opts.CacheEnabled {
		return nil
	}
	dir := opts.CacheDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "driftmail-cache")
	}
	switch opts.CacheBackend {
	case "", CacheBackendFilesystem:
		backend, err := cache.NewFilesystem(dir)
		if err != nil {
			c.log.Error("cache unavailable, continuing without it", "error", err)
			return nil
		}
		return backend
	case CacheBackendBolt:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.log.Error("cache unavailable, continuing without it", "error", err)
			return nil
		}
		backend, err := cache.NewBolt(filepath.Join(dir, "driftmail.db"))
		if err != nil {
			c.log.Error("cache unavailable, continuing without it", "error", err)
			return nil
		}
		c.closers = append(c.closers, backend.Close)
		return backend
	default:
		c.log.Error("unknown cache backend, continuing without cache", "backend", opts.CacheBackend)
		return nil
	}
}

// Close releases the log file and any cache backend handles.
func (c *Client) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearCache removes one cache entry. Clearing an absent key succeeds.
func (c *Client) ClearCache(key string) error {
	return c.cache.Clear(key)
}

// ClearAllCache removes every cache entry.
func (c *Client) ClearAllCache() error {
	return c.cache.ClearAll()
}

// call gates one remote call through the rate limiter.
func (c *Client) call(ctx context.Context, op func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return op(ctx)
}

// cachedList serves a collection read from the cache when possible and fills
// the cache after a miss. Cache failures degrade to plain remote reads.
func (c *Client) cachedList(ctx context.Context, key, path string, query url.Values) ([]json.RawMessage, error) {
	if raw, ok := c.cache.Get(key); ok {
		var cached []json.RawMessage
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.log.Debug("cache hit", "key", key)
			return cached, nil
		}
		_ = c.cache.Clear(key)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	items, err := c.api.ListResources(ctx, path, query)
	if err != nil {
		c.log.Error("list failed", "path", path, "error", err)
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	if err := c.cache.Put(key, items, 0); err != nil && !errors.Is(err, cache.ErrDisabled) {
		c.log.Warn("cache fill failed", "key", key, "error", err)
	}
	return items, nil
}
