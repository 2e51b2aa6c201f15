package query

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/device"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/observability/metrics"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// FetchFunc loads fresh data for one key from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// Options tune one logical query class.
type Options struct {
	// StaleTime is the base staleness duration; the effective value is
	// capped by the device tier and never extended.
	StaleTime time.Duration
	// GCTime is how long an unobserved entry survives before eviction.
	GCTime time.Duration
	// Retries requests automatic retries on failure; capped at one, and
	// forced to zero on slow connections.
	Retries int
}

const defaultGCTime = 5 * time.Minute

// Client is the shared query cache. All reads go through the
// key-addressed slots; within one key at most one backend request is in
// flight at a time — concurrent callers attach to the pending fetch.
type Client struct {
	mu      sync.RWMutex
	entries map[string]*entry

	group   singleflight.Group
	profile device.Profile
	logger  *logging.Logger
	metrics *metrics.CacheMetrics
	now     func() time.Time
}

type entry struct {
	key        Key
	data       any
	fetchedAt  time.Time
	lastAccess time.Time
	gcTime     time.Duration
}

// ClientOption customises the cache client.
type ClientOption func(*Client)

// WithClock overrides the time source. Tests use this to step staleness
// windows deterministically.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithMetrics attaches cache metrics.
func WithMetrics(m *metrics.CacheMetrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a cache client for the given device profile.
func NewClient(profile device.Profile, logger *logging.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		entries: make(map[string]*entry),
		profile: profile,
		logger:  logger.Named("querycache"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile returns the device profile the client was built with.
func (c *Client) Profile() device.Profile {
	return c.profile
}

// Fetch returns the cached value for key when it is still fresh,
// otherwise loads it via fn. Concurrent fetches for the same canonical
// key collapse into a single backend call.
func (c *Client) Fetch(ctx context.Context, key Key, fn FetchFunc, opts Options) (any, error) {
	canonical := key.Canonical()
	staleTime := EffectiveStaleTime(opts.StaleTime, c.profile)

	if data, ok := c.freshValue(canonical, staleTime); ok {
		c.metrics.ObserveHit(key.Domain(), false)
		return data, nil
	}
	c.metrics.ObserveMiss(key.Domain())

	value, err, _ := c.group.Do(canonical, func() (any, error) {
		// A waiter queued behind the winning fetch sees the entry it
		// just wrote; don't refetch.
		if data, ok := c.freshValue(canonical, staleTime); ok {
			return data, nil
		}
		return c.fetchWithRetry(ctx, key, fn, opts)
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Peek reads the cached value without fetching. The second result is the
// fetch timestamp; ok is false on a miss.
func (c *Client) Peek(key Key) (data any, fetchedAt time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.entries[key.Canonical()]
	if !found || e.data == nil {
		return nil, time.Time{}, false
	}
	return e.data, e.fetchedAt, true
}

// IsStale reports whether the entry for key is missing or past the
// effective staleness window of opts.
func (c *Client) IsStale(key Key, opts Options) bool {
	staleTime := EffectiveStaleTime(opts.StaleTime, c.profile)
	_, ok := c.freshValue(key.Canonical(), staleTime)
	return !ok
}

// Set writes data for key directly, used after a confirmed server
// mutation response carries the authoritative new state.
func (c *Client) Set(key Key, data any, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[key.Canonical()] = &entry{
		key:        key,
		data:       data,
		fetchedAt:  now,
		lastAccess: now,
		gcTime:     gcTimeOf(opts),
	}
}

// Invalidate marks every entry whose key starts with prefix as stale.
// Data stays visible until the next fetch replaces it. Returns the
// number of entries touched.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	touched := 0
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			e.fetchedAt = time.Time{}
			touched++
		}
	}
	if touched > 0 {
		c.logger.Debug("invalidated cache entries", "prefix", prefix.Canonical(), "count", touched)
	}
	return touched
}

// GC evicts entries not observed within their gc window.
func (c *Client) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	evicted := 0
	for canonical, e := range c.entries {
		if now.Sub(e.lastAccess) > e.gcTime {
			delete(c.entries, canonical)
			evicted++
		}
	}
	c.metrics.ObserveEvictions(evicted)
	return evicted
}

// Len reports the number of live cache entries.
func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// EntryInfo is a read-only view of one cache slot for diagnostics and
// persistence.
type EntryInfo struct {
	Key       Key       `json:"key"`
	Data      any       `json:"data"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Snapshot returns every entry currently holding data.
func (c *Client) Snapshot() []EntryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	infos := make([]EntryInfo, 0, len(c.entries))
	for _, e := range c.entries {
		if e.data == nil {
			continue
		}
		infos = append(infos, EntryInfo{Key: e.key, Data: e.data, FetchedAt: e.fetchedAt})
	}
	return infos
}

// Restore seeds the cache from a persisted snapshot. Restored entries
// keep their original fetch timestamps, so anything past its staleness
// window revalidates on first observation.
func (c *Client) Restore(infos []EntryInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, info := range infos {
		canonical := info.Key.Canonical()
		if _, exists := c.entries[canonical]; exists {
			continue
		}
		c.entries[canonical] = &entry{
			key:        info.Key,
			data:       info.Data,
			fetchedAt:  info.FetchedAt,
			lastAccess: now,
			gcTime:     defaultGCTime,
		}
	}
}

func (c *Client) freshValue(canonical string, staleTime time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[canonical]
	if !ok || e.data == nil {
		return nil, false
	}
	e.lastAccess = c.now()
	if e.fetchedAt.IsZero() || c.now().Sub(e.fetchedAt) >= staleTime {
		return nil, false
	}
	return e.data, true
}

func (c *Client) fetchWithRetry(ctx context.Context, key Key, fn FetchFunc, opts Options) (any, error) {
	attempts := EffectiveRetries(opts.Retries, c.profile) + 1
	domain := key.Domain()

	var data any
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		start := c.now()
		data, err = fn(ctx)
		elapsed := c.now().Sub(start).Seconds()
		if err == nil {
			c.metrics.ObserveFetch(domain, "ok", elapsed)
			c.Set(key, data, opts)
			return data, nil
		}
		c.metrics.ObserveFetch(domain, "error", elapsed)
		if ctx.Err() != nil {
			break
		}
	}
	c.logger.Warn("fetch failed", "key", key.Canonical(), "error", err)
	return nil, err
}

func gcTimeOf(opts Options) time.Duration {
	if opts.GCTime > 0 {
		return opts.GCTime
	}
	return defaultGCTime
}
