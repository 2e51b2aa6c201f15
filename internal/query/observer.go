package query

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Result is the consumer-facing view of one observed query.
type Result[T any] struct {
	// Data is the latest resolved value, or — while a new key's fetch is
	// in flight — the previous key's value kept visible as a
	// placeholder.
	Data    T
	HasData bool
	// IsLoading is true only before anything has ever resolved: a
	// background refresh showing stale data is not "loading".
	IsLoading bool
	// IsFetching is true while a backend request for the current key is
	// in flight.
	IsFetching bool
	// Error holds the last fetch failure. Data stays populated with the
	// last-known-good value even when Error is set.
	Error     error
	UpdatedAt time.Time
}

// Observer tracks one logical query across key changes with
// stale-while-revalidate semantics: previously resolved data remains
// visible until the new key's fetch resolves, never a blank gap.
type Observer[T any] struct {
	client  *Client
	opts    Options
	enabled bool

	mu      sync.Mutex
	key     Key
	hasKey  bool
	result  Result[T]
	gen     int
	updates chan struct{}
}

// NewObserver creates an enabled observer on the shared cache client.
func NewObserver[T any](client *Client, opts Options) *Observer[T] {
	return &Observer[T]{
		client:  client,
		opts:    opts,
		enabled: true,
		updates: make(chan struct{}, 1),
	}
}

// SetEnabled gates fetching. A disabled observer keeps its last result
// but never issues requests — inactive views use this to suspend their
// queries.
func (o *Observer[T]) SetEnabled(enabled bool) {
	o.mu.Lock()
	o.enabled = enabled
	o.mu.Unlock()
}

// Updates signals whenever the result changes. The channel is buffered
// and coalescing; consumers drain it and call Result.
func (o *Observer[T]) Updates() <-chan struct{} {
	return o.updates
}

// Result returns the current result snapshot.
func (o *Observer[T]) Result() Result[T] {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

// Observe points the observer at key, fetching via fn when the cached
// entry is missing or stale. It returns immediately; resolution is
// reported through Updates. Responses that arrive after the observer
// moved to another key are dropped, never written into the current view.
func (o *Observer[T]) Observe(ctx context.Context, key Key, fn func(ctx context.Context) (T, error)) {
	o.mu.Lock()
	if !o.enabled {
		o.mu.Unlock()
		return
	}
	o.key = key
	o.hasKey = true
	o.gen++
	gen := o.gen

	// Cached data for the new key becomes current immediately, even when
	// stale; a miss keeps the previous key's data as placeholder.
	if data, fetchedAt, ok := o.client.Peek(key); ok {
		if typed, matches := coerce[T](data); matches {
			o.result.Data = typed
			o.result.HasData = true
			o.result.UpdatedAt = fetchedAt
			o.result.Error = nil
		}
	}
	needsFetch := o.client.IsStale(key, o.opts)
	o.result.IsLoading = !o.result.HasData && needsFetch
	o.result.IsFetching = needsFetch
	o.mu.Unlock()
	o.notify()

	if !needsFetch {
		return
	}

	// The fetch outlives the caller's context: navigating away must not
	// abort a shared cache fill other observers may be waiting on.
	bgCtx := context.WithoutCancel(ctx)
	go o.resolve(bgCtx, gen, key, fn)
}

// Refetch forces revalidation of the current key.
func (o *Observer[T]) Refetch(ctx context.Context, fn func(ctx context.Context) (T, error)) {
	o.mu.Lock()
	if !o.hasKey || !o.enabled {
		o.mu.Unlock()
		return
	}
	key := o.key
	o.mu.Unlock()

	o.client.Invalidate(key)
	o.Observe(ctx, key, fn)
}

func (o *Observer[T]) resolve(ctx context.Context, gen int, key Key, fn func(ctx context.Context) (T, error)) {
	value, err := o.client.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	}, o.opts)

	o.mu.Lock()
	if gen != o.gen {
		// The observer moved on; this response belongs to an abandoned
		// view.
		o.mu.Unlock()
		return
	}
	o.result.IsFetching = false
	o.result.IsLoading = false
	if err != nil {
		// Keep last-known-good data visible; only the error field
		// changes.
		o.result.Error = err
		o.mu.Unlock()
		o.notify()
		return
	}
	if typed, ok := coerce[T](value); ok {
		o.result.Data = typed
		o.result.HasData = true
		o.result.Error = nil
		o.result.UpdatedAt = time.Now()
	}
	o.mu.Unlock()
	o.notify()
}

// coerce converts a cached value to T. Live entries hold T directly;
// entries restored from a persisted snapshot hold generic JSON values
// and are decoded through a marshal round trip.
func coerce[T any](value any) (T, bool) {
	if typed, ok := value.(T); ok {
		return typed, true
	}
	var typed T
	raw, err := json.Marshal(value)
	if err != nil {
		return typed, false
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return typed, false
	}
	return typed, true
}

func (o *Observer[T]) notify() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}
