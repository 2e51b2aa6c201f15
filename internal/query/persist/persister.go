package persist

import (
	"context"
	"errors"
	"time"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/observability/metrics"
	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// Persister periodically snapshots the cache into a Store and restores
// it on startup. Persistence is strictly best-effort: every failure is
// logged and swallowed, never surfaced to the serving path.
type Persister struct {
	cache    *query.Client
	store    Store
	buster   string
	maxAge   time.Duration
	interval time.Duration
	logger   *logging.Logger
	metrics  *metrics.CacheMetrics
	now      func() time.Time
}

// PersisterOption customises the persister.
type PersisterOption func(*Persister)

// WithMetrics attaches flush metrics.
func WithMetrics(m *metrics.CacheMetrics) PersisterOption {
	return func(p *Persister) { p.metrics = m }
}

// WithMaxAge overrides the restorable entry age.
func WithMaxAge(d time.Duration) PersisterOption {
	return func(p *Persister) { p.maxAge = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) PersisterOption {
	return func(p *Persister) { p.now = now }
}

// NewPersister wires a cache to a store. buster is the schema version;
// bumping it on incompatible shape changes discards old snapshots.
func NewPersister(cache *query.Client, store Store, buster string, interval time.Duration, logger *logging.Logger, opts ...PersisterOption) *Persister {
	if logger == nil {
		logger = logging.Default()
	}
	p := &Persister{
		cache:    cache,
		store:    store,
		buster:   buster,
		maxAge:   DefaultMaxAge,
		interval: interval,
		logger:   logger.Named("persist"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Flush writes the current cache snapshot to the store.
func (p *Persister) Flush(ctx context.Context) error {
	payload, err := Encode(p.cache.Snapshot(), p.buster, p.now())
	if err != nil {
		p.metrics.ObservePersistFlush("encode_error")
		return err
	}
	if err := p.store.Save(ctx, payload); err != nil {
		p.metrics.ObservePersistFlush("store_error")
		return err
	}
	p.metrics.ObservePersistFlush("ok")
	return nil
}

// Restore seeds the cache from the stored snapshot. A missing snapshot,
// a buster mismatch, or a corrupt payload all leave the cache cold.
func (p *Persister) Restore(ctx context.Context) {
	payload, err := p.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSnapshot) {
			p.logger.Warn("snapshot load failed", "error", err)
		}
		return
	}
	entries, err := Decode(payload, p.buster, p.maxAge, p.now())
	if err != nil {
		p.logger.Warn("snapshot corrupt, discarding", "error", err)
		if clearErr := p.store.Clear(ctx); clearErr != nil {
			p.logger.Warn("snapshot clear failed", "error", clearErr)
		}
		return
	}
	if entries == nil {
		p.logger.Info("snapshot discarded", "reason", "buster mismatch")
		return
	}
	p.cache.Restore(entries)
	p.logger.Info("cache restored", "entries", len(entries))
}

// Run flushes on a fixed interval until ctx is cancelled, then takes a
// final flush so a clean shutdown never loses the warm cache.
func (p *Persister) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := p.Flush(flushCtx); err != nil {
				p.logger.Warn("final flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				p.logger.Warn("periodic flush failed", "error", err)
			}
		}
	}
}
