// Package realtime keeps the local cache honest across terminals: a
// websocket subscription to the backend's event stream invalidates the
// affected query domains the moment another terminal mutates them.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/query"
	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// Event is one backend change notification.
type Event struct {
	Type string `json:"type"`
	// Domain is the cache domain the change touched ("agenda",
	// "customers", ...).
	Domain string `json:"domain"`
	// EntityID optionally narrows the change to one record.
	EntityID string `json:"entityId,omitempty"`
}

// Listener subscribes to the event stream and translates events into
// cache invalidations. Data already on screen stays visible; the next
// observation revalidates.
type Listener struct {
	url       string
	cache     *query.Client
	logger    *logging.Logger
	dialer    *websocket.Dialer
	baseDelay time.Duration
	maxDelay  time.Duration
}

// Option customises the listener.
type Option func(*Listener)

// WithReconnectDelays overrides the backoff bounds.
func WithReconnectDelays(base, max time.Duration) Option {
	return func(l *Listener) {
		l.baseDelay = base
		l.maxDelay = max
	}
}

// NewListener builds a listener for the given websocket URL.
func NewListener(url string, cache *query.Client, logger *logging.Logger, opts ...Option) *Listener {
	if logger == nil {
		logger = logging.Default()
	}
	l := &Listener{
		url:       url,
		cache:     cache,
		logger:    logger.Named("realtime"),
		dialer:    websocket.DefaultDialer,
		baseDelay: time.Second,
		maxDelay:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run connects and consumes events until ctx is cancelled, reconnecting
// with capped exponential backoff. The connection is best-effort; the
// agenda works without it, just with staler data.
func (l *Listener) Run(ctx context.Context) {
	delay := l.baseDelay
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
		if err != nil {
			l.logger.Warn("event stream unavailable", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, l.maxDelay)
			continue
		}
		l.logger.Info("event stream connected")
		delay = l.baseDelay

		l.consume(ctx, conn)
		conn.Close()
	}
}

func (l *Listener) consume(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("event stream dropped", "error", err)
			}
			return
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			l.logger.Warn("unparseable event", "error", err)
			continue
		}
		l.apply(ev)
	}
}

// apply invalidates the cache slots an event touches. A detail event
// also invalidates its domain's lists, since any list may contain the
// changed record.
func (l *Listener) apply(ev Event) {
	if ev.Domain == "" {
		return
	}
	touched := l.cache.Invalidate(query.Key{ev.Domain})
	l.logger.Debug("event applied",
		"type", ev.Type,
		"domain", ev.Domain,
		"invalidated", touched,
	)
}
