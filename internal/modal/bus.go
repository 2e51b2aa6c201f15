// Package modal decouples modal producers from the single component
// that hosts each modal. Exactly one handler owns a channel at a time;
// a second subscription is a wiring bug and is rejected loudly.
package modal

import (
	"fmt"
	"sync"

	"github.com/DemianF-dev/7pet-mvp-sub004/pkg/logging"
)

// Channel names one modal surface.
type Channel string

const (
	ChannelAppointment Channel = "appointment"
	ChannelCustomer    Channel = "customer"
	ChannelQuote       Channel = "quote"
)

// Request asks the owning host to open its modal with a payload.
type Request struct {
	Channel Channel
	// Payload is modal-specific open state (ids, copy flags, prefill).
	Payload any
}

// Handler receives open requests for one channel.
type Handler func(req Request)

// Bus routes open requests to the single registered handler per
// channel. Requests for an unowned channel are dropped with a warning,
// never queued.
type Bus struct {
	mu       sync.Mutex
	handlers map[Channel]Handler
	logger   *logging.Logger
}

// NewBus builds an empty bus.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bus{
		handlers: make(map[Channel]Handler),
		logger:   logger.Named("modal"),
	}
}

// Subscribe registers the handler owning ch. It fails when the channel
// already has an owner: two mounted hosts for the same modal is a bug
// that must surface immediately, not race silently.
func (b *Bus) Subscribe(ch Channel, h Handler) (unsubscribe func(), err error) {
	if h == nil {
		return nil, fmt.Errorf("modal: nil handler for channel %q", ch)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.handlers[ch]; taken {
		return nil, fmt.Errorf("modal: channel %q already has a handler", ch)
	}
	b.handlers[ch] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, ch)
			b.mu.Unlock()
		})
	}, nil
}

// Open dispatches a request to the channel's handler. Returns false
// when no handler owns the channel.
func (b *Bus) Open(ch Channel, payload any) bool {
	b.mu.Lock()
	h, ok := b.handlers[ch]
	b.mu.Unlock()
	if !ok {
		b.logger.Warn("modal request dropped", "channel", string(ch))
		return false
	}
	h(Request{Channel: ch, Payload: payload})
	return true
}
