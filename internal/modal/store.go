package modal

import "sync"

// OpenForm asks the host to open the editor modal, optionally
// pre-filled (create or copy flows).
type OpenForm struct {
	Prefill any
}

// OpenDetails asks the host to open the read-only details modal.
type OpenDetails struct {
	ID string
}

// Close dismisses whatever modal is open on the channel.
type Close struct{}

// State is the current modal condition on one channel.
type State struct {
	Open    bool
	Details bool
	ID      string
	Prefill any
}

// Store owns one channel's modal state, applying the typed commands
// arriving over the bus. It is the default host for channels without a
// richer view-model behind them.
type Store struct {
	mu          sync.Mutex
	state       State
	unsubscribe func()
}

// NewStore subscribes a store as the handler for ch. It fails when the
// channel already has an owner.
func NewStore(bus *Bus, ch Channel) (*Store, error) {
	s := &Store{}
	unsub, err := bus.Subscribe(ch, s.apply)
	if err != nil {
		return nil, err
	}
	s.unsubscribe = unsub
	return s, nil
}

// Current returns the channel's modal state.
func (s *Store) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Detach releases the channel for another host.
func (s *Store) Detach() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Store) apply(req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd := req.Payload.(type) {
	case OpenForm:
		s.state = State{Open: true, Prefill: cmd.Prefill}
	case OpenDetails:
		s.state = State{Open: true, Details: true, ID: cmd.ID}
	case Close:
		s.state = State{}
	}
}
