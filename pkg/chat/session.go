package chat

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Change is delivered to listeners after an event was applied.
type Change struct {
	Event  Event
	Result Result
	State  State
}

// Listener observes applied changes. Listeners run on the dispatching
// goroutine, outside the session lock, and may be called concurrently from
// different dispatchers; State.Version orders the calls.
type Listener func(Change)

// Session is the single owner of the chat State.
type Session struct {
	mu        sync.Mutex
	state     State
	listeners []Listener
	now       func() time.Time
}

type SessionOption func(*Session)

func WithListener(l Listener) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds a listener after construction.
func (s *Session) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Now() time.Time { return s.now() }

// Dispatch applies ev and notifies listeners when it changed the state.
func (s *Session) Dispatch(ev Event) Result {
	s.mu.Lock()
	// skipped events may still settle bookkeeping that is not visible
	next, res := s.state.Apply(ev)
	s.state = next
	listeners := s.listeners
	s.mu.Unlock()

	if !res.Applied {
		if res.Reason == "" {
			return res
		}
		log.Debug().Str("component", "chat").Str("event", ev.Name()).Str("reason", res.Reason).Msg("event not applied")
		return res
	}
	log.Trace().
		Str("component", "chat").
		Str("event", ev.Name()).
		Uint64("version", next.Version).
		Uint64("epoch", next.Epoch).
		Str("conv_id", next.ActiveID.String()).
		Str("phase", next.Phase.String()).
		Msg("event applied")

	ch := Change{Event: ev, Result: res, State: next}
	for _, l := range listeners {
		l(ch)
	}
	return res
}
