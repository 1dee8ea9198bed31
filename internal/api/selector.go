package api

import (
	"sync"

	"fingram/internal/auth"
	"fingram/internal/log"
	"fingram/internal/telegram"
)

// Selector owns the single client binding. One reducer recomputes it from
// the latest (environment, auth state) pair:
//
//   - environment unresolved: mock
//   - standalone: cookie client (the jar carries the identity)
//   - embedded with a real, non-mock credential: bearer client with the
//     latest token
//   - anything else: mock
//
// Credential resolutions arrive asynchronously, so each one registers a
// trigger; a resolution whose trigger is no longer the newest is discarded
// and the binding stays with the later trigger's outcome.
type Selector struct {
	cookie *CookieClient
	bearer *BearerClient
	mock   *MockClient
	logger *log.Logger

	mu      sync.Mutex
	env     telegram.Environment
	authed  auth.State
	gen     uint64
	current Client
	subs    []func(Client)
}

func NewSelector(cookie *CookieClient, bearer *BearerClient, mock *MockClient, logger *log.Logger) *Selector {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	s := &Selector{
		cookie:  cookie,
		bearer:  bearer,
		mock:    mock,
		logger:  logger.WithComponent("selector"),
		current: mock,
	}
	return s
}

// Current returns the bound client. Never nil.
func (s *Selector) Current() Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers a listener invoked whenever the binding changes.
// Datasync hooks its invalidate-all here.
func (s *Selector) Subscribe(fn func(Client)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// SetEnvironment records the resolved environment and recomputes the binding.
func (s *Selector) SetEnvironment(env telegram.Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.env = env
	s.recomputeLocked()
}

// NewTrigger registers an in-flight credential resolution and returns its
// identity for ResolveAuth.
func (s *Selector) NewTrigger() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// ResolveAuth applies a completed credential resolution, unless a newer
// trigger exists, in which case the result is discarded (last write wins by
// trigger identity, not completion order).
func (s *Selector) ResolveAuth(trigger uint64, st auth.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trigger != s.gen {
		s.logger.Debug("discarding stale credential resolution", "trigger", trigger, "current", s.gen)
		return
	}
	s.authed = st
	s.recomputeLocked()
}

// OnAuthState is the synchronous convenience used when a state change and
// its resolution coincide.
func (s *Selector) OnAuthState(st auth.State) {
	s.ResolveAuth(s.NewTrigger(), st)
}

func (s *Selector) recomputeLocked() {
	next := s.reduceLocked()
	if next == s.current {
		return
	}
	s.current = next
	s.logger.Info("client binding changed", "mode", s.env.Mode.String(), "authenticated", next.IsAuthenticated())
	for _, fn := range s.subs {
		fn(next)
	}
}

func (s *Selector) reduceLocked() Client {
	switch s.env.Mode {
	case telegram.ModeStandalone:
		if s.cookie != nil {
			return s.cookie
		}
	case telegram.ModeEmbedded:
		token := s.authed.SessionToken
		if token != "" && token != "mock" && s.bearer != nil {
			s.bearer.UpdateSessionToken(token)
			return s.bearer
		}
	}
	return s.mock
}
