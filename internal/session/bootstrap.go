package session

import (
	"context"
	"sync"
	"time"

	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
)

// State is the bootstrapper's resolved auth state, consumed uniformly by
// both guard variants.
type State int

const (
	StateUninitialized State = iota
	StateChecking
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "uninitialized"
}

// ProfileRefresher refetches the current user's profile into the store.
// Implemented by the profile cache.
type ProfileRefresher interface {
	RefreshMe(ctx context.Context) error
}

// Bootstrapper decides, exactly once per process, whether the persisted
// session can be trusted, a silent refresh is worth attempting, or the user
// is anonymous. Later evaluations reuse the resolved state; interactive
// login/logout keeps it current through store change events.
type Bootstrapper struct {
	once     sync.Once
	mu       sync.RWMutex
	store    *Store
	profiles ProfileRefresher
	state    State
	resolved bool
}

func NewBootstrapper(store *Store, profiles ProfileRefresher) *Bootstrapper {
	b := &Bootstrapper{store: store, profiles: profiles, state: StateUninitialized}
	store.OnChange(func(s *Session) {
		b.mu.Lock()
		if b.resolved {
			if s != nil {
				b.state = StateAuthenticated
			} else {
				b.state = StateAnonymous
			}
		}
		b.mu.Unlock()
	})
	return b
}

// State returns the current state without triggering resolution.
func (b *Bootstrapper) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Resolve runs the first-load check at most once. restored is the session
// decoded from the persisted cookie, nil when absent. Concurrent callers
// block until the single check completes, then share its outcome.
func (b *Bootstrapper) Resolve(ctx context.Context, restored *Session) State {
	b.once.Do(func() {
		b.setState(StateChecking)
		st := b.check(ctx, restored)
		b.mu.Lock()
		b.state = st
		b.resolved = true
		b.mu.Unlock()
		logger.Infof("session bootstrap resolved: %s", st)
	})
	return b.State()
}

func (b *Bootstrapper) check(ctx context.Context, restored *Session) State {
	if restored != nil && restored.AccessToken != "" {
		b.store.Restore(restored)
		if !TokenExpired(restored.AccessToken, time.Now()) {
			// validate with one profile fetch, which also warms the cache;
			// the cache refreshes the token and retries once on 401, so an
			// error here means the session is beyond saving
			if err := b.profiles.RefreshMe(ctx); err == nil {
				return StateAuthenticated
			}
			logger.Debugf("session bootstrap: persisted token rejected, clearing")
			b.store.Clear()
			return StateAnonymous
		}
		logger.Debugf("session bootstrap: persisted token expired, trying silent refresh")
	}

	if err := b.store.RefreshAccessToken(ctx); err != nil {
		// store already cleared any stale credentials
		return StateAnonymous
	}
	if err := b.profiles.RefreshMe(ctx); err != nil {
		b.store.Clear()
		return StateAnonymous
	}
	return StateAuthenticated
}

func (b *Bootstrapper) setState(st State) {
	b.mu.Lock()
	b.state = st
	b.mu.Unlock()
}
