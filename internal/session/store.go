package session

import (
	"context"
	"sync"

	"github.com/quizhive/quizhive/companion/go-client/internal/api"
	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
	"github.com/quizhive/quizhive/companion/go-client/pkg/metrics"
)

// AuthAPI is the slice of the remote API the store depends on. Satisfied by
// *api.Client; tests provide fakes.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
	LoginOAuth(ctx context.Context, externalToken string) (*api.LoginResult, error)
	Register(ctx context.Context, name, username, email, password string) (*api.LoginResult, error)
	RefreshToken(ctx context.Context) (string, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, accessToken string) (*api.Profile, error)
}

// TokenVerifier validates a third-party identity token before it is
// exchanged with the platform. Optional; nil skips local verification.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) error
}

// Store is the credential store: the single owner of the Session. All
// mutations go through its methods and replace the session value wholesale;
// change listeners observe every mutation (cookie mirroring, realtime
// channel user switching).
type Store struct {
	mu       sync.RWMutex
	api      AuthAPI
	verifier TokenVerifier
	sess     *Session
	onChange []func(*Session)
}

// NewStore creates a store around the given API client. verifier may be nil.
func NewStore(a AuthAPI, verifier TokenVerifier) *Store {
	return &Store{api: a, verifier: verifier}
}

// OnChange registers a listener invoked after every session mutation with
// the new value (nil after clearing). Register during wiring, before use.
func (s *Store) OnChange(fn func(*Session)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Session returns the current session snapshot, nil when anonymous.
func (s *Store) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

// AccessToken returns the current bearer token, "" when anonymous.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.AccessToken
}

// Login exchanges credentials for a session. Failure leaves prior state
// untouched.
func (s *Store) Login(ctx context.Context, username, password string) (*Session, error) {
	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	sess := FromLogin(res)
	s.set(sess)
	return sess, nil
}

// LoginWithOAuth exchanges a third-party identity token for a session,
// verifying it locally first when a verifier is configured.
func (s *Store) LoginWithOAuth(ctx context.Context, externalToken string) (*Session, error) {
	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, externalToken); err != nil {
			return nil, &api.AuthError{StatusCode: 401, Message: "identity token rejected: " + err.Error()}
		}
	}
	res, err := s.api.LoginOAuth(ctx, externalToken)
	if err != nil {
		return nil, err
	}
	sess := FromLogin(res)
	s.set(sess)
	return sess, nil
}

// Register creates an account and logs in.
func (s *Store) Register(ctx context.Context, name, username, email, password string) (*Session, error) {
	res, err := s.api.Register(ctx, name, username, email, password)
	if err != nil {
		return nil, err
	}
	sess := FromLogin(res)
	s.set(sess)
	return sess, nil
}

// RefreshAccessToken obtains a new access token via the httpOnly refresh
// cookie. Any failure forces a local logout instead of retrying; the
// alternative is an infinite refresh loop on a dead session.
func (s *Store) RefreshAccessToken(ctx context.Context) error {
	tok, err := s.api.RefreshToken(ctx)
	if err != nil {
		metrics.TokenRefresh.WithLabelValues("failed").Inc()
		s.Clear()
		return err
	}
	metrics.TokenRefresh.WithLabelValues("ok").Inc()
	s.mu.Lock()
	var next *Session
	if s.sess == nil {
		next = &Session{AccessToken: tok}
	} else {
		cp := *s.sess
		cp.AccessToken = tok
		next = &cp
	}
	s.sess = next
	listeners := append(([]func(*Session))(nil), s.onChange...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// Logout revokes the refresh session server-side (best effort) and clears
// all local state unconditionally.
func (s *Store) Logout(ctx context.Context) {
	tok := s.AccessToken()
	if err := s.api.Logout(ctx, tok); err != nil {
		logger.Warnf("logout: server-side revocation failed: %v", err)
	}
	s.Clear()
}

// Restore seeds the store from a persisted cookie session.
func (s *Store) Restore(sess *Session) {
	s.set(sess)
}

// UpdateProfile merges freshly fetched identity fields into the session,
// keeping the current access token.
func (s *Store) UpdateProfile(p *api.Profile) *Session {
	s.mu.Lock()
	next := fromProfile(p)
	if s.sess != nil {
		next.AccessToken = s.sess.AccessToken
	}
	s.sess = next
	listeners := append(([]func(*Session))(nil), s.onChange...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Clear drops the session.
func (s *Store) Clear() {
	s.set(nil)
}

func (s *Store) set(sess *Session) {
	s.mu.Lock()
	s.sess = sess
	listeners := append(([]func(*Session))(nil), s.onChange...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(sess)
	}
}
