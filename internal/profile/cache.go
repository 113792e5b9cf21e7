package profile

import (
	"context"
	"sync"
	"time"

	"github.com/quizhive/quizhive/companion/go-client/internal/api"
	"github.com/quizhive/quizhive/companion/go-client/internal/session"
	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
	"github.com/quizhive/quizhive/companion/go-client/pkg/metrics"
)

// Fetcher is the `/users/me` slice of the API client.
type Fetcher interface {
	Me(ctx context.Context, accessToken string) (*api.Profile, error)
}

// Cache wraps "fetch current user" with a freshness policy: repeated reads
// inside the TTL window reuse the session held by the store, while
// RefreshMeIfStale lets focus/visibility triggers resync opportunistically
// without polling.
type Cache struct {
	mu          sync.Mutex
	store       *session.Store
	fetcher     Fetcher
	ttl         time.Duration
	lastFetched time.Time
	now         func() time.Time
}

func NewCache(store *session.Store, fetcher Fetcher, ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{store: store, fetcher: fetcher, ttl: ttl, now: time.Now}
}

// Me returns the cached profile immediately if one is present, fetching
// otherwise.
func (c *Cache) Me(ctx context.Context) (*session.Session, error) {
	if s := c.store.Session(); s != nil && s.UserID != "" {
		return s, nil
	}
	metrics.ProfileFetches.WithLabelValues("miss").Inc()
	return c.fetch(ctx)
}

// RefreshMe unconditionally refetches the profile and resets the freshness
// marker.
func (c *Cache) RefreshMe(ctx context.Context) error {
	metrics.ProfileFetches.WithLabelValues("forced").Inc()
	_, err := c.fetch(ctx)
	return err
}

// RefreshMeIfStale refetches only when the freshness marker is older than
// the TTL. Returns whether a fetch was performed.
func (c *Cache) RefreshMeIfStale(ctx context.Context) (bool, error) {
	c.mu.Lock()
	stale := c.lastFetched.IsZero() || c.now().Sub(c.lastFetched) > c.ttl
	c.mu.Unlock()
	if !stale {
		return false, nil
	}
	metrics.ProfileFetches.WithLabelValues("stale").Inc()
	_, err := c.fetch(ctx)
	return true, err
}

// LastFetched exposes the freshness marker.
func (c *Cache) LastFetched() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFetched
}

// fetch performs the network call, retrying once behind a silent token
// refresh when the server rejects the current access token.
func (c *Cache) fetch(ctx context.Context) (*session.Session, error) {
	p, err := c.fetcher.Me(ctx, c.store.AccessToken())
	if api.IsUnauthorized(err) {
		logger.Debugf("profile: access token rejected, attempting refresh")
		if rerr := c.store.RefreshAccessToken(ctx); rerr != nil {
			return nil, err
		}
		p, err = c.fetcher.Me(ctx, c.store.AccessToken())
	}
	if err != nil {
		return nil, err
	}
	s := c.store.UpdateProfile(p)
	c.mu.Lock()
	c.lastFetched = c.now()
	c.mu.Unlock()
	return s, nil
}
