package ups

import (
	"context"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// tokenSafetyMargin is the buffer before actual expiry during which a token
// is treated as already expired, so it cannot expire mid-request.
const tokenSafetyMargin = 5 * time.Minute

// AccessToken is a carrier OAuth token with its absolute expiry.
// Replaced wholesale on refresh, never mutated in place.
type AccessToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// Valid reports whether the token is usable at the given instant,
// honouring the safety margin.
func (t AccessToken) Valid(now time.Time) bool {
	return t.Token != "" && now.Before(t.Expiry.Add(-tokenSafetyMargin))
}

// TokenStore persists a token+expiry pair so it survives process restarts.
type TokenStore interface {
	// LoadToken returns the persisted token, or (nil, nil) when absent.
	LoadToken(ctx context.Context) (*AccessToken, error)
	SaveToken(ctx context.Context, token AccessToken) error
	ClearToken(ctx context.Context) error
}

// TokenCache caches the carrier access token and serializes refreshes.
// Any number of readers may be served a valid cached token concurrently;
// at most one authentication call is ever in flight, and late arrivals
// join it rather than triggering their own.
type TokenCache struct {
	api    APIClient
	store  TokenStore // optional
	logger *otelzap.Logger
	now    func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	cur      *AccessToken
	hydrated bool
}

// NewTokenCache creates a token cache around the API client's Authenticate
// operation. store may be nil (no durable persistence); now may be nil
// (wall clock).
func NewTokenCache(api APIClient, store TokenStore, logger *otelzap.Logger) *TokenCache {
	return &TokenCache{
		api:    api,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock substitutes the time source, for tests.
func (c *TokenCache) WithClock(now func() time.Time) *TokenCache {
	c.now = now
	return c
}

// Token returns a usable access token, authenticating only when the cached
// token is absent, forced, or within the safety margin of expiry.
// Expired tokens are never returned.
func (c *TokenCache) Token(ctx context.Context, force bool) (AccessToken, error) {
	if force {
		c.mu.Lock()
		c.cur = nil
		c.hydrated = true // skip re-hydrating the entry we are discarding
		c.mu.Unlock()
		if c.store != nil {
			if err := c.store.ClearToken(ctx); err != nil {
				c.logger.Warn("Failed to clear persisted token", zap.Error(err))
			}
		}
	} else {
		c.hydrate(ctx)
		c.mu.RLock()
		if c.cur != nil && c.cur.Valid(c.now()) {
			tok := *c.cur
			c.mu.RUnlock()
			return tok, nil
		}
		c.mu.RUnlock()
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// Another caller may have completed a refresh while we queued.
		c.mu.RLock()
		if !force && c.cur != nil && c.cur.Valid(c.now()) {
			tok := *c.cur
			c.mu.RUnlock()
			return tok, nil
		}
		c.mu.RUnlock()

		resp, err := c.api.Authenticate(ctx)
		if err != nil {
			// The stale cache entry is kept so callers can inspect why the
			// token went bad, but it is never handed out.
			return AccessToken{}, err
		}

		tok := AccessToken{
			Token:  resp.AccessToken,
			Expiry: c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}

		c.mu.Lock()
		c.cur = &tok
		c.hydrated = true
		c.mu.Unlock()

		if c.store != nil {
			if err := c.store.SaveToken(ctx, tok); err != nil {
				c.logger.Warn("Failed to persist token", zap.Error(err))
			}
		}

		return tok, nil
	})
	if err != nil {
		return AccessToken{}, err
	}
	return v.(AccessToken), nil
}

// Stale returns the last cached token even if expired, or nil.
// Diagnostic only; never use it for requests.
func (c *TokenCache) Stale() *AccessToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return nil
	}
	tok := *c.cur
	return &tok
}

// hydrate loads the persisted token once, before the first cache lookup.
func (c *TokenCache) hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hydrated {
		return
	}
	c.hydrated = true
	if c.store == nil {
		return
	}
	tok, err := c.store.LoadToken(ctx)
	if err != nil {
		c.logger.Warn("Failed to load persisted token", zap.Error(err))
		return
	}
	if tok != nil {
		c.cur = tok
	}
}
