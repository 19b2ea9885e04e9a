package ticket

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Resolver resolves the principal of a ticket-granting ticket id.
type Resolver interface {
	ResolveIdentity(ctx context.Context, ticketID string) (*Principal, error)
}

// CachedSupport keeps recently resolved principals in a bounded, expiring LRU cache so repeated
// requests carrying the same ticket do not hit the registry. Misses and errors are not cached.
type CachedSupport struct {
	next  Resolver
	cache *expirable.LRU[string, *Principal]
}

// NewCachedSupport wraps next with a cache of at most size entries, each kept for ttl.
// The ttl should stay well below the ticket lifetime since logouts are only seen on expiry.
func NewCachedSupport(next Resolver, size int, ttl time.Duration) (*CachedSupport, error) {
	if next == nil {
		return nil, errors.New("resolver is required")
	}
	if size <= 0 {
		return nil, errors.Newf("invalid cache size %d", size)
	}
	if ttl <= 0 {
		return nil, errors.Newf("invalid cache ttl %s", ttl)
	}
	return &CachedSupport{
		next:  next,
		cache: expirable.NewLRU[string, *Principal](size, nil, ttl),
	}, nil
}

func (c *CachedSupport) ResolveIdentity(ctx context.Context, ticketID string) (*Principal, error) {
	if p, ok := c.cache.Get(ticketID); ok {
		return p, nil
	}

	p, err := c.next.ResolveIdentity(ctx, ticketID)
	if err != nil || p == nil {
		return p, err
	}

	c.cache.Add(ticketID, p)
	return p, nil
}

// Invalidate drops a cached ticket, e.g. on logout.
func (c *CachedSupport) Invalidate(ticketID string) {
	c.cache.Remove(ticketID)
}

// Len returns the number of cached principals.
func (c *CachedSupport) Len() int {
	return c.cache.Len()
}
