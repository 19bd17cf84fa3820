// Package auth holds the in-memory role/permission cache that sits in
// front of the database so authorization checks do not hit MySQL on
// every request.  The cache is an explicitly owned component: construct
// it in main, hand it to the middleware that needs it, and let tests
// substitute their own loader and clock.
package auth

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Defaults mirror the production limits: entries live five minutes, at
// most a thousand users are cached, and a sweeper pass runs every ten
// minutes to clear out long-tail single-use sessions.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultMaxEntries    = 1000
	DefaultSweepInterval = 10 * time.Minute
)

// Grants is the resolved authorization state of one user: the names of
// the roles assigned to them and the union of the permissions those
// roles carry.  A user without roles has empty (non-nil) sets; that is
// a valid, cacheable result.
type Grants struct {
	Roles       []string
	Permissions map[string]struct{}
}

// HasAnyRole reports whether at least one of the given roles is
// granted (OR semantics).
func (g Grants) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range g.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// HasAllPermissions reports whether every one of the given permissions
// is granted (AND semantics).
func (g Grants) HasAllPermissions(perms ...string) bool {
	for _, p := range perms {
		if _, ok := g.Permissions[p]; !ok {
			return false
		}
	}
	return true
}

// GrantLoader loads the authorization state of a user from the source
// of truth.  The role repository implements this against MySQL.
type GrantLoader interface {
	LoadGrants(ctx context.Context, userID uint64) (Grants, error)
}

type cacheEntry struct {
	userID    uint64
	grants    Grants
	expiresAt time.Time
}

// RoleCache maps user IDs to their Grants with a TTL and a bounded
// entry count.  Eviction is true LRU: both reads and writes move an
// entry to the most-recently-used position.  All state is derived and
// expendable; dropping the whole cache only costs extra database
// loads.
type RoleCache struct {
	loader     GrantLoader
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[uint64]*list.Element // value: *cacheEntry
	order   *list.List               // front = least recently used
}

// NewRoleCache builds a cache around the given loader.  ttl and
// maxEntries fall back to the package defaults when zero.
func NewRoleCache(loader GrantLoader, ttl time.Duration, maxEntries int) *RoleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &RoleCache{
		loader:     loader,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[uint64]*list.Element),
		order:      list.New(),
	}
}

// Resolve returns the cached Grants for userID if present and
// unexpired, otherwise loads them from the loader and caches the
// result.  An error from the loader is returned as-is; callers must
// fail closed on it.
func (c *RoleCache) Resolve(ctx context.Context, userID uint64) (Grants, error) {
	c.mu.Lock()
	if el, ok := c.entries[userID]; ok {
		entry := el.Value.(*cacheEntry)
		if entry.expiresAt.After(c.now()) {
			c.order.MoveToBack(el)
			g := entry.grants
			c.mu.Unlock()
			return g, nil
		}
		c.order.Remove(el)
		delete(c.entries, userID)
	}
	c.mu.Unlock()

	// Load outside the lock so a slow query does not stall every other
	// authorization check.  Two concurrent misses for the same user may
	// both load; the second insert simply wins.
	grants, err := c.loader.LoadGrants(ctx, userID)
	if err != nil {
		return Grants{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[userID]; ok {
		c.order.Remove(el)
		delete(c.entries, userID)
	}
	for len(c.entries) >= c.maxEntries {
		front := c.order.Front()
		if front == nil {
			break
		}
		evicted := front.Value.(*cacheEntry)
		c.order.Remove(front)
		delete(c.entries, evicted.userID)
	}
	entry := &cacheEntry{userID: userID, grants: grants, expiresAt: c.now().Add(c.ttl)}
	c.entries[userID] = c.order.PushBack(entry)
	return grants, nil
}

// Invalidate drops the cached entry for one user.  Call it after any
// role assignment change so the next check sees fresh data.
func (c *RoleCache) Invalidate(userID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[userID]; ok {
		c.order.Remove(el)
		delete(c.entries, userID)
	}
}

// InvalidateAll drops every cached entry.
func (c *RoleCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*list.Element)
	c.order.Init()
}

// Sweep removes all expired entries regardless of access patterns.
func (c *RoleCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*cacheEntry)
		if !entry.expiresAt.After(now) {
			c.order.Remove(el)
			delete(c.entries, entry.userID)
		}
		el = next
	}
}

// Len returns the current number of cached entries.
func (c *RoleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Run sweeps the cache on the given interval until ctx is cancelled.
// Zero interval uses DefaultSweepInterval.  Intended to be started as
// a goroutine from main.
func (c *RoleCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sweep()
		}
	}
}
