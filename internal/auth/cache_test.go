package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	grants map[uint64]Grants
	err    error
	calls  int
}

func (s *stubLoader) LoadGrants(_ context.Context, userID uint64) (Grants, error) {
	s.calls++
	if s.err != nil {
		return Grants{}, s.err
	}
	g, ok := s.grants[userID]
	if !ok {
		return Grants{Roles: []string{}, Permissions: map[string]struct{}{}}, nil
	}
	return g, nil
}

func grantsFor(roles []string, perms ...string) Grants {
	g := Grants{Roles: roles, Permissions: make(map[string]struct{})}
	for _, p := range perms {
		g.Permissions[p] = struct{}{}
	}
	return g
}

func TestResolveCachesUntilTTL(t *testing.T) {
	loader := &stubLoader{grants: map[uint64]Grants{
		7: grantsFor([]string{"medewerker"}, "bikes:read"),
	}}
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cache := NewRoleCache(loader, 5*time.Minute, 10)
	cache.now = func() time.Time { return clock }

	g, err := cache.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, g.HasAnyRole("medewerker"))
	assert.Equal(t, 1, loader.calls)

	// Second resolve within the TTL must not hit the loader.
	_, err = cache.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)

	// Past the TTL the entry is reloaded.
	clock = clock.Add(5*time.Minute + time.Second)
	_, err = cache.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestResolveCachesEmptyGrants(t *testing.T) {
	loader := &stubLoader{}
	cache := NewRoleCache(loader, time.Minute, 10)

	g, err := cache.Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, g.HasAnyRole("admin"))
	assert.False(t, g.HasAllPermissions("bikes:read"))

	// A user without roles is still a cacheable fact.
	_, err = cache.Resolve(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
}

func TestResolvePropagatesLoaderError(t *testing.T) {
	loader := &stubLoader{err: errors.New("db down")}
	cache := NewRoleCache(loader, time.Minute, 10)

	_, err := cache.Resolve(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestInvalidateForcesReload(t *testing.T) {
	loader := &stubLoader{grants: map[uint64]Grants{
		3: grantsFor([]string{"medewerker"}),
	}}
	cache := NewRoleCache(loader, time.Minute, 10)

	_, err := cache.Resolve(context.Background(), 3)
	require.NoError(t, err)

	loader.grants[3] = grantsFor([]string{"medewerker", "manager"})
	cache.Invalidate(3)

	g, err := cache.Resolve(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, g.HasAnyRole("manager"))
	assert.Equal(t, 2, loader.calls)
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	loader := &stubLoader{grants: map[uint64]Grants{}}
	for i := uint64(1); i <= 4; i++ {
		loader.grants[i] = grantsFor([]string{fmt.Sprintf("role-%d", i)})
	}
	cache := NewRoleCache(loader, time.Minute, 3)

	for i := uint64(1); i <= 3; i++ {
		_, err := cache.Resolve(context.Background(), i)
		require.NoError(t, err)
	}
	// Touch user 1 so user 2 becomes the LRU entry.
	_, err := cache.Resolve(context.Background(), 1)
	require.NoError(t, err)

	_, err = cache.Resolve(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.Len())

	calls := loader.calls
	_, err = cache.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, calls+1, loader.calls, "evicted user 2 should be reloaded")

	// User 1 survived the eviction.
	_, err = cache.Resolve(context.Background(), 1)
	require.NoError(t, err)
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	loader := &stubLoader{grants: map[uint64]Grants{
		1: grantsFor([]string{"a"}),
		2: grantsFor([]string{"b"}),
	}}
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cache := NewRoleCache(loader, time.Minute, 10)
	cache.now = func() time.Time { return clock }

	_, err := cache.Resolve(context.Background(), 1)
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	_, err = cache.Resolve(context.Background(), 2)
	require.NoError(t, err)

	clock = clock.Add(45 * time.Second) // user 1 expired, user 2 not
	cache.Sweep()
	assert.Equal(t, 1, cache.Len())
}

func TestInvalidateAll(t *testing.T) {
	loader := &stubLoader{grants: map[uint64]Grants{1: grantsFor([]string{"a"})}}
	cache := NewRoleCache(loader, time.Minute, 10)

	_, err := cache.Resolve(context.Background(), 1)
	require.NoError(t, err)
	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Len())
}

func TestGrantsSemantics(t *testing.T) {
	g := grantsFor([]string{"manager"}, "bikes:read", "bikes:update")

	assert.True(t, g.HasAnyRole("admin", "manager"), "any one role suffices")
	assert.False(t, g.HasAnyRole("admin", "readonly"))

	assert.True(t, g.HasAllPermissions("bikes:read", "bikes:update"), "all permissions required")
	assert.False(t, g.HasAllPermissions("bikes:read", "bikes:delete"))
}
