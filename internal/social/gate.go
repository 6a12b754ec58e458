package social

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"habitlink/server/internal/models"
)

// Gate answers the single authorization question of the messaging core:
// may A message B right now?
type Gate interface {
	CanMessage(ctx context.Context, userA, userB string) (bool, error)
}

// pairCache holds the recent answers of the friendship service. Friend
// status changes rarely relative to message volume, so a short TTL bounds
// staleness without hammering the collaborator.
type pairCache interface {
	get(ctx context.Context, key string) (value, ok bool)
	set(ctx context.Context, key string, value bool)
}

type cachedGate struct {
	checker FriendshipChecker
	cache   pairCache
}

// NewGate wraps a friendship checker with a TTL cache. When redisAddr is
// empty the cache lives in-process.
func NewGate(checker FriendshipChecker, redisAddr string, ttl time.Duration) Gate {
	var cache pairCache
	if redisAddr != "" {
		cache = &redisCache{
			client: redis.NewClient(&redis.Options{Addr: redisAddr}),
			ttl:    ttl,
		}
	} else {
		cache = newMemoryCache(ttl)
	}
	return &cachedGate{checker: checker, cache: cache}
}

// CanMessage fails closed: if the friendship service is unreachable the
// pair is treated as not friends rather than letting an availability bug
// become a privacy bug.
func (g *cachedGate) CanMessage(ctx context.Context, userA, userB string) (bool, error) {
	key := pairKey(userA, userB)
	if friends, ok := g.cache.get(ctx, key); ok {
		return friends, nil
	}

	friends, err := g.checker.AreFriends(ctx, userA, userB)
	if err != nil {
		log.Printf("Friendship lookup failed for %s/%s: %v", userA, userB, err)
		return false, fmt.Errorf("%w: %v", models.ErrGateUnavailable, err)
	}

	g.cache.set(ctx, key, friends)
	return friends, nil
}

// pairKey is symmetric: (a,b) and (b,a) share one cache entry.
func pairKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return "friends:" + userA + ":" + userB
}

type memoryEntry struct {
	friends   bool
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func newMemoryCache(ttl time.Duration) *memoryCache {
	return &memoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (c *memoryCache) get(_ context.Context, key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return false, false
	}
	return entry.friends, true
}

func (c *memoryCache) set(_ context.Context, key string, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{friends: value, expiresAt: time.Now().Add(c.ttl)}
}

// redisCache shares the gate cache between processes, in the same spirit
// as the presence sets the reference deployment kept in Redis.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisCache) get(ctx context.Context, key string) (bool, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis gate cache read failed for %s: %v", key, err)
		}
		return false, false
	}
	return val == "1", true
}

func (c *redisCache) set(ctx context.Context, key string, value bool) {
	val := "0"
	if value {
		val = "1"
	}
	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		log.Printf("Redis gate cache write failed for %s: %v", key, err)
	}
}
