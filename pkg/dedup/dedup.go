// Package dedup remembers recently seen event keys so redelivered platform
// events are relayed once.
package dedup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Minute

// Guard records event keys. FirstSeen returns true exactly once per key
// within the TTL.
type Guard interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Close() error
}

// MemoryGuard keeps keys in process memory.
type MemoryGuard struct {
	mu    sync.Mutex
	ttl   time.Duration
	seen  map[string]time.Time
	now   func() time.Time
	sweep time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryGuard{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) FirstSeen(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if now.Sub(g.sweep) > g.ttl {
		for k, exp := range g.seen {
			if now.After(exp) {
				delete(g.seen, k)
			}
		}
		g.sweep = now
	}

	if exp, ok := g.seen[key]; ok && !now.After(exp) {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}

// Len is the number of keys currently held, expired or not.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *MemoryGuard) Close() error { return nil }

// RedisGuard shares seen keys between gateway replicas.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(addr, password, prefix string, ttl time.Duration) (*RedisGuard, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("dedup redis addr is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisGuard{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

func (g *RedisGuard) FirstSeen(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, "1", g.ttl).Result()
}

// Ping checks the redis connection.
func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func (g *RedisGuard) Close() error { return g.client.Close() }
