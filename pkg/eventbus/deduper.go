package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers event ids that were already delivered.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}

const dedupKeyPrefix = "lf:dedup:"

type RedisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDeduper(client redis.UniversalClient, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, dedupKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) MarkSeen(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return d.client.Set(ctx, dedupKeyPrefix+eventID, "1", d.ttl).Err()
}

// MemoryDeduper is a process-local Deduper for single-instance deployments.
type MemoryDeduper struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryDeduper{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (d *MemoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.cleanupLocked(now)

	_, ok := d.entries[eventID]
	return ok, nil
}

func (d *MemoryDeduper) MarkSeen(_ context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[eventID] = d.now()
	return nil
}

func (d *MemoryDeduper) cleanupLocked(now time.Time) {
	for eventID, seenAt := range d.entries {
		if now.Sub(seenAt) > d.ttl {
			delete(d.entries, eventID)
		}
	}
}
