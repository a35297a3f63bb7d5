package verification

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard detects reuse of one-shot verification ids. Advisory: when no
// guard is configured, replay detection is simply skipped.
type ReplayGuard interface {
	// FirstUse reports whether the verification id has not been seen
	// before, atomically marking it as seen for the given retention.
	FirstUse(ctx context.Context, verificationID string, retention time.Duration) (bool, error)
}

// RedisReplayGuard implements ReplayGuard on redis SETNX
type RedisReplayGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisReplayGuard creates a new RedisReplayGuard instance
func NewRedisReplayGuard(client *redis.Client) *RedisReplayGuard {
	return &RedisReplayGuard{
		client: client,
		prefix: "membercard:vid:",
	}
}

// FirstUse atomically claims the verification id. SETNX guarantees exactly
// one scanner wins when two scans race on the same id.
func (g *RedisReplayGuard) FirstUse(ctx context.Context, verificationID string, retention time.Duration) (bool, error) {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return g.client.SetNX(ctx, g.prefix+verificationID, 1, retention).Result()
}
