package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared-counter Store. Every gateway instance pointed at
// the same redis enforces one combined limit instead of an independent one
// per process.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	sha    string
}

// NewRedisStore loads the window script and returns a store namespaced
// under prefix.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, prefix string) (*RedisStore, error) {
	sha, err := client.ScriptLoad(ctx, luaSlidingWindow).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load rate limit script: %w", err)
	}
	return &RedisStore{client: client, prefix: prefix, sha: sha}, nil
}

// Consume records a hit for key and decides admission under p.
func (s *RedisStore) Consume(ctx context.Context, key string, p Policy) (Decision, error) {
	p.validate()
	if key == "" {
		panic("ratelimit: empty key")
	}

	zkey := s.prefix + ":" + key
	args := []any{
		time.Now().UnixMilli(),
		p.Window.Milliseconds(),
		p.Limit,
		p.EffectiveCap(),
		// keep idle keys around a little past the window before redis GCs them
		p.Window.Milliseconds() * 2,
	}

	res, err := s.client.EvalSha(ctx, s.sha, []string{zkey}, args...).Slice()
	if isNoScript(err) {
		// script cache flushed, e.g. redis restart
		if s.sha, err = s.client.ScriptLoad(ctx, luaSlidingWindow).Result(); err == nil {
			res, err = s.client.EvalSha(ctx, s.sha, []string{zkey}, args...).Slice()
		}
	}
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit script returned %d values, want 3", len(res))
	}

	resetMs := toInt64(res[2])
	return Decision{
		Allowed:   toInt64(res[0]) == 1,
		Limit:     p.Limit,
		Remaining: int(toInt64(res[1])),
		Reset:     int((resetMs + 999) / 1000),
	}, nil
}

func isNoScript(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NOSCRIPT")
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
