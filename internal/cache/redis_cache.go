package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"eli5/internal/domain"
)

const (
	keyPrefix  = "eli5:summary:"
	defaultTTL = 24 * time.Hour
)

// redisAPI is the subset of *redis.Client the cache uses.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type entry struct {
	Extract   string `json:"extract"`
	FetchedAt string `json:"fetched_at"`
}

// RedisCache stores Wikipedia summaries as JSON with a TTL.
type RedisCache struct {
	rdb    redisAPI
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*RedisCache)

func WithLogger(l *slog.Logger) Option {
	return func(c *RedisCache) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewRedisCache(rdb redisAPI, ttl time.Duration, opts ...Option) (*RedisCache, error) {
	if rdb == nil {
		return nil, errors.New("cache: redis client must not be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	c := &RedisCache{rdb: rdb, ttl: ttl, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewRedisClient accepts either host:port or a redis:// URL.
func NewRedisClient(addr string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("cache: redis address must not be empty")
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("cache: parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func summaryKey(topic string) string {
	return keyPrefix + domain.NormalizeTopic(topic)
}

func (c *RedisCache) GetSummary(ctx context.Context, topic string) (string, bool, error) {
	key := summaryKey(topic)
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	var e entry
	if err := json.Unmarshal([]byte(s), &e); err != nil || e.Extract == "" {
		// corrupt entry: drop it and report a miss
		if delErr := c.rdb.Del(ctx, key).Err(); delErr != nil {
			c.logger.WarnContext(ctx, "summary cache delete failed", "key", key, "err", delErr)
		}
		return "", false, nil
	}
	return e.Extract, true, nil
}

func (c *RedisCache) PutSummary(ctx context.Context, topic, extract string) error {
	if strings.TrimSpace(extract) == "" {
		return errors.New("cache: extract must not be empty")
	}
	b, err := json.Marshal(entry{Extract: extract, FetchedAt: c.now().UTC().Format(time.RFC3339)})
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}
	key := summaryKey(topic)
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}
