package ratelimit

import (
	"context"
	"fmt"
	"math"

	"github.com/RoyceAzure/lab/foodorder/internal/pkg/clock"
	"github.com/redis/go-redis/v9"
)

// Limiter key 通常是 scope + user id
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisClient 只需要執行 lua script
type RedisClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type Config struct {
	Capacity      int
	RatePerSecond float64
}

// 時間單位為毫秒
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1])
local lastRefill = tonumber(bucket[2])
if tokens == nil then
	tokens = capacity
	lastRefill = now
end

local elapsed = math.max(0, now - lastRefill) / 1000
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('EXPIRE', key, ttl)
return allowed
`

// RedisTokenBucket 多個服務實例共用同一個 bucket
type RedisTokenBucket struct {
	client RedisClient
	cfg    Config
	clock  clock.Clock
	ttl    int
}

func NewRedisTokenBucket(client RedisClient, cfg Config, clk clock.Clock) (*RedisTokenBucket, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("rate limit capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.RatePerSecond <= 0 {
		return nil, fmt.Errorf("rate limit refill rate must be positive, got %v", cfg.RatePerSecond)
	}
	// bucket 補滿之後 key 就可以過期
	ttl := int(math.Ceil(float64(cfg.Capacity)/cfg.RatePerSecond)) + 1
	return &RedisTokenBucket{client: client, cfg: cfg, clock: clk, ttl: ttl}, nil
}

func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (bool, error) {
	res, err := b.client.Eval(ctx, tokenBucketScript, []string{key},
		b.cfg.Capacity,
		b.cfg.RatePerSecond,
		b.clock.Now().UnixMilli(),
		b.ttl,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("eval token bucket %s: %w", key, err)
	}
	return res == 1, nil
}
