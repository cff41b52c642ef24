package embedding

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ranker:emb:"

// redisCache is a Redis-backed cache so embeddings can be shared across
// processes. TTL 0 keeps entries forever.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and returns a cache backend.
func NewRedisCache(addr, password string, db int, ttl time.Duration) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &redisCache{client: client, ttl: ttl}, nil
}

func (c *redisCache) Name() string { return "redis" }

func (c *redisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		// A cache read failure is a miss, not an error; the caller will
		// recompute.
		slog.Warn("redis cache get failed", "key", key, "error", err)
		return nil, false
	}
	return bytesToFloats(data), true
}

func (c *redisCache) Set(ctx context.Context, key string, vec []float32) {
	if err := c.client.Set(ctx, redisKeyPrefix+key, floatsToBytes(vec), c.ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "key", key, "error", err)
	}
}

func (c *redisCache) Len(ctx context.Context) int {
	var count int
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

func (c *redisCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}

// floatsToBytes encodes a float32 slice as little-endian bytes.
func floatsToBytes(floats []float32) []byte {
	bytes := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(bytes[i*4:], math.Float32bits(f))
	}
	return bytes
}

// bytesToFloats decodes little-endian bytes back into a float32 slice.
func bytesToFloats(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
