package live

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridpulse/gridpulse/internal/metrics"
)

// RedisStore implements Store on a Redis client — the production backend.
// Sets map to Redis sets, lists to Redis lists, and the flush marker to
// SET NX, so every operation is atomic server-side.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Ping checks connectivity to Redis.
func (r *RedisStore) Ping(ctx context.Context) error {
	err := r.rdb.Ping(ctx).Err()
	observe("ping", err)
	return err
}

func (r *RedisStore) AddUnique(ctx context.Context, key, member string) (int64, error) {
	var card *redis.IntCmd
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, member)
		card = p.SCard(ctx, key)
		return nil
	})
	observe("sadd", err)
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

func (r *RedisStore) Count(ctx context.Context, key string) (int64, error) {
	n, err := r.rdb.SCard(ctx, key).Result()
	observe("scard", err)
	return n, err
}

func (r *RedisStore) Append(ctx context.Context, key string, value float64) error {
	err := r.rdb.RPush(ctx, key, value).Err()
	observe("rpush", err)
	return err
}

func (r *RedisStore) ReadAll(ctx context.Context, key string) ([]float64, error) {
	raw, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	observe("lrange", err)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue // foreign value in the list; skip rather than fail the read
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := r.rdb.Expire(ctx, key, ttl).Err()
	observe("expire", err)
	return err
}

func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	observe("exists", err)
	return n > 0, err
}

func (r *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, key, value, ttl).Result()
	observe("setnx", err)
	return ok, err
}

// RecordPing issues the whole logical ping update — device add, speed append,
// TTL refreshes, cardinality read — as one pipelined round trip to bound tail
// latency under load.
func (r *RedisStore) RecordPing(ctx context.Context, countKey, speedsKey, member string, speed *float64, ttl time.Duration) (int64, error) {
	var card *redis.IntCmd
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, countKey, member)
		card = p.SCard(ctx, countKey)
		p.Expire(ctx, countKey, ttl)
		if speed != nil {
			p.RPush(ctx, speedsKey, *speed)
			p.Expire(ctx, speedsKey, ttl)
		}
		return nil
	})
	observe("record_pipeline", err)
	if err != nil {
		return 0, err
	}
	return card.Val(), nil
}

// observe records one store operation in the redis_operations_total counter.
func observe(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RedisOperations.WithLabelValues(op, status).Inc()
}
