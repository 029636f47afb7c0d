package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements the key-value store behind the dedup gate and the stats
// counters. All keys are namespaced with a prefix so several bots can share
// one database.
type Redis struct {
	client *redis.Client
	prefix string
}

func New(ctx context.Context, addr, password, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	slog.Info("Connected to Redis", "addr", addr, "prefix", prefix)

	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("EXISTS %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", key, err)
	}
	return val, nil
}

func (r *Redis) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("SETEX %s: %w", key, err)
	}
	return nil
}

// SetNXWithTTL sets the key only if it does not already exist, reporting
// whether this call created it. This is the atomic claim primitive the dedup
// gate relies on.
func (r *Redis) SetNXWithTTL(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	created, err := r.client.SetNX(ctx, r.key(key), value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("SETNX %s: %w", key, err)
	}
	return created, nil
}

func (r *Redis) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, r.key(key), delta).Result()
	if err != nil {
		return 0, fmt.Errorf("INCRBY %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) AddToSet(ctx context.Context, key, member string) error {
	if err := r.client.SAdd(ctx, r.key(key), member).Err(); err != nil {
		return fmt.Errorf("SADD %s: %w", key, err)
	}
	return nil
}

func (r *Redis) SetCard(ctx context.Context, key string) (int64, error) {
	n, err := r.client.SCard(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("SCARD %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) ExpireSet(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, r.key(key), ttl).Err(); err != nil {
		return fmt.Errorf("EXPIRE %s: %w", key, err)
	}
	return nil
}

// ScanPrefix returns all keys under the given logical prefix, with the
// namespace prefix stripped back off.
func (r *Redis) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("SCAN %s: %w", prefix, err)
	}
	return keys, nil
}

// AllStats collects every stats counter, keyed by the bare stat name.
func (r *Redis) AllStats(ctx context.Context) (map[string]int64, error) {
	keys, err := r.ScanPrefix(ctx, "stats:")
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(keys))
	for _, key := range keys {
		val, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			slog.Warn("Skipping non-numeric stat", "key", key, "value", val)
			continue
		}
		stats[strings.TrimPrefix(key, "stats:")] = n
	}
	return stats, nil
}
