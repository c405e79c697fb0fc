package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"networkpay/pkg/domain"
	"networkpay/pkg/errors"
)

const DefaultPrefix = "networkpay"

// Snapshot is the last good record set fetched for one owner and ledger.
type Snapshot struct {
	Records   []domain.Record `json:"records"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// RedisCache stores JSON values and record snapshots under a common prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache wraps an existing client so it can be shared with the rate
// limiter.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.key(key), data, expiration).Err()
}

// Get decodes the value stored at key into dest. A missing key yields
// errors.ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return errors.ErrCacheMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func snapshotKey(owner uuid.UUID, ledger domain.Ledger) string {
	return fmt.Sprintf("snapshot:%s:%s", ledger, owner)
}

// SaveSnapshot stores records as the latest known set for owner and ledger.
func (c *RedisCache) SaveSnapshot(ctx context.Context, owner uuid.UUID, ledger domain.Ledger, records []domain.Record, ttl time.Duration) error {
	return c.Set(ctx, snapshotKey(owner, ledger), Snapshot{
		Records:   records,
		FetchedAt: time.Now().UTC(),
	}, ttl)
}

// LoadSnapshot returns the stored snapshot, or errors.ErrCacheMiss.
func (c *RedisCache) LoadSnapshot(ctx context.Context, owner uuid.UUID, ledger domain.Ledger) (*Snapshot, error) {
	var snap Snapshot
	if err := c.Get(ctx, snapshotKey(owner, ledger), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// TouchOwner marks owner as recently active for the snapshot warmer.
func (c *RedisCache) TouchOwner(ctx context.Context, owner uuid.UUID, at time.Time) error {
	return c.client.ZAdd(ctx, c.key("active"), redis.Z{
		Score:  float64(at.Unix()),
		Member: owner.String(),
	}).Err()
}

// ActiveOwners lists owners touched at or after since, most recent first.
func (c *RedisCache) ActiveOwners(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	members, err := c.client.ZRevRangeByScore(ctx, c.key("active"), &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.Unix(), 10),
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	owners := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		owners = append(owners, id)
	}
	return owners, nil
}

// PruneOwners drops owners not touched since before.
func (c *RedisCache) PruneOwners(ctx context.Context, before time.Time) (int64, error) {
	return c.client.ZRemRangeByScore(ctx, c.key("active"), "-inf", "("+strconv.FormatInt(before.Unix(), 10)).Result()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
