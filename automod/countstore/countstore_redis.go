package countstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "count/"
var redisDistinctPrefix string = "distinct/"

// RedisCountStore keeps counters in redis with per-period expiry. Distinct
// counters use HyperLogLog, so they are approximate at large cardinality.
type RedisCountStore struct {
	Client *redis.Client
}

var _ CountStore = (*RedisCountStore)(nil)

func NewRedisCountStore(client *redis.Client) *RedisCountStore {
	return &RedisCountStore{Client: client}
}

var periodTTL = map[string]time.Duration{
	PeriodMinute: 2 * time.Minute,
	PeriodHour:   2 * time.Hour,
	PeriodDay:    48 * time.Hour,
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val, period string) (int, error) {
	key := redisCountPrefix + periodBucket(name, val, period)
	c, err := s.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	// increment all period buckets in a single redis round-trip
	multi := s.Client.Pipeline()
	for _, p := range allPeriods {
		key := redisCountPrefix + periodBucket(name, val, p)
		multi.Incr(ctx, key)
		if ttl, ok := periodTTL[p]; ok {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) IncrementPeriod(ctx context.Context, name, val, period string) error {
	multi := s.Client.Pipeline()
	key := redisCountPrefix + periodBucket(name, val, period)
	multi.Incr(ctx, key)
	if ttl, ok := periodTTL[period]; ok {
		multi.Expire(ctx, key, ttl)
	}
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error) {
	key := redisDistinctPrefix + periodBucket(name, bucket, period)
	c, err := s.Client.PFCount(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(c), nil
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, bucket, val string) error {
	multi := s.Client.Pipeline()
	for _, p := range allPeriods {
		key := redisDistinctPrefix + periodBucket(name, bucket, p)
		multi.PFAdd(ctx, key, val)
		if ttl, ok := periodTTL[p]; ok {
			multi.Expire(ctx, key, ttl)
		}
	}
	_, err := multi.Exec(ctx)
	return err
}
