package setstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var redisSetPrefix string = "set/"

type RedisSetStore struct {
	Client *redis.Client
}

var _ SetStore = (*RedisSetStore)(nil)

func NewRedisSetStore(client *redis.Client) *RedisSetStore {
	return &RedisSetStore{Client: client}
}

func (s *RedisSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	return s.Client.SIsMember(ctx, redisSetPrefix+name, val).Result()
}

func (s *RedisSetStore) Members(ctx context.Context, name string) ([]string, error) {
	return s.Client.SMembers(ctx, redisSetPrefix+name).Result()
}

func (s *RedisSetStore) AddToSet(ctx context.Context, name string, vals ...string) error {
	members := make([]interface{}, len(vals))
	for i, v := range vals {
		members[i] = v
	}
	return s.Client.SAdd(ctx, redisSetPrefix+name, members...).Err()
}
