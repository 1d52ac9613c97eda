package window

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisWindowPrefix string = "window/"

// RedisStore keeps per-user windows as capped redis lists of JSON entries.
// Age-based trimming happens at read time; the list TTL keeps idle users
// from accumulating.
type RedisStore struct {
	Client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{Client: client}
}

func (s *RedisStore) Snapshot(ctx context.Context, communityID, userID string) (*UserWindow, error) {
	key := redisWindowPrefix + windowKey(communityID, userID)
	raw, err := s.Client.LRange(ctx, key, 0, MaxMessages-1).Result()
	if err == redis.Nil {
		return &UserWindow{}, nil
	} else if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-MaxAge)
	win := UserWindow{Messages: make([]Message, 0, len(raw))}
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		if m.At.Before(cutoff) {
			break
		}
		win.Messages = append(win.Messages, m)
	}
	return &win, nil
}

func (s *RedisStore) RecordMessage(ctx context.Context, communityID, userID string, m Message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	key := redisWindowPrefix + windowKey(communityID, userID)
	multi := s.Client.Pipeline()
	multi.LPush(ctx, key, raw)
	multi.LTrim(ctx, key, 0, MaxMessages-1)
	multi.Expire(ctx, key, MaxAge)
	_, err = multi.Exec(ctx)
	return err
}
