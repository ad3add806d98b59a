package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"foodie-skill/internal/domain"
)

const redisKeyPrefix = "foodie:profile:"

// redisAPI is the subset of *redis.Client used by RedisStore.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps each record as a JSON document under its own key.
type RedisStore struct {
	client redisAPI
	ttl    time.Duration
}

// NewRedis wraps an existing client. A zero ttl keeps records forever.
func NewRedis(client redisAPI, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// NewRedisFromURL dials the server named by a redis:// URL and checks it
// answers.
func NewRedisFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisStore, *redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("repository: connect to redis: %w", err)
	}
	store, err := NewRedis(client, ttl)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, client, nil
}

func redisKey(userKey string) string {
	return redisKeyPrefix + userKey
}

func (s *RedisStore) Load(ctx context.Context, userKey string) (*domain.PersistedRecord, error) {
	if userKey == "" {
		return nil, errors.New("repository: Load: user key is required")
	}
	raw, err := s.client.Get(ctx, redisKey(userKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: Load redis get: %w", err)
	}
	var rec domain.PersistedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("repository: Load decode: %w", err)
	}
	if rec.Recommendations.Current.Meals == nil {
		rec.Recommendations.Current.Meals = []string{}
	}
	if rec.Recommendations.Current.Restaurants == nil {
		rec.Recommendations.Current.Restaurants = []string{}
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, userKey string, rec domain.PersistedRecord) error {
	if userKey == "" {
		return errors.New("repository: Save: user key is required")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("repository: Save encode: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(userKey), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("repository: Save redis set: %w", err)
	}
	return nil
}
