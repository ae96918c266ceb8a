package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RefreshStore persists opaque refresh tokens.
type RefreshStore interface {
	Save(ctx context.Context, token string, user User, ttl time.Duration) error
	Load(ctx context.Context, token string) (User, error)
	Touch(ctx context.Context, token string, ttl time.Duration) error
	Revoke(ctx context.Context, token string) error
}

const refreshKeyPrefix = "refresh:"

type RedisRefreshStore struct {
	client *redis.Client
}

func NewRedisRefreshStore(addr, password string) *RedisRefreshStore {
	return &RedisRefreshStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
	}
}

func (s *RedisRefreshStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisRefreshStore) Save(ctx context.Context, token string, user User, ttl time.Duration) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, refreshKeyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Load(ctx context.Context, token string) (User, error) {
	val, err := s.client.Get(ctx, refreshKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return User{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return User{}, err
	}

	var user User
	if err := json.Unmarshal([]byte(val), &user); err != nil || user.ID == "" {
		return User{}, fmt.Errorf("%w: corrupt payload", ErrInvalidRefreshToken)
	}
	return user, nil
}

func (s *RedisRefreshStore) Touch(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Expire(ctx, refreshKeyPrefix+token, ttl).Err()
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, refreshKeyPrefix+token).Err()
}

func (s *RedisRefreshStore) Close() error {
	return s.client.Close()
}
