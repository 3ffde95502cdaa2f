package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/presensia/presensia-client/internal/config"
)

// RedisStore persists credentials in Redis under a named slot.
type RedisStore struct {
	rdb  *redis.Client
	slot string
}

// NewRedisStore creates a Redis-backed store. slot names the credential
// slot, letting multiple CLI profiles share one Redis.
func NewRedisStore(rdb *redis.Client, slot string) *RedisStore {
	if slot == "" {
		slot = "default"
	}
	return &RedisStore{rdb: rdb, slot: slot}
}

func (s *RedisStore) key() string {
	return config.StoreKey.CredentialsKey(s.slot)
}

func (s *RedisStore) Save(ctx context.Context, cred Credentials) error {
	payload, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(), payload, 0).Err(); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (Credentials, error) {
	raw, err := s.rdb.Get(ctx, s.key()).Result()
	if errors.Is(err, redis.Nil) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}

	var cred Credentials
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return Credentials{}, fmt.Errorf("unmarshal credentials: %w", err)
	}
	return cred, nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
