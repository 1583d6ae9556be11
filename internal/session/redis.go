package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("session: redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func cartKey(token string) string {
	return "session:" + token + ":cart"
}

func (s *RedisStore) CartID(ctx context.Context, token string) (uint, error) {
	val, err := s.client.Get(ctx, cartKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoCart
	}
	if err != nil {
		return 0, fmt.Errorf("session: redis get: %w", err)
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session: corrupt cart binding %q: %w", val, err)
	}
	return uint(id), nil
}

func (s *RedisStore) BindCart(ctx context.Context, token string, cartID uint) error {
	if err := s.client.Set(ctx, cartKey(token), strconv.FormatUint(uint64(cartID), 10), BindingTTL).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearCart(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, cartKey(token)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
