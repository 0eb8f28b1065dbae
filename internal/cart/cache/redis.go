package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/electromart/internal/cart/domain"
	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 5

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.get(ctx, r.client, sessionID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisCache) get(ctx context.Context, g getter, sessionID string) (*domain.Cart, error) {
	data, err := g.Get(ctx, cacheKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}
	return &cart, nil
}

func (r *RedisCache) Update(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	key := cacheKey(sessionID)
	var result *domain.Cart

	txf := func(tx *redis.Tx) error {
		cart, err := r.get(ctx, tx, sessionID)
		if errors.Is(err, ErrCacheMiss) {
			cart = domain.NewCart(sessionID)
		} else if err != nil {
			return err
		}

		if err := fn(cart); err != nil {
			return err
		}

		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl())
			return nil
		})
		if err != nil {
			return err
		}
		result = cart
		return nil
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // key changed between WATCH and EXEC
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (r *RedisCache) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) DeleteIf(ctx context.Context, sessionID string, match func(*domain.Cart) bool) (bool, error) {
	key := cacheKey(sessionID)
	var deleted bool

	txf := func(tx *redis.Tx) error {
		deleted = false
		cart, err := r.get(ctx, tx, sessionID)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		if err != nil {
			return err
		}
		if !match(cart) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		deleted = true
		return nil
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return deleted, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, fmt.Errorf("redis conditional delete failed: %w", err)
	}
	return false, ErrConflict
}

func (r *RedisCache) ttl() time.Duration {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	return r.baseTTL + jitter
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
