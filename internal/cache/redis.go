package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/outlet-shop/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL = 15 * time.Minute
	// счётчик поколения живёт дольше любой записи корзины
	generationTTL = 24 * time.Hour
)

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	// UserID не сериализуется
	cart.UserID = userID
	return &cart, nil
}

// Version читает поколение корзины, отсутствие счётчика означает 0.
func (r *RedisCache) Version(ctx context.Context, userID uuid.UUID) (int64, error) {
	v, err := r.client.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return v, nil
}

// Set пишет корзину под WATCH счётчика поколения: если счётчик сдвинулся, запись отменяется.
func (r *RedisCache) Set(ctx context.Context, userID uuid.UUID, cart *models.Cart, version int64) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	// разброс TTL, чтобы ключи не истекали одновременно
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	genKey := generationKey(userID)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get generation failed: %w", err)
		}
		if current != version {
			return ErrStaleCart
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(userID), data, r.baseTTL+jitter)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleCart), errors.Is(err, redis.TxFailedErr):
		return ErrStaleCart
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

// Delete сдвигает поколение и удаляет корзину одной транзакцией.
func (r *RedisCache) Delete(ctx context.Context, userID uuid.UUID) error {
	genKey := generationKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, cacheKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", userID)
}

func generationKey(userID uuid.UUID) string {
	return fmt.Sprintf("cart:gen:%s", userID)
}
