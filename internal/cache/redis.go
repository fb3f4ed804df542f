package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const summaryKeyPrefix = "inventory:summary:"

type RedisClient struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisClient(addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))
	return NewWithClient(rdb, ttl, log), nil
}

// NewWithClient: обёртка над готовым клиентом.
func NewWithClient(client redis.UniversalClient, ttl time.Duration, log *zap.Logger) *RedisClient {
	return &RedisClient{client: client, ttl: ttl, log: log}
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Сводки товара лежат в одном hash (поле = scope), инвалидация: один DEL.
func summaryKey(productID uuid.UUID) string {
	return summaryKeyPrefix + productID.String()
}

func (r *RedisClient) Get(ctx context.Context, productID uuid.UUID, scope string) ([]byte, bool, error) {
	data, err := r.client.HGet(ctx, summaryKey(productID), scope).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisClient) Set(ctx context.Context, productID uuid.UUID, scope string, data []byte) error {
	key := summaryKey(productID)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, scope, data)
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisClient) Invalidate(ctx context.Context, productID uuid.UUID) error {
	return r.client.Del(ctx, summaryKey(productID)).Err()
}

var _ service.SummaryCache = (*RedisClient)(nil)
