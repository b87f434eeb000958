package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdemStore: SETNX-based, first caller wins sampai TTL habis.
type IdemStore struct {
	RDB *redis.Client
}

func (s *IdemStore) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, key, 1, ttl).Result()
}

// DeleteIdempotency melepas key yang sudah di-claim, dipakai jalur gagal
// supaya external_id-nya bisa di-retry.
func (s *IdemStore) DeleteIdempotency(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}
