package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-sales-ledger.git/internal/redisx"
)

// RedisCache: read-through cache utk hasil report. Di-invalidate oleh
// reporter consumer setiap ada sale baru.
type RedisCache struct {
	RDB *redis.Client
}

func (c *RedisCache) GetReport(ctx context.Context) (Report, bool, error) {
	s, err := c.RDB.Get(ctx, redisx.KeyReportCache).Result()
	if errors.Is(err, redis.Nil) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	var rep Report
	if err := json.Unmarshal([]byte(s), &rep); err != nil {
		return Report{}, false, err
	}
	return rep, true, nil
}

func (c *RedisCache) SetReport(ctx context.Context, rep Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, redisx.KeyReportCache, b, redisx.TTLReportCache).Err()
}

// RedisProjectorStore: state projector di Redis (dedup per event_id,
// cache report yang di-DEL).
type RedisProjectorStore struct {
	RDB     *redis.Client
	Service string // komponen key dedup
}

func (s *RedisProjectorStore) SeenEvent(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, s.RDB, fmt.Sprintf(redisx.KeyDedup, s.Service, eventID))
}

func (s *RedisProjectorStore) MarkEvent(ctx context.Context, eventID string) error {
	return s.RDB.Set(ctx, fmt.Sprintf(redisx.KeyDedup, s.Service, eventID), "1", redisx.TTLDedup).Err()
}

func (s *RedisProjectorStore) InvalidateReport(ctx context.Context) error {
	return s.RDB.Del(ctx, redisx.KeyReportCache).Err()
}
