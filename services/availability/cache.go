package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tutorbook/models"
	"tutorbook/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MonthCache memoises resolved months. Misses and errors are never fatal.
type MonthCache interface {
	Get(ctx context.Context, key string) (*models.MonthCalendar, bool)
	Set(ctx context.Context, key string, cal *models.MonthCalendar)
	InvalidateTutor(ctx context.Context, tutorID string)
}

func monthCacheKey(tutorID string, kind models.SessionKind, view models.CalendarView, year int, month time.Month) string {
	return fmt.Sprintf("%s%s:%s:%s:%04d-%02d", utils.CalendarCachePrefix, tutorID, kind, view, year, int(month))
}

type RedisMonthCache struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *zap.Logger
}

func (c *RedisMonthCache) Get(ctx context.Context, key string) (*models.MonthCalendar, bool) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Logger.Warn("calendar cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var cal models.MonthCalendar
	if err := json.Unmarshal(raw, &cal); err != nil {
		return nil, false
	}
	return &cal, true
}

func (c *RedisMonthCache) Set(ctx context.Context, key string, cal *models.MonthCalendar) {
	raw, err := json.Marshal(cal)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		c.Logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisMonthCache) InvalidateTutor(ctx context.Context, tutorID string) {
	pattern := utils.CalendarCachePrefix + tutorID + ":*"
	iter := c.Client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.Logger.Warn("calendar cache scan failed", zap.String("tutorID", tutorID), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.Client.Del(ctx, keys...).Err(); err != nil {
		c.Logger.Warn("calendar cache invalidation failed", zap.String("tutorID", tutorID), zap.Error(err))
	}
}
