package service

import (
	"context"
	"edu_platform_backend/internal/model"
	"edu_platform_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ProgressCache 按报名缓存进度记录，缓存失败只记录日志，不影响请求
type ProgressCache interface {
	Get(ctx context.Context, enrollmentID uint) (*model.Progress, bool)
	Set(ctx context.Context, progress *model.Progress)
	Invalidate(ctx context.Context, enrollmentID uint)
}

// NewProgressCache redis 未启用时返回空实现
func NewProgressCache(rdb *redis.Client, ttl time.Duration) ProgressCache {
	if rdb == nil {
		return noopProgressCache{}
	}
	return &redisProgressCache{Redis: rdb, TTL: ttl}
}

func progressCacheKey(enrollmentID uint) string {
	return fmt.Sprintf("progress:enrollment:%d", enrollmentID)
}

type redisProgressCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (c *redisProgressCache) Get(ctx context.Context, enrollmentID uint) (*model.Progress, bool) {
	raw, err := c.Redis.Get(ctx, progressCacheKey(enrollmentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("Failed to read progress cache", zap.Uint("enrollment_id", enrollmentID), zap.Error(err))
		}
		return nil, false
	}

	var progress model.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		logger.Log.Warn("Corrupted progress cache entry", zap.Uint("enrollment_id", enrollmentID), zap.Error(err))
		c.Invalidate(ctx, enrollmentID)
		return nil, false
	}
	return &progress, true
}

func (c *redisProgressCache) Set(ctx context.Context, progress *model.Progress) {
	raw, err := json.Marshal(progress)
	if err != nil {
		logger.Log.Warn("Failed to encode progress for cache", zap.Uint("enrollment_id", progress.EnrollmentID), zap.Error(err))
		return
	}
	if err := c.Redis.Set(ctx, progressCacheKey(progress.EnrollmentID), raw, c.TTL).Err(); err != nil {
		logger.Log.Warn("Failed to write progress cache", zap.Uint("enrollment_id", progress.EnrollmentID), zap.Error(err))
	}
}

func (c *redisProgressCache) Invalidate(ctx context.Context, enrollmentID uint) {
	if err := c.Redis.Del(ctx, progressCacheKey(enrollmentID)).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate progress cache", zap.Uint("enrollment_id", enrollmentID), zap.Error(err))
	}
}

type noopProgressCache struct{}

func (noopProgressCache) Get(context.Context, uint) (*model.Progress, bool) { return nil, false }
func (noopProgressCache) Set(context.Context, *model.Progress)              {}
func (noopProgressCache) Invalidate(context.Context, uint)                  {}
