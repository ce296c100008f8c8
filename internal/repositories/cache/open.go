package cache

import (
	"context"
	"time"

	"gatepay/internal/config"

	"go.uber.org/zap"
)

// Open returns a redis backed store when REDIS_HOST is set and an in-memory
// store otherwise. The returned *CacheService is nil for the memory store.
func Open(ctx context.Context, log *zap.Logger) (Store, *CacheService, error) {
	ttl := config.GetDurationEnv("CACHE_TTL", time.Hour)

	host := config.GetEnv("REDIS_HOST", "")
	if host == "" {
		log.Info("redis not configured, using in-memory cache")
		return NewMemoryCache(ttl), nil, nil
	}

	client := NewRedisClient(&RedisConfig{
		Host:     host,
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	svc := NewCacheService(client, ttl)
	if err := svc.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("connected to redis", zap.String("host", host))
	return svc, svc, nil
}
