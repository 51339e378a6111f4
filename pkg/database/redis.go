package database

import (
	"barber-booking/pkg/utils"
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis returns nil when Redis is not configured or unreachable.
// Callers treat a nil client as "feature disabled".
func InitRedis(config utils.RedisConfig, log *zap.Logger) *redis.Client {
	if config.Addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, continuing without it",
			zap.String("addr", config.Addr),
			zap.Error(err),
		)
		_ = rdb.Close()
		return nil
	}

	return rdb
}
