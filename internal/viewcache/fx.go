package viewcache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/rubicondrive/dealerdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("viewcache",
	fx.Provide(New),
)

// New selects the cache backend: Redis when REDIS_ADDR is configured,
// process-local memory otherwise.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Cache {
	if cfg.RedisAddr == "" {
		log.Info("view cache using in-memory backend")
		return NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})

	log.Info("view cache using redis backend", zap.String("addr", cfg.RedisAddr))
	return NewRedisCache(client, log)
}
