package redis_client

import (
	"context"
	"time"

	"github.com/Strum355/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const pingTimeout = 5 * time.Second

// New connects to the Redis server at redis.address. It returns nil when no
// address is configured or the server cannot be reached, which disables
// caching.
func New(ctx context.Context) *redis.Client {
	addr := viper.GetString("redis.address")
	if addr == "" {
		log.Info("No Redis address configured, caching is disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithFields(log.Fields{
			"address": addr,
			"error":   err,
		}).Warn("Redis is unreachable, caching is disabled")
		rdb.Close()
		return nil
	}
	return rdb
}
