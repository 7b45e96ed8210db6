package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
)

// redisOptions parses the Redis URL and names the connection so the PIN index
// and roster subscribers are recognisable in CLIENT LIST.
func redisOptions(cfg *config.Config) (*redis.Options, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = applicationName
	}
	return opt, nil
}

// NewRedisClient creates and validates a Redis client connection.
// Redis backs the PIN index, roster pub/sub and single-device student logins.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Str("client_name", opt.ClientName).
		Str("session_channel", config.CacheKey.AttendanceSessionChannel("*")).
		Msg("Redis connected")

	return rdb, nil
}
