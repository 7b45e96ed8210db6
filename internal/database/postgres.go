package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/eduadmin-backend/internal/config"
)

const (
	applicationName = "eduadmin-backend"
	connectTimeout  = 5 * time.Second
)

// poolConfig derives the pgx pool settings from cfg.
// Sessions run in UTC so session windows and history date filters agree on calendar days.
func poolConfig(cfg *config.Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxDBConns > 0 {
		poolCfg.MaxConns = cfg.MaxDBConns
	}
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.HealthCheckPeriod = time.Minute

	params := poolCfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = applicationName
	}
	params["timezone"] = "UTC"

	return poolCfg, nil
}

// NewPostgresPool connects to PostgreSQL and reports the applied schema version.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %q: %w", poolCfg.ConnConfig.Database, err)
	}

	event := log.Info().
		Int32("max_conns", poolCfg.MaxConns).
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database)

	version, dirty, err := schemaVersion(pingCtx, pool)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		log.Warn().Msg("No migrations applied; run `migrate up` before serving attendance traffic")
	case err != nil:
		log.Warn().Err(err).Msg("Could not read schema version")
	case dirty:
		log.Warn().Uint("schema_version", version).Msg("Schema is dirty; a migration failed half way")
	default:
		event = event.Uint("schema_version", version)
	}
	event.Msg("PostgreSQL connected")

	return pool, nil
}

// schemaVersion reads the bookkeeping row written by golang-migrate.
func schemaVersion(ctx context.Context, pool *pgxpool.Pool) (version uint, dirty bool, err error) {
	var v int64
	err = pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&v, &dirty)
	return uint(v), dirty, err
}
