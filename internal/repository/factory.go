package repository

import (
	"context"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/medical-docs/internal/common"
	"github.com/joseph-ayodele/medical-docs/internal/core/index"
)

// OpenIndexStore builds the store selected by cfg.Index.Backend. The returned
// closer releases any connection it opened.
func OpenIndexStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (index.Store, func(), error) {
	noop := func() {}
	switch cfg.Index.Backend {
	case common.IndexBackendMemory, "":
		return index.NewMemoryStore(), noop, nil

	case common.IndexBackendSQLite:
		db, err := OpenSQLite(cfg.Index.SQLitePath, logger)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewSQLIndexStore(ctx, db, dialect.SQLite, logger)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store, func() { Close(db, nil, logger) }, nil

	case common.IndexBackendPostgres:
		db, pool, err := OpenPostgres(ctx, ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, noop, err
		}
		closer := func() { Close(db, pool, logger) }
		if err := HealthCheck(ctx, db, cfg.Database.DialTimeout, logger); err != nil {
			closer()
			return nil, noop, err
		}
		store, err := NewSQLIndexStore(ctx, db, dialect.Postgres, logger)
		if err != nil {
			closer()
			return nil, noop, err
		}
		return store, closer, nil

	case common.IndexBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Index.RedisAddr})
		store := NewRedisIndexStore(client, cfg.Index.RedisKey, logger)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("redis ping: %w", err)
		}
		return store, func() { _ = client.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
}
