package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"zipheat/internal/config"
	"zipheat/internal/metric"
)

// OpenMetrics picks the configured metric backend: Postgres first, then
// Redis. A nil source means metrics come from the metrics URI (or nowhere).
func OpenMetrics(ctx context.Context, cfg config.Metrics) (metric.Source, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		src, release, err := OpenPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Table)
		if err != nil {
			return nil, func() {}, err
		}
		return src, release, nil
	case cfg.Redis.Addr != "":
		src, release := OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key)
		return src, release, nil
	}
	return nil, func() {}, nil
}

// OpenPostgres connects a pool and verifies it before returning a metric
// source over table. release closes the pool.
func OpenPostgres(ctx context.Context, databaseURL, table string) (src metric.PostgresSource, release func(), err error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return metric.PostgresSource{}, nil, fmt.Errorf("postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return metric.PostgresSource{}, nil, fmt.Errorf("postgres ping: %w", err)
	}
	return metric.PostgresSource{DB: pool, Table: table}, pool.Close, nil
}

// OpenRedis returns a metric source reading hash key. The client connects
// lazily; the returned func closes it.
func OpenRedis(addr, password string, db int, key string) (metric.RedisSource, func()) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return metric.RedisSource{Client: c, Key: key}, func() { _ = c.Close() }
}
