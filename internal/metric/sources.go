package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// FileSource reads a local CSV or JSON metric file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Decode(s.Path, data)
}

// Querier is the subset of *pgxpool.Pool the Postgres source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads zip, impressions, conversions and spend columns
// from Table. Table may be schema-qualified.
type PostgresSource struct {
	DB    Querier
	Table string
}

func (s PostgresSource) query() string {
	ident := pgx.Identifier(strings.Split(s.Table, "."))
	return "SELECT zip::text, coalesce(impressions, 0)::float8, coalesce(conversions, 0)::float8, coalesce(spend, 0)::float8 FROM " +
		ident.Sanitize()
}

func (s PostgresSource) Load(ctx context.Context) (Table, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("postgres metric source: no connection")
	}
	rows, err := s.DB.Query(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.Table, err)
	}
	defer rows.Close()
	t := Table{}
	for rows.Next() {
		var zip string
		var r Record
		if err := rows.Scan(&zip, &r.Impressions, &r.Conversions, &r.Spend); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.Table, err)
		}
		t.Add(zip, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Table, err)
	}
	return t, nil
}

// HashGetter is the subset of *redis.Client the Redis source needs.
type HashGetter interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisSource reads one hash whose fields are ZIPs and whose values are
// JSON-encoded records.
type RedisSource struct {
	Client HashGetter
	Key    string
}

func (s RedisSource) Load(ctx context.Context) (Table, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("redis metric source: no client")
	}
	m, err := s.Client.HGetAll(ctx, s.Key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.Key, err)
	}
	t := Table{}
	for zip, raw := range m {
		var r Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode %s[%s]: %w", s.Key, zip, err)
		}
		t.Add(zip, r)
	}
	return t, nil
}
