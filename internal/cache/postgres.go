package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/deusflow/trafficwatch/internal/logger"
)

// PostgresStore keeps refinement verdicts in the refinement_cache table.
// Writes go straight to the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects, pings and makes sure the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("postgres cache connected")
	return ps, nil
}

func (ps *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS refinement_cache (
		content_hash VARCHAR(64) PRIMARY KEY,
		category VARCHAR(64),
		category_group VARCHAR(64),
		traffic_impact TEXT,
		summary TEXT,
		country VARCHAR(100),
		not_relevant BOOLEAN NOT NULL DEFAULT FALSE,
		provider VARCHAR(50),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		use_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_refinement_cache_updated_at ON refinement_cache(updated_at);
	`
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	query := `
		SELECT category, category_group, traffic_impact, summary, country, not_relevant, provider, updated_at
		FROM refinement_cache
		WHERE content_hash = $1
	`

	var e Entry
	var category, group, impact, summary, country, provider sql.NullString
	err := ps.db.QueryRowContext(ctx, query, key).Scan(
		&category, &group, &impact, &summary, &country, &e.NotRelevant, &provider, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get cached verdict: %w", err)
	}

	e.Category = category.String
	e.CategoryGroup = group.String
	e.TrafficImpact = impact.String
	e.Summary = summary.String
	e.Country = country.String
	e.Provider = provider.String

	// Usage accounting only; a failure here does not invalidate the hit.
	if _, err := ps.db.ExecContext(ctx,
		`UPDATE refinement_cache SET use_count = use_count + 1 WHERE content_hash = $1`, key); err != nil {
		logger.Warn("failed to bump cache use count", "error", err)
	}
	return e, true, nil
}

func (ps *PostgresStore) Put(ctx context.Context, key string, e Entry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO refinement_cache
			(content_hash, category, category_group, traffic_impact, summary, country, not_relevant, provider, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (content_hash) DO UPDATE SET
			category = EXCLUDED.category,
			category_group = EXCLUDED.category_group,
			traffic_impact = EXCLUDED.traffic_impact,
			summary = EXCLUDED.summary,
			country = EXCLUDED.country,
			not_relevant = EXCLUDED.not_relevant,
			provider = EXCLUDED.provider,
			updated_at = EXCLUDED.updated_at,
			use_count = refinement_cache.use_count + 1
	`
	_, err := ps.db.ExecContext(ctx, query,
		key, e.Category, e.CategoryGroup, e.TrafficImpact, e.Summary, e.Country, e.NotRelevant, e.Provider, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save cached verdict: %w", err)
	}
	return nil
}

// Flush is a no-op; Put writes through.
func (ps *PostgresStore) Flush(context.Context) error { return nil }

// Stats returns row counts for the monitoring endpoint.
func (ps *PostgresStore) Stats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var total, notRelevant int
	err := ps.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE not_relevant) FROM refinement_cache`).Scan(&total, &notRelevant)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	stats["total_entries"] = total
	stats["not_relevant_entries"] = notRelevant
	return stats, nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
