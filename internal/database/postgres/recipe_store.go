// Package postgres provides the Postgres-backed recipe record store.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recipeharvest/crawler/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecipeStoreConfig controls the Postgres connection pool used for recipe rows.
type RecipeStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecipeStore writes recipe rows into Postgres. Uniqueness of recipe_url is
// enforced by the insert statement itself rather than a table constraint, so
// concurrent workers cannot race a separate existence check.
type RecipeStore struct {
	pool  execCloser
	table string
}

// NewRecipeStore creates a Postgres-backed RecipeStore using the provided config.
func NewRecipeStore(ctx context.Context, cfg RecipeStoreConfig) (*RecipeStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "recipe_data"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecipeStore{pool: pool, table: table}, nil
}

// NewRecipeStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecipeStoreWithPool(pool execCloser, table string) (*RecipeStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "recipe_data"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecipeStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RecipeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureTable creates the recipe table when it does not exist: one column per
// record field, ingredients stored as JSONB.
func (s *RecipeStore) EnsureTable(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("recipe store is not configured")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	recipe_url TEXT NOT NULL,
	uuid TEXT NOT NULL,
	sku TEXT,
	name TEXT,
	description TEXT,
	ingredients JSONB,
	"time" TEXT,
	image_url TEXT,
	image_storage_url TEXT
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// InsertIfAbsent writes the record unless a row with the same recipe_url is
// already present. The guard lives in the statement so the check and the
// insert are a single operation. Existing rows are never updated.
func (s *RecipeStore) InsertIfAbsent(ctx context.Context, rec scraper.RecipeRecord) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("recipe store is not configured")
	}
	if rec.RecipeURL == "" {
		return false, fmt.Errorf("recipe_url is required")
	}
	ingredients := rec.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	ingredientsJSON, err := json.Marshal(ingredients)
	if err != nil {
		return false, fmt.Errorf("marshal ingredients: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	recipe_url,
	uuid,
	sku,
	name,
	description,
	ingredients,
	"time",
	image_url,
	image_storage_url
)
SELECT $1,$2,$3,$4,$5,$6,$7,$8,$9
WHERE NOT EXISTS (SELECT 1 FROM %s WHERE recipe_url = $1)`, s.table, s.table)

	args := []any{
		rec.RecipeURL,
		rec.UUID,
		rec.SKU,
		rec.Name,
		rec.Description,
		ingredientsJSON,
		rec.Time,
		rec.ImageURL,
		rec.ImageStorageURL,
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert recipe: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
