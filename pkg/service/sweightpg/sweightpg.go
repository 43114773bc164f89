// Package sweightpg runs the sweight store and service on PostgreSQL through a
// pgx connection pool.
package sweightpg

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/service/sweight"
)

// Config is sweight.DefaultConfig in the Postgres dialect.
func Config() sweight.Config {
	cfg := sweight.DefaultConfig()
	cfg.Dialect = sweight.DialectPostgres
	return cfg
}

type DB struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Open connects to dsn and creates the table described by cfg when missing.
func Open(ctx context.Context, dsn string, cfg sweight.Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Pool: pool, SQL: stdlib.OpenDBFromPool(pool)}
	if err := EnsureSchema(ctx, db.SQL, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func (d *DB) Close() error {
	err := d.SQL.Close()
	d.Pool.Close()
	return err
}

// NewService builds an item service on d.
func (d *DB) NewService(cfg sweight.Config, logger *slog.Logger) (*sweight.ItemService, error) {
	cfg.Dialect = sweight.DialectPostgres
	return sweight.New(d.SQL, cfg, logger)
}

// EnsureSchema creates the item table and its group index. The seq column
// orders rows that share a weight.
func EnsureSchema(ctx context.Context, db *sql.DB, cfg sweight.Config) error {
	cfg = cfg.WithDefaults()
	cfg.Dialect = sweight.DialectPostgres
	if err := cfg.Validate(); err != nil {
		return err
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]q (
  "seq" BIGSERIAL NOT NULL UNIQUE,
  %[2]q BYTEA PRIMARY KEY,
  %[3]q TEXT,
  %[4]q TEXT NOT NULL DEFAULT '',
  %[5]q BIGINT NOT NULL DEFAULT 0
)`, cfg.Table, cfg.IDColumn, groupColumn(cfg), cfg.NameColumn, cfg.Weight.WeightColumn),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %q ON %q (%q, %q)`,
			cfg.Table+"_group_weight_idx", cfg.Table, groupColumn(cfg), cfg.Weight.WeightColumn),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func groupColumn(cfg sweight.Config) string {
	if cfg.Weight.GroupColumn == "" {
		return sweight.DefaultGroupColumn
	}
	return cfg.Weight.GroupColumn
}
