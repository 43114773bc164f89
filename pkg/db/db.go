package weightdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pingcap/log"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var ddl string

const (
	LOCAL  = "local"
	MEMORY = "memory"
)

type Config struct {
	// Mode is LOCAL for a file database or MEMORY for a shared-cache in-memory one.
	Mode string
	// Path is the database file for LOCAL, or the database name for MEMORY.
	Path string
	// BusyTimeoutMS is how long SQLite waits on a locked database. 0 means 5000.
	BusyTimeoutMS int
}

// Open opens the sqlite database described by cfg and creates the schema when
// it does not exist yet.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is empty")
	}
	busy := cfg.BusyTimeoutMS
	if busy == 0 {
		busy = 5000
	}

	var dsn string
	switch cfg.Mode {
	case LOCAL, "":
		params := url.Values{}
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
		params.Add("_pragma", "journal_mode(WAL)")
		params.Set("_txlock", "immediate")
		dsn = fmt.Sprintf("file:%s?%s", cfg.Path, params.Encode())
	case MEMORY:
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(%d)", cfg.Path, busy)
	default:
		return nil, fmt.Errorf("unknown database mode %q", cfg.Mode)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Mode != MEMORY {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := CreateLocalTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

var createIndexRe = regexp.MustCompile(`(?i)\bCREATE\s+(UNIQUE\s+)?INDEX\s+`)

// CreateLocalTables runs the embedded schema, skipping objects that exist.
func CreateLocalTables(ctx context.Context, db *sql.DB) error {
	modified := strings.ReplaceAll(ddl, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ")
	modified = createIndexRe.ReplaceAllStringFunc(modified, func(match string) string {
		if strings.Contains(strings.ToUpper(match), "UNIQUE") {
			return "CREATE UNIQUE INDEX IF NOT EXISTS "
		}
		return "CREATE INDEX IF NOT EXISTS "
	})

	for _, stmt := range strings.Split(modified, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				log.Warn("schema object already exists", zap.Error(err))
				continue
			}
			return err
		}
	}
	return nil
}

// TxnRollback is meant to be deferred right after BeginTx; it logs rollback
// failures other than the transaction already being committed.
func TxnRollback(tx *sql.Tx) {
	err := tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Error("rollback failed", zap.Error(err))
	}
}
