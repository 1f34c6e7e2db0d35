// Package repository is the only place that talks to the persistence
// backend. Every other component receives typed records. Operations are
// best-effort: on a failed read the zero value comes back, a failed write
// is logged and skipped. Callers tolerate eventual inconsistency and treat
// session state as authoritative until the next successful read.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/studiolegale/fascicolo/internal/metrics"
)

type Store struct {
	db     *sql.DB
	driver string
	sql    sq.StatementBuilderType
	logger *slog.Logger
}

type Config struct {
	Driver        string
	DSN           string
	AutoMigrate   bool
	MigrationsDir string
	DialTimeout   time.Duration
}

func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := normalizeDriver(cfg.Driver)
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is empty")
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if cfg.AutoMigrate {
		switch driver {
		case "pgx":
			dir := cfg.MigrationsDir
			if dir == "" {
				dir = "migrations"
			}
			if err := goose.SetDialect("postgres"); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("set goose dialect: %w", err)
			}
			if err := goose.Up(db, dir); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		case "sqlite":
			if err := initSQLiteSchema(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("init sqlite schema: %w", err)
			}
		default:
			_ = db.Close()
			return nil, fmt.Errorf("unsupported driver %q", driver)
		}
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "pgx" {
		placeholder = sq.Dollar
	}

	logger.Info("store.open", "driver", driver)
	return &Store{
		db:     db,
		driver: driver,
		sql:    sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger: logger,
	}, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx", "":
		return "pgx"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// fail records a best-effort failure and keeps going.
func (s *Store) fail(op string, err error) {
	metrics.Global().StoreFailures.Inc()
	s.logger.Warn("store."+op, "error", err)
}

func initSQLiteSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL DEFAULT '',
    studio_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'user',
    account_state TEXT NOT NULL DEFAULT 'pending'
);
CREATE TABLE IF NOT EXISTS cases (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    reference_name TEXT NOT NULL,
    case_type TEXT NOT NULL,
    client_name TEXT NOT NULL DEFAULT '',
    counterparty_name TEXT NOT NULL DEFAULT '',
    technical_notes TEXT NOT NULL DEFAULT '',
    aggressiveness INTEGER NOT NULL DEFAULT 5,
    state TEXT NOT NULL DEFAULT 'open',
    created_at DATETIME NOT NULL,
    generated_documents TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS price_list (
    document_kind TEXT PRIMARY KEY,
    fixed_price REAL NOT NULL DEFAULT 0,
    rate_in_per_1k REAL NOT NULL DEFAULT 0,
    rate_out_per_1k REAL NOT NULL DEFAULT 0,
    complexity_multiplier REAL NOT NULL DEFAULT 1,
    description TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS models (
    model_name TEXT PRIMARY KEY,
    is_active INTEGER NOT NULL DEFAULT 1,
    price_multiplier REAL NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS case_types_config (
    code TEXT PRIMARY KEY,
    display_name TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}
