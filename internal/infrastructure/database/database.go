package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/bilawal506/online-mart/config"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connect opens a new pool for the configured driver. Every caller gets its own
// pool, so the product service opens one for requests and one for the consumer.
func Connect(ctx context.Context, conf config.DatabaseConfig) (*sqlx.DB, error) {
	var system string
	switch conf.Driver {
	case DriverPostgres:
		system = "postgresql"
	case DriverSQLite:
		system = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
	}

	db, err := otelsql.Open(conf.Driver, conf.DSN(), otelsql.WithAttributes(attribute.String("db.system", system)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", conf.Driver, err)
	}

	log.Info().Str("component", "Connect").Str("driver", conf.Driver).Msg("database connected")

	return sqlx.NewDb(db, conf.Driver), nil
}

// Moves the serial sequence forward only, so a concurrent generated id is never handed out twice.
const advanceSequenceQuery = `SELECT setval(pg_get_serial_sequence($1, $2), $3)
	WHERE $3 > COALESCE(pg_sequence_last_value(pg_get_serial_sequence($1, $2)::regclass), 0)`

// AdvanceSequence moves the Postgres sequence behind table.column past id after
// a row was inserted with an explicit id, so later generated ids do not collide
// with it. SQLite's AUTOINCREMENT already tracks the largest id.
func AdvanceSequence(ctx context.Context, db *sqlx.DB, table string, column string, id int64) error {
	if db.DriverName() != DriverPostgres {
		return nil
	}

	if _, err := db.ExecContext(ctx, advanceSequenceQuery, table, column, id); err != nil {
		return fmt.Errorf("advance %s.%s sequence: %w", table, column, err)
	}
	return nil
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		price BIGINT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL,
		username TEXT NOT NULL,
		password TEXT NOT NULL,
		phone_number BIGINT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		CONSTRAINT users_pkey PRIMARY KEY (id),
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_email_key UNIQUE (email),
		CONSTRAINT users_phone_number_key UNIQUE (phone_number)
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		phone_number INTEGER NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'user'
	)`,
}

// EnsureSchema creates the products and users tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	statements := postgresSchema
	if db.DriverName() == DriverSQLite {
		statements = sqliteSchema
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}

// UniqueViolation reports the column whose unique constraint rejected a write.
// Postgres constraints follow the <table>_<column>_key naming, with <table>_pkey
// standing for the id column.
func UniqueViolation(err error) (column string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code != "23505" {
			return "", false
		}

		constraint := pqErr.Constraint
		if strings.HasSuffix(constraint, "_pkey") {
			return "id", true
		}

		constraint = strings.TrimSuffix(constraint, "_key")
		if pqErr.Table != "" {
			constraint = strings.TrimPrefix(constraint, pqErr.Table+"_")
		}
		return constraint, true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code != sqlite3.ErrConstraint {
			return "", false
		}
		if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique && sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return "", false
		}

		// "UNIQUE constraint failed: users.username"
		_, columns, found := strings.Cut(sqliteErr.Error(), "constraint failed: ")
		if !found {
			return "", true
		}
		first, _, _ := strings.Cut(columns, ",")
		_, column, _ = strings.Cut(strings.TrimSpace(first), ".")
		return column, true
	}

	return "", false
}
