package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect opens a pool for one of the supported drivers: "postgres" (lib/pq),
// "pgx" (pgx stdlib) or "sqlite3".
func Connect(driverName, dsn string) (*sqlx.DB, error) {
	db, err := open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if driverName == "sqlite3" {
		// every new connection to :memory: is a separate database, and sqlite
		// serializes writers anyway
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return db, nil
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect, err := gooseDialect(db.DriverName())
	if err != nil {
		return err
	}
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db.DB, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Open connects and migrates in one step.
func Open(ctx context.Context, driverName, dsn string) (*sqlx.DB, error) {
	db, err := Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driverName, err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func open(driverName, dsn string) (*sqlx.DB, error) {
	if driverName != "sqlite3" {
		return sqlx.Open(driverName, dsn)
	}
	sqlDB, err := sql.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, err
	}
	// keep the public name so sqlx and goose see a plain sqlite3 handle
	return sqlx.NewDb(sqlDB, "sqlite3"), nil
}

func gooseDialect(driverName string) (goose.Dialect, error) {
	switch driverName {
	case "postgres", "pgx":
		return goose.DialectPostgres, nil
	case "sqlite3":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driverName)
	}
}
