// Package db owns the database connection and schema migrations.
package db

import (
	"context"
	"database/sql"
	"embed"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect opens a pgx connection pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect to postgres")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "unable to ping postgres")
	}

	return pool, nil
}

// Migrate applies all pending migrations. direction is "up" or "down".
func Migrate(dsn, direction string) (int, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, errors.Wrap(err, "unable to open migration connection")
	}
	defer conn.Close()

	source := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}

	dir := migrate.Up
	if direction == "down" {
		dir = migrate.Down
	}

	n, err := migrate.Exec(conn, "postgres", source, dir)
	if err != nil {
		return 0, errors.Wrap(err, "unable to apply migrations")
	}

	return n, nil
}
