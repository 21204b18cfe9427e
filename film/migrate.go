package film

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/c360/filmgraph/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded migration sources.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations: %v", err))
	}
	return sub
}

// Migrate applies every pending migration to the database at dsn and returns
// the versions applied.
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) ([]int64, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.WrapFatal(err, "Migrator", "Migrate", "open database")
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		return nil, errors.WrapFatal(err, "Migrator", "Migrate", "load migrations")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrStorageQuery, err),
			"Migrator", "Migrate", "apply migrations")
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		logger.Info("Applied migration",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration", r.Duration)
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}
