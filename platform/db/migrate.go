package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies all pending embedded migrations and returns the applied versions.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	sqlDB := SQLDB(pool)
	defer sqlDB.Close()

	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return nil, err
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		applied = append(applied, result.Source.Version)
	}
	return applied, nil
}
