package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateUp applies every up migration in name order. Statements are written
// to be re-runnable and portable between sqlite3 and postgres.
func MigrateUp(ctx context.Context, db *sql.DB) ([]string, error) {
	return applyMigrations(ctx, db, ".up.sql", false)
}

// MigrateDown applies the down migrations in reverse name order.
func MigrateDown(ctx context.Context, db *sql.DB) ([]string, error) {
	return applyMigrations(ctx, db, ".down.sql", true)
}

func applyMigrations(ctx context.Context, db *sql.DB, suffix string, reverse bool) ([]string, error) {
	entries, err := fs.Glob(migrationFiles, "migrations/*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(entries)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(entries)))
	}
	applied := make([]string, 0, len(entries))
	for _, name := range entries {
		sqlBytes, readErr := migrationFiles.ReadFile(name)
		if readErr != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, readErr)
		}
		if _, execErr := db.ExecContext(ctx, string(sqlBytes)); execErr != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, execErr)
		}
		applied = append(applied, name)
	}
	return applied, nil
}
