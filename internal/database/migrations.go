package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// RunMigrations creates the document table: one JSONB document per ticket, keyed
// by its generated id. seq keeps insertion order for unordered listings.
func RunMigrations(ctx context.Context, db *sql.DB, table string) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	slog.Info("Running database migrations...", "table", table)

	quoted := pq.QuoteIdentifier(table)
	migrations := []string{
		fmt.Sprintf(createTicketsTable, quoted),
		fmt.Sprintf(createTicketsDocIndex, pq.QuoteIdentifier(table+"_doc_idx"), quoted),
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS %s (
    id TEXT PRIMARY KEY,
    seq BIGSERIAL NOT NULL,
    doc JSONB NOT NULL DEFAULT '{}'::jsonb
);`

const createTicketsDocIndex = `
CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (doc jsonb_path_ops);`
