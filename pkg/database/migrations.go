package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates full-text search GIN indexes for PostgreSQL.
// These enable efficient free-text search over story descriptions and PM
// review reasoning, used by the dashboard's "find a story like this" search
// without requiring a separate search service.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_stories_description_gin
		ON stories USING gin(to_tsvector('english', description))`)
	if err != nil {
		return fmt.Errorf("failed to create stories description GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_pm_verdicts_reasoning_gin
		ON pm_verdicts USING gin(to_tsvector('english', COALESCE(reasoning, '')))`)
	if err != nil {
		return fmt.Errorf("failed to create pm_verdicts reasoning GIN index: %w", err)
	}

	return nil
}
