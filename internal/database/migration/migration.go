// Package migration creates the wizard session schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_wizard_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS wizard_sessions (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  state      TEXT        NOT NULL,
  snapshot   JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_wizard_sessions_state",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_wizard_sessions_state ON wizard_sessions (state);`,
	},
	{
		Name: "create_index_wizard_sessions_updated_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_wizard_sessions_updated_at ON wizard_sessions (updated_at);`,
	},
}

// EnsureMigrated runs the schema steps unless the wizard_sessions table
// already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger zerolog.Logger, dbHost string) error {
	start := time.Now()
	l := logger.With().Str("component", "database").Str("db_host", dbHost).Logger()

	l.Info().Str("event", "db_migration_check").Msg("checking schema")

	var exists bool
	const query = "SELECT to_regclass('public.wizard_sessions') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		l.Error().Err(err).
			Str("event", "db_migration_failed").
			Dur("duration", time.Since(start)).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		l.Info().
			Str("event", "db_migration_skip").
			Dur("duration", time.Since(start)).
			Msg("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			l.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("migration_step", step.Name).
				Dur("step_duration", time.Since(stepStart)).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		l.Debug().
			Str("event", "db_migration_step").
			Str("migration_step", step.Name).
			Dur("step_duration", time.Since(stepStart)).
			Msg("migration step applied")
	}

	l.Info().
		Str("event", "db_migration_success").
		Int("steps", len(steps)).
		Dur("duration", time.Since(start)).
		Msg("schema migrated")
	return nil
}
