package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"webcamupload/internal/logging"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_captures",
		SQL: `CREATE TABLE IF NOT EXISTS captures (
  id           UUID        PRIMARY KEY,
  filename     TEXT        NOT NULL UNIQUE,
  storage_path TEXT        NOT NULL,
  size         BIGINT      NOT NULL CHECK (size >= 0),
  captured_at  TIMESTAMPTZ NOT NULL,
  recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_captures_captured_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_captures_captured_at ON captures (captured_at DESC);`,
	},
}

// EnsureMigrated checks if the 'captures' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logging.Logger, dbHost string) error {
	log = log.With("database")
	start := time.Now()

	log.Info("db_migration_check", logging.Fields{"status": "starting", "db_host": dbHost})

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass('public.captures') IS NOT NULL").Scan(&exists)
	if err != nil {
		log.Error("db_migration_failed", logging.Fields{
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip", logging.Fields{
			"status":      "success",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed", logging.Fields{
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step", logging.Fields{
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	log.Info("db_migration_success", logging.Fields{
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}
