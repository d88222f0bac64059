package store

import (
	"context"
	"fmt"

	"github.com/pithecene-io/crier/log"
)

// LegacyRunner is the identity assigned to legacy rows that predate
// per-runner attribution. Watchdog was the only runner in service when
// the data table was current, so unattributed rows belong to it.
const LegacyRunner = "Watchdog"

// Migrate upgrades the legacy data table into the posts table.
// Idempotent: a missing legacy table or an existing posts table means
// there is nothing to do. Any storage failure is returned as-is; the
// caller must not execute runners against a half-migrated schema.
func (s *Store) Migrate(ctx context.Context, logger *log.Logger) error {
	hasLegacy, err := s.TableExists(ctx, TableLegacy)
	if err != nil {
		return fmt.Errorf("migrate: check legacy table: %w", err)
	}
	hasPosts, err := s.TableExists(ctx, TablePosts)
	if err != nil {
		return fmt.Errorf("migrate: check posts table: %w", err)
	}
	if !hasLegacy || hasPosts {
		logger.Info("schema already migrated", map[string]any{
			"legacy_table": hasLegacy,
			"posts_table":  hasPosts,
		})
		return nil
	}

	rows, err := s.Select(ctx,
		fmt.Sprintf(`SELECT date_posted, text, runner FROM %s`, TableLegacy))
	if err != nil {
		return fmt.Errorf("migrate: read legacy rows: %w", err)
	}

	backfilled := 0
	for _, row := range rows {
		if asString(row["runner"]) == "" {
			row["runner"] = LegacyRunner
			backfilled++
		}
	}

	// Establish the posts table even when the legacy table is empty so
	// the next invocation reports already migrated.
	if err := s.ensurePostsTable(ctx); err != nil {
		return fmt.Errorf("migrate: create posts table: %w", err)
	}
	if len(rows) > 0 {
		if err := s.Save(ctx, []string{"date_posted", "runner"}, rows, TablePosts); err != nil {
			return fmt.Errorf("migrate: write posts rows: %w", err)
		}
	}

	logger.Info("schema migrated", map[string]any{
		"rows":       len(rows),
		"backfilled": backfilled,
	})
	return nil
}
