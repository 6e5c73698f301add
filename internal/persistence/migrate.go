package persistence

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cvintake/internal/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationManager applies the embedded migrations in order, tracking
// them in schema_migrations.
type MigrationManager struct {
	db *DB
}

func NewMigrationManager(db *DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *MigrationManager) Migrate(ctx context.Context) error {
	log := logger.Get()

	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("reading applied migrations: %w", err)
	}
	available, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	pending := 0
	for _, mig := range available {
		if applied[mig.Version] {
			continue
		}
		pending++
		log.Info().Int("version", mig.Version).Str("description", mig.Description).Msg("applying migration")

		tx, err := m.db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", mig.Version, err)
		}
		if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Description, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`, mig.Version, mig.Description); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("recording migration %d: %w", mig.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", mig.Version, err)
		}
	}

	if pending == 0 {
		log.Info().Msg("no pending migrations")
	}
	return nil
}

// Status returns (applied, pending) migration versions.
func (m *MigrationManager) Status(ctx context.Context) ([]int, []int, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, nil, err
	}
	appliedSet, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, nil, err
	}
	available, err := loadMigrations()
	if err != nil {
		return nil, nil, err
	}

	var applied, pending []int
	for _, mig := range available {
		if appliedSet[mig.Version] {
			applied = append(applied, mig.Version)
		} else {
			pending = append(pending, mig.Version)
		}
	}
	return applied, pending, nil
}

func (m *MigrationManager) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (m *MigrationManager) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// loadMigrations parses NNN_description.sql filenames into ordered
// Migration values.
func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, err
	}

	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		base := strings.TrimSuffix(name, ".sql")
		parts := strings.SplitN(base, "_", 2)
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("migration filename %q: version prefix is not numeric", name)
		}
		description := ""
		if len(parts) == 2 {
			description = strings.ReplaceAll(parts[1], "_", " ")
		}
		sqlBytes, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Version: version, Description: description, SQL: string(sqlBytes)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
