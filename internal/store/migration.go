package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    folder_name TEXT NOT NULL,
    path TEXT NOT NULL UNIQUE,
    root TEXT NOT NULL,
    year INTEGER NOT NULL,
    full_number TEXT NOT NULL,
    short_number TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    modified_at TIMESTAMP,
    scanned_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_root ON projects(root);
CREATE INDEX IF NOT EXISTS idx_projects_number ON projects(full_number);
CREATE INDEX IF NOT EXISTS idx_projects_year ON projects(year DESC);

CREATE TABLE IF NOT EXISTS project_tags (
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    tag TEXT NOT NULL COLLATE NOCASE,
    PRIMARY KEY (project_id, tag)
);

CREATE TABLE IF NOT EXISTS project_metadata (
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (project_id, key)
);

CREATE TABLE IF NOT EXISTS launches (
    project_id INTEGER PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
    count INTEGER NOT NULL DEFAULT 0,
    last_opened TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS project_scans (
    project_id INTEGER PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    revit_folder TEXT NOT NULL DEFAULT '',
    revit_version TEXT NOT NULL DEFAULT '',
    revit_cloud BOOLEAN NOT NULL DEFAULT 0,
    revit_models TEXT NOT NULL DEFAULT '[]',
    disciplines TEXT NOT NULL DEFAULT '{}',
    counts TEXT NOT NULL DEFAULT '{}',
    scanned_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    rel_path TEXT NOT NULL,
    name TEXT NOT NULL,
    extension TEXT NOT NULL,
    size INTEGER NOT NULL,
    mod_time TIMESTAMP NOT NULL,
    discipline TEXT NOT NULL DEFAULT '',
    revit BOOLEAN NOT NULL DEFAULT 0,
    UNIQUE (project_id, rel_path)
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
    due_at TIMESTAMP,
    done BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS timer_sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER REFERENCES projects(id) ON DELETE SET NULL,
    label TEXT NOT NULL DEFAULT '',
    started_at TIMESTAMP NOT NULL,
    stopped_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_timer_sessions_started ON timer_sessions(started_at DESC);

CREATE TABLE IF NOT EXISTS quick_launch (
    name TEXT PRIMARY KEY COLLATE NOCASE,
    target TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS telemetry_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    device_id TEXT NOT NULL,
    event TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_telemetry_events_created ON telemetry_events(created_at);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "Add pinned flag to projects",
		// pinned column is added by addColumnIfNotExistsTx before this runs
		SQL: `CREATE INDEX IF NOT EXISTS idx_projects_pinned ON projects(pinned);`,
	},
}

// MigrationVersion represents a record of an applied migration
type MigrationVersion struct {
	Version   int
	AppliedAt time.Time
}

// ApplyMigrations applies all pending migrations inside one transaction
func (s *Store) ApplyMigrations(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := ensureSchemaVersionTableTx(ctx, tx); err != nil {
			return fmt.Errorf("ensure schema_version table: %w", err)
		}

		appliedVersions, err := getAppliedVersionsTx(ctx, tx)
		if err != nil {
			return fmt.Errorf("get applied versions: %w", err)
		}
		applied := make(map[int]bool, len(appliedVersions))
		for _, v := range appliedVersions {
			applied[v.Version] = true
		}

		for _, migration := range migrations {
			if applied[migration.Version] {
				continue
			}

			if migration.Version == 2 {
				if err := addColumnIfNotExistsTx(ctx, tx, "projects", "pinned", "BOOLEAN NOT NULL DEFAULT 0"); err != nil {
					return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
				}
			}

			if migration.SQL != "" {
				if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
					return fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
				}
			}

			if err := recordMigrationTx(ctx, tx, migration.Version, s.timestamp()); err != nil {
				return fmt.Errorf("record migration %d: %w", migration.Version, err)
			}
		}
		return nil
	})
}

// GetAppliedVersions retrieves all applied migration versions
func (s *Store) GetAppliedVersions(ctx context.Context) ([]*MigrationVersion, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, applied_at FROM schema_version ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()
	return scanVersions(rows)
}

// GetLatestVersion returns the latest applied migration version
func (s *Store) GetLatestVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("query latest version: %w", err)
	}
	return version, nil
}

func ensureSchemaVersionTableTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}
	return nil
}

func getAppliedVersionsTx(ctx context.Context, tx *sql.Tx) ([]*MigrationVersion, error) {
	rows, err := tx.QueryContext(ctx, `SELECT version, applied_at FROM schema_version ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("query schema versions: %w", err)
	}
	defer rows.Close()
	return scanVersions(rows)
}

func scanVersions(rows *sql.Rows) ([]*MigrationVersion, error) {
	var versions []*MigrationVersion
	for rows.Next() {
		v := &MigrationVersion{}
		if err := rows.Scan(&v.Version, &v.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

func recordMigrationTx(ctx context.Context, tx *sql.Tx, version int, at time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`, version, at)
	if err != nil {
		return fmt.Errorf("insert migration version: %w", err)
	}
	return nil
}

// addColumnIfNotExistsTx adds a column unless PRAGMA table_info already lists it.
// SQLite has no ADD COLUMN IF NOT EXISTS.
func addColumnIfNotExistsTx(ctx context.Context, tx *sql.Tx, table, column, definition string) error {
	exists, err := columnExistsTx(ctx, tx, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	alterSQL := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := tx.ExecContext(ctx, alterSQL); err != nil {
		if strings.Contains(err.Error(), "duplicate column name") {
			return nil
		}
		return fmt.Errorf("alter table: %w", err)
	}
	return nil
}

func columnExistsTx(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scan table info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate table info: %w", err)
	}
	return false, nil
}
