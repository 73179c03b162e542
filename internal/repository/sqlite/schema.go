package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	sql     string
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`

// module.book_id carries no foreign key: orphans stay representable for
// imports, and single-record writes validate the reference instead.
var localStoreMigrations = []migration{
	{1, `
CREATE TABLE books (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL DEFAULT '',
	welcome_content TEXT NOT NULL DEFAULT '',
	bibliography    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE modules (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id         INTEGER NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	content         TEXT NOT NULL DEFAULT '',
	sort_order      INTEGER NOT NULL DEFAULT 0,
	attachment_kind TEXT NOT NULL DEFAULT '',
	attachment_name TEXT NOT NULL DEFAULT '',
	attachment_data TEXT NOT NULL DEFAULT ''
);`},
	{2, `CREATE INDEX idx_modules_book_order ON modules (book_id, sort_order);`},
}

var backupStoreMigrations = []migration{
	{1, `
CREATE TABLE backup_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`},
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = 'schema_version'
	`).Scan(&exists)
	if err != nil || exists == 0 {
		return 0, err
	}

	var version int
	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	return version, err
}

// migrate applies every migration above the current version in one transaction.
func migrate(ctx context.Context, db *sql.DB, migrations []migration) error {
	version, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if len(migrations) == 0 || version >= migrations[len(migrations)-1].version {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply schema v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record schema v%d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}
