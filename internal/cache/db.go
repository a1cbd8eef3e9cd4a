// Package cache keeps a local copy of remote script metadata so listing,
// name resolution, and search work without a round trip.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tklein/scriptpad/internal/script"
)

// ErrNotFound is returned when a script is not in the cache.
var ErrNotFound = errors.New("script not found in cache")

// DB provides database operations for the script cache.
type DB struct {
	db *sql.DB
}

// NewDB opens (or creates) the cache database and initializes the schema.
func NewDB(ctx context.Context, dbPath string) (*DB, error) {
	// WAL mode allows a reader while the sync writer is active
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scripts (
		script_id   TEXT PRIMARY KEY,
		org_id      TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		language    TEXT NOT NULL,
		body        TEXT NOT NULL DEFAULT '',
		synced_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scripts_name ON scripts(name);
	`
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Upsert inserts or refreshes one script.
func (d *DB) Upsert(ctx context.Context, s script.Script) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO scripts (script_id, org_id, name, description, language, body, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(script_id) DO UPDATE SET
			org_id = excluded.org_id,
			name = excluded.name,
			description = excluded.description,
			language = excluded.language,
			body = excluded.body,
			synced_at = excluded.synced_at`,
		s.ID, s.OrgID, s.Name, s.Description, string(s.Language), s.Script, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert script %s: %w", s.ID, err)
	}
	return nil
}

// Delete removes one script from the cache.
func (d *DB) Delete(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM scripts WHERE script_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete script %s: %w", id, err)
	}
	return nil
}

// Get returns one cached script by id.
func (d *DB) Get(ctx context.Context, id string) (*script.Script, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT script_id, org_id, name, description, language, body
		FROM scripts WHERE script_id = ?`, id)
	return scanScript(row)
}

// FindByName returns all cached scripts with the given name. Names are not
// unique server-side, so callers decide how to handle multiple matches.
func (d *DB) FindByName(ctx context.Context, name string) ([]script.Script, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT script_id, org_id, name, description, language, body
		FROM scripts WHERE name = ? ORDER BY script_id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query scripts by name: %w", err)
	}
	defer rows.Close()
	return collectScripts(rows)
}

// List returns all cached scripts ordered by name.
func (d *DB) List(ctx context.Context) ([]script.Script, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT script_id, org_id, name, description, language, body
		FROM scripts ORDER BY name, script_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	defer rows.Close()
	return collectScripts(rows)
}

// ReplaceAll swaps the whole cache for a fresh remote listing in one
// transaction.
func (d *DB) ReplaceAll(ctx context.Context, scripts []script.Script) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scripts`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	now := time.Now().Unix()
	for _, s := range scripts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scripts (script_id, org_id, name, description, language, body, synced_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.OrgID, s.Name, s.Description, string(s.Language), s.Script, now)
		if err != nil {
			return fmt.Errorf("failed to insert script %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache replacement: %w", err)
	}
	return nil
}

func scanScript(row *sql.Row) (*script.Script, error) {
	var s script.Script
	var lang string
	err := row.Scan(&s.ID, &s.OrgID, &s.Name, &s.Description, &lang, &s.Script)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan script: %w", err)
	}
	s.Language = script.Language(lang)
	return &s, nil
}

func collectScripts(rows *sql.Rows) ([]script.Script, error) {
	var scripts []script.Script
	for rows.Next() {
		var s script.Script
		var lang string
		if err := rows.Scan(&s.ID, &s.OrgID, &s.Name, &s.Description, &lang, &s.Script); err != nil {
			return nil, fmt.Errorf("failed to scan script: %w", err)
		}
		s.Language = script.Language(lang)
		scripts = append(scripts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scripts: %w", err)
	}
	return scripts, nil
}
