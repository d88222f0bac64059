// Package store is the row-oriented persistence layer behind the
// harness: a single SQLite database exposed through a small generic
// table API (Select, Execute, Save) plus post-history helpers built on
// top of it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"
)

// Config configures the SQLite database.
type Config struct {
	// Path is the database file path. Required.
	Path string
	// BusyTimeout bounds lock waits. 0 means a 5s default.
	BusyTimeout time.Duration
}

// Store wraps a SQLite database with a generic row API.
// Safe for use from a single process; the schema's unique keys are the
// only cross-process safeguard.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store: path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.Path, err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()))
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Select runs a query and returns every row as a column-to-value map.
// Values carry the driver's native types (string, int64, float64,
// []byte or nil).
func (s *Store) Select(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: select: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: select columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: select rows: %w", err)
	}
	return out, nil
}

// Execute runs a raw statement and returns its result.
func (s *Store) Execute(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("store: execute: %w", err)
	}
	return res, nil
}

// Save upserts rows into table, keyed by primaryKeys. The table and a
// unique index over primaryKeys are created when missing; columns are
// derived from the union of row keys, and columns new to an existing
// table are added. Conflicting rows are updated in place.
func (s *Store) Save(ctx context.Context, primaryKeys []string, rows []map[string]any, table string) error {
	if len(rows) == 0 {
		return nil
	}
	if !validIdent(table) {
		return fmt.Errorf("store: invalid table name %q", table)
	}
	for _, k := range primaryKeys {
		if !validIdent(k) {
			return fmt.Errorf("store: invalid key column %q", k)
		}
	}

	cols, err := columnUnion(rows)
	if err != nil {
		return err
	}
	for _, k := range primaryKeys {
		if !contains(cols, k) {
			return fmt.Errorf("store: key column %q missing from rows", k)
		}
	}

	if err := s.ensureTable(ctx, table, cols, primaryKeys); err != nil {
		return err
	}

	stmt := upsertStatement(table, cols, primaryKeys)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save: %w", err)
	}
	defer tx.Rollback()

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("store: prepare save: %w", err)
	}
	defer prepared.Close()

	for _, row := range rows {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = row[c]
		}
		if _, err := prepared.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("store: save into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save: %w", err)
	}
	return nil
}

// TableExists reports whether a table with the given name exists.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	rows, err := s.Select(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// ensureTable creates the table and its unique key index when missing,
// and adds any columns the existing table lacks.
func (s *Store) ensureTable(ctx context.Context, table string, cols, primaryKeys []string) error {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	if _, err := s.Execute(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)", quote(table), strings.Join(quoted, ", "))); err != nil {
		return err
	}

	existing, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if contains(existing, c) {
			continue
		}
		if _, err := s.Execute(ctx, fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN %s", quote(table), quote(c))); err != nil {
			return err
		}
	}

	if len(primaryKeys) == 0 {
		return nil
	}
	keys := make([]string, len(primaryKeys))
	for i, k := range primaryKeys {
		keys[i] = quote(k)
	}
	_, err = s.Execute(ctx, fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		quote(table+"_pk"), quote(table), strings.Join(keys, ", ")))
	return err
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.Select(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(rows))
	for _, r := range rows {
		if name, ok := r["name"].(string); ok {
			cols = append(cols, name)
		}
	}
	return cols, nil
}

func upsertStatement(table string, cols, primaryKeys []string) string {
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		marks[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if len(primaryKeys) == 0 {
		return stmt
	}

	keys := make([]string, len(primaryKeys))
	for i, k := range primaryKeys {
		keys[i] = quote(k)
	}
	var sets []string
	for _, c := range cols {
		if contains(primaryKeys, c) {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", quote(c), quote(c)))
	}
	if len(sets) == 0 {
		return stmt + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(keys, ", "))
	}
	return stmt + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(keys, ", "), strings.Join(sets, ", "))
}

func columnUnion(rows []map[string]any) ([]string, error) {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !validIdent(k) {
				return nil, fmt.Errorf("store: invalid column name %q", k)
			}
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols, nil
}

func validIdent(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
