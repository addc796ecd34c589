// Package defindex keeps a small sqlite read-model of the loaded catalogs
// and validation runs. It is a secondary index for startup diagnostics and
// tooling; the in-memory bundle stays the source of truth. All writes happen
// at load or reload time, never per tick.
package defindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"colonyforge.ai/internal/defs"
	"colonyforge.ai/internal/defs/validate"
)

type SQLiteIndex struct {
	db *sql.DB
}

func Open(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			count INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS validation_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			ok INTEGER NOT NULL,
			error_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS validation_errors (
			run INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL,
			context TEXT,
			PRIMARY KEY (run, seq),
			FOREIGN KEY (run) REFERENCES validation_runs(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_validation_errors_source ON validation_errors(source);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error { return s.db.Close() }

// UpsertCatalogs stores one row per catalog: digest, entry count, and the
// def name list as JSON.
func (s *SQLiteIndex) UpsertCatalogs(b *defs.Bundle) error {
	now := time.Now().UTC().Format(time.RFC3339)
	rows := []struct {
		name   string
		digest string
		count  int
		names  []string
	}{
		{"actions", b.Actions.Digest(), b.Actions.Count(), b.Actions.Names()},
		{"chains", b.Chains.Digest(), b.Chains.Count(), b.Chains.Names()},
		{"worktypes", b.Work.Digest(), b.Work.WorkTypeCount(), b.Work.WorkTypeNames()},
		{"workcategories", b.Work.Digest(), b.Work.CategoryCount(), b.Work.CategoryNames()},
	}
	for _, r := range rows {
		namesJSON, err := json.Marshal(r.names)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(
			`INSERT INTO catalogs(name, digest, count, json, updated_at) VALUES(?,?,?,?,?)
			 ON CONFLICT(name) DO UPDATE SET digest=excluded.digest, count=excluded.count,
			 json=excluded.json, updated_at=excluded.updated_at;`,
			r.name, r.digest, r.count, string(namesJSON), now,
		)
		if err != nil {
			return fmt.Errorf("upsert catalog %s: %w", r.name, err)
		}
	}
	return nil
}

// RecordValidation stores a validation run with its collected errors and
// returns the run id.
func (s *SQLiteIndex) RecordValidation(ok bool, errs []validate.Error) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	okInt := 0
	if ok {
		okInt = 1
	}
	res, err := s.db.Exec(
		`INSERT INTO validation_runs(at, ok, error_count) VALUES(?,?,?);`,
		now, okInt, len(errs),
	)
	if err != nil {
		return 0, err
	}
	run, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, e := range errs {
		if _, err := s.db.Exec(
			`INSERT INTO validation_errors(run, seq, source, message, context) VALUES(?,?,?,?,?);`,
			run, i, e.Source, e.Message, e.Context,
		); err != nil {
			return run, err
		}
	}
	return run, nil
}

// LastValidation returns the most recent run, if any.
func (s *SQLiteIndex) LastValidation() (ok bool, errorCount int, at string, found bool, err error) {
	row := s.db.QueryRow(`SELECT ok, error_count, at FROM validation_runs ORDER BY id DESC LIMIT 1;`)
	var okInt int
	switch err = row.Scan(&okInt, &errorCount, &at); err {
	case nil:
		return okInt == 1, errorCount, at, true, nil
	case sql.ErrNoRows:
		return false, 0, "", false, nil
	default:
		return false, 0, "", false, err
	}
}
