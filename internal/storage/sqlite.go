package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"graffiti/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			archive TEXT,
			created_at TEXT,
			classes INTEGER,
			interfaces INTEGER,
			abstract_classes INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS types (
			fqn TEXT PRIMARY KEY,
			name TEXT,
			package TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS attributes (
			owner TEXT,
			name TEXT,
			kind INTEGER,
			target TEXT,
			page TEXT,
			PRIMARY KEY (owner, name)
		);`,
		`CREATE TABLE IF NOT EXISTS methods (
			owner TEXT,
			ordinal INTEGER,
			signature TEXT,
			visibility TEXT,
			PRIMARY KEY (owner, ordinal)
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			fqn TEXT,
			reason TEXT,
			message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attributes_target ON attributes(target);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot replaces every stored table with the content of snap in a
// single transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"runs", "types", "attributes", "methods", "failures"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	// 1. Run header
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, archive, created_at, classes, interfaces, abstract_classes) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.RunID, snap.Archive, snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		snap.Counts.Classes, snap.Counts.Interfaces, snap.Counts.AbstractClasses,
	); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	// 2. Types with attributes and methods
	typeStmt, err := tx.PrepareContext(ctx, `INSERT INTO types (fqn, name, package) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer typeStmt.Close()

	attrStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attributes (owner, name, kind, target, page) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner, name) DO UPDATE SET kind=excluded.kind, target=excluded.target, page=excluded.page
	`)
	if err != nil {
		return err
	}
	defer attrStmt.Close()

	methodStmt, err := tx.PrepareContext(ctx, `INSERT INTO methods (owner, ordinal, signature, visibility) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer methodStmt.Close()

	for _, n := range snap.Types {
		if n.Kind() != graph.KindResolved {
			continue
		}
		if _, err := typeStmt.ExecContext(ctx, n.FullyQualifiedName, n.Name, n.Package()); err != nil {
			return fmt.Errorf("save type %s: %w", n.FullyQualifiedName, err)
		}
		for _, name := range n.SortedAttributeNames() {
			target := n.Attributes[name]
			if target == nil {
				continue
			}
			if _, err := attrStmt.ExecContext(ctx, n.FullyQualifiedName, name, int(target.Kind()), target.FullyQualifiedName, target.PageName()); err != nil {
				return fmt.Errorf("save attribute %s.%s: %w", n.FullyQualifiedName, name, err)
			}
		}
		for i, m := range n.Methods {
			if _, err := methodStmt.ExecContext(ctx, n.FullyQualifiedName, i, m.Signature, string(m.Visibility)); err != nil {
				return fmt.Errorf("save method of %s: %w", n.FullyQualifiedName, err)
			}
		}
	}

	// 3. Failures
	for _, f := range snap.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO failures (fqn, reason, message) VALUES (?, ?, ?)`,
			f.FullyQualifiedName, string(f.Reason), msg); err != nil {
			return fmt.Errorf("save failure %s: %w", f.FullyQualifiedName, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadType(ctx context.Context, fqn string) (*TypeRecord, error) {
	rec := &TypeRecord{}
	row := s.db.QueryRowContext(ctx, "SELECT fqn, name, package FROM types WHERE fqn = ?", fqn)
	if err := row.Scan(&rec.FullyQualifiedName, &rec.Name, &rec.Package); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", fqn, ErrNotFound)
		}
		return nil, err
	}

	attrRows, err := s.db.QueryContext(ctx, "SELECT name, kind, target, page FROM attributes WHERE owner = ? ORDER BY name", fqn)
	if err != nil {
		return nil, fmt.Errorf("failed to query attributes: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var a AttributeRecord
		if err := attrRows.Scan(&a.Name, &a.Kind, &a.Target, &a.Page); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		rec.Attributes = append(rec.Attributes, a)
	}
	if err := attrRows.Err(); err != nil {
		return nil, err
	}

	methodRows, err := s.db.QueryContext(ctx, "SELECT signature, visibility FROM methods WHERE owner = ? ORDER BY ordinal", fqn)
	if err != nil {
		return nil, fmt.Errorf("failed to query methods: %w", err)
	}
	defer methodRows.Close()
	for methodRows.Next() {
		var m graph.Method
		var vis string
		if err := methodRows.Scan(&m.Signature, &vis); err != nil {
			return nil, fmt.Errorf("failed to scan method: %w", err)
		}
		m.Visibility = graph.Visibility(vis)
		rec.Methods = append(rec.Methods, m)
	}
	return rec, methodRows.Err()
}

func (s *SQLiteStore) ListTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT fqn FROM types ORDER BY fqn")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var fqn string
		if err := rows.Scan(&fqn); err != nil {
			return nil, err
		}
		out = append(out, fqn)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Dependents(ctx context.Context, fqn string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT owner FROM attributes WHERE target = ? AND owner != target ORDER BY owner", fqn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		out = append(out, owner)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*RunRecord, error) {
	rec := &RunRecord{}
	var created string
	row := s.db.QueryRowContext(ctx, "SELECT id, archive, created_at, classes, interfaces, abstract_classes FROM runs LIMIT 1")
	if err := row.Scan(&rec.RunID, &rec.Archive, &created,
		&rec.Counts.Classes, &rec.Counts.Interfaces, &rec.Counts.AbstractClasses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no run stored: %w", ErrNotFound)
		}
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = t
	}

	rows, err := s.db.QueryContext(ctx, "SELECT fqn, reason, message FROM failures ORDER BY fqn")
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f FailureRecord
		var reason string
		if err := rows.Scan(&f.FullyQualifiedName, &reason, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Reason = graph.FailureReason(reason)
		rec.Failures = append(rec.Failures, f)
	}
	return rec, rows.Err()
}
