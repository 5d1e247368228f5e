package modules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/funvibe/bridje/internal/config"
	"github.com/funvibe/bridje/internal/reader"
	"github.com/funvibe/bridje/internal/symbols"
)

const schema = `CREATE TABLE IF NOT EXISTS namespaces (
	name       TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteSource keeps namespace sources in a SQLite database, one row per
// namespace.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLiteSource opens (creating if needed) the store at path.
func OpenSQLiteSource(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising store %s: %w", path, err)
	}
	return &SQLiteSource{db: db}, nil
}

func (s *SQLiteSource) Close() error { return s.db.Close() }

func (s *SQLiteSource) Forms(ns *symbols.Symbol) ([]reader.Form, error) {
	src, err := s.Get(context.Background(), ns.String())
	if err != nil {
		return nil, err
	}
	return reader.ReadString(src, "store:"+ns.String()+config.SourceFileExt)
}

// Get returns the stored source text of a namespace.
func (s *SQLiteSource) Get(ctx context.Context, ns string) (string, error) {
	var src string
	err := s.db.QueryRowContext(ctx, `SELECT source FROM namespaces WHERE name = ?`, ns).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, ns)
	}
	if err != nil {
		return "", fmt.Errorf("loading %s from store: %w", ns, err)
	}
	return src, nil
}

// Put stores the source text of a namespace, replacing any previous
// version. The text must start with a header naming the same namespace.
func (s *SQLiteSource) Put(ctx context.Context, ns string, src string) error {
	forms, err := reader.ReadString(src, ns+config.SourceFileExt)
	if err != nil {
		return err
	}
	if _, err := headerOf(symbols.Intern(ns), forms); err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO namespaces (name, source, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		ns, src)
	if err != nil {
		return fmt.Errorf("storing %s: %w", ns, err)
	}
	return nil
}

// List returns the stored namespace names in order.
func (s *SQLiteSource) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM namespaces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing store: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing store: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
