package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/todosync/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS counter (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	next INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS completions (
	id        TEXT PRIMARY KEY,
	completed INTEGER NOT NULL DEFAULT 0,
	path      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS path_ids (
	path TEXT NOT NULL,
	seq  INTEGER NOT NULL,
	id   TEXT NOT NULL,
	PRIMARY KEY (path, seq)
);

CREATE TABLE IF NOT EXISTS modtimes (
	path     TEXT PRIMARY KEY,
	mod_time INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS journal (
	seq  INTEGER PRIMARY KEY,
	id   TEXT NOT NULL,
	path TEXT NOT NULL,
	line INTEGER NOT NULL,
	raw  TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps each blob in its own table of a single database file.
// Save replaces all tables inside one transaction.
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the state database and applies the schema.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dsn); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("state: create dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("state: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("state: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Load reads every table into a State.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	st := New()

	var next int64
	err := s.conn.QueryRowContext(ctx, `SELECT next FROM counter WHERE id = 1`).Scan(&next)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("state: load counter: %w", err)
	default:
		st.Counter = uint64(next)
	}

	if err := s.query(ctx, `SELECT id, completed, path FROM completions`, func(rows *sql.Rows) error {
		var id, path string
		var completed bool
		if err := rows.Scan(&id, &completed, &path); err != nil {
			return err
		}
		st.Completions[id] = models.Completion{Completed: completed, Path: path}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("state: load completions: %w", err)
	}

	if err := s.query(ctx, `SELECT path, id FROM path_ids ORDER BY path, seq`, func(rows *sql.Rows) error {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return err
		}
		st.PathIDs[path] = append(st.PathIDs[path], id)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("state: load path ids: %w", err)
	}

	if err := s.query(ctx, `SELECT path, mod_time FROM modtimes`, func(rows *sql.Rows) error {
		var path string
		var ns int64
		if err := rows.Scan(&path, &ns); err != nil {
			return err
		}
		st.ModTimes[path] = time.Unix(0, ns)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("state: load modtimes: %w", err)
	}

	if err := s.query(ctx, `SELECT id, path, line, raw, text FROM journal ORDER BY seq`, func(rows *sql.Rows) error {
		var p models.PendingItem
		if err := rows.Scan(&p.ID, &p.Path, &p.Line, &p.Raw, &p.Text); err != nil {
			return err
		}
		st.Journal = append(st.Journal, p)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("state: load journal: %w", err)
	}

	return st, nil
}

// Save replaces every table with the contents of st.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"completions", "path_ids", "modtimes", "journal"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("state: clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO counter (id, next) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET next = excluded.next
	`, int64(st.Counter)); err != nil {
		return fmt.Errorf("state: save counter: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO completions (id, completed, path) VALUES (?, ?, ?)`, func(stmt *sql.Stmt) error {
		for id, rec := range st.Completions {
			if _, err := stmt.ExecContext(ctx, id, rec.Completed, rec.Path); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("state: save completions: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO path_ids (path, seq, id) VALUES (?, ?, ?)`, func(stmt *sql.Stmt) error {
		for path, ids := range st.PathIDs {
			for i, id := range ids {
				if _, err := stmt.ExecContext(ctx, path, i, id); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("state: save path ids: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO modtimes (path, mod_time) VALUES (?, ?)`, func(stmt *sql.Stmt) error {
		for path, t := range st.ModTimes {
			if _, err := stmt.ExecContext(ctx, path, t.UnixNano()); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("state: save modtimes: %w", err)
	}

	if err := insertAll(ctx, tx, `INSERT INTO journal (seq, id, path, line, raw, text) VALUES (?, ?, ?, ?, ?, ?)`, func(stmt *sql.Stmt) error {
		for i, p := range st.Journal {
			if _, err := stmt.ExecContext(ctx, i, p.ID, p.Path, p.Line, p.Raw, p.Text); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("state: save journal: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) query(ctx context.Context, q string, scan func(*sql.Rows) error) error {
	rows, err := s.conn.QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func insertAll(ctx context.Context, tx *sql.Tx, q string, fill func(*sql.Stmt) error) error {
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return fill(stmt)
}

var _ Store = (*SQLiteStore)(nil)
