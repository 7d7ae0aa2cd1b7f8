package cursor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists cursors in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the cursor database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cursor database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to cursor database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS read_cursors (
			view_key   TEXT PRIMARY KEY,
			cursor     REAL NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to initialize cursor schema: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(key string) (float64, bool, error) {
	if s == nil || s.db == nil {
		return 0, false, errors.New("cursor store unavailable")
	}

	var value float64
	err := s.db.QueryRowContext(context.Background(),
		`SELECT cursor FROM read_cursors WHERE view_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load cursor %q: %w", key, err)
	}
	return value, true, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(key string, value float64) error {
	if s == nil || s.db == nil {
		return errors.New("cursor store unavailable")
	}

	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO read_cursors (view_key, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(view_key) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save cursor %q: %w", key, err)
	}
	return nil
}
