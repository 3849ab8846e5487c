package resume

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/umms/internal/persistence/sqlite"
)

// migrations are applied in order; append, never edit.
var migrations = []string{
	`CREATE TABLE resume_positions (
		uri         TEXT PRIMARY KEY,
		position_ms INTEGER NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
}

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	DB *sql.DB
}

// NewSqliteStore opens (and migrates) the store at dbPath.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("resume store: create dir: %w", err)
	}
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resume store: %w", err)
	}
	return &SqliteStore{DB: db}, nil
}

func (s *SqliteStore) Put(ctx context.Context, uri string, state *State) error {
	query := `
	INSERT INTO resume_positions (uri, position_ms, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(uri) DO UPDATE SET
		position_ms = excluded.position_ms,
		updated_at = excluded.updated_at
	`
	_, err := s.DB.ExecContext(ctx, query,
		uri, state.Position.Milliseconds(), state.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *SqliteStore) Get(ctx context.Context, uri string) (*State, error) {
	var (
		posMS     int64
		updatedAt string
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT position_ms, updated_at FROM resume_positions WHERE uri = ?`, uri,
	).Scan(&posMS, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state := &State{Position: time.Duration(posMS) * time.Millisecond}
	state.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return state, nil
}

func (s *SqliteStore) Delete(ctx context.Context, uri string) error {
	_, err := s.DB.ExecContext(ctx, "DELETE FROM resume_positions WHERE uri = ?", uri)
	return err
}

// Check runs an integrity check for health reporting.
func (s *SqliteStore) Check(ctx context.Context) error {
	problems, err := sqlite.QuickCheck(ctx, s.DB)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("resume store integrity: %v", problems)
	}
	return nil
}

func (s *SqliteStore) Close() error {
	return s.DB.Close()
}
