package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/internal/persist/migrations"
	"codeberg.org/pyqpapers/portal/pyq/users"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the record in a kv table of a local sqlite file
type SQLiteStore struct {
	db *sql.DB
}

// opens (creating if needed) the database at path and applies migrations
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	return NewSQLiteStore(db), nil
}

// applies the embedded goose migrations to db
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

// wraps an already migrated database
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (?, ?)`, KeyToken, KeyIdentity)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	values := make(map[string][]byte, 2)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}

	token, hasToken := values[KeyToken]
	identity, hasIdentity := values[KeyIdentity]

	if !hasToken && !hasIdentity {
		return nil, nil
	}

	rec, ok := decodeRecord(token, identity, hasToken && hasIdentity)
	if !ok {
		logger.Warn("discarding corrupt persisted session",
			"has_token", hasToken,
			"has_identity", hasIdentity,
		)
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return rec, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.Token == "" {
		return fmt.Errorf("refusing to persist a session without a token")
	}

	identity, err := json.Marshal(rec.Identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	err = withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		if err := upsert(ctx, tx, KeyToken, []byte(rec.Token)); err != nil {
			return err
		}
		return upsert(ctx, tx, KeyIdentity, identity)
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (?, ?)`, KeyToken, KeyIdentity)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	return nil
}

func upsert(ctx context.Context, tx DBTX, key string, value []byte) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	return nil
}

// a record is usable only when both halves are present and the identity parses
func decodeRecord(token, identity []byte, complete bool) (*Record, bool) {
	if !complete || len(token) == 0 {
		return nil, false
	}

	var user users.User
	if err := json.Unmarshal(identity, &user); err != nil || user.ID == "" {
		return nil, false
	}

	return &Record{Token: string(token), Identity: user}, true
}
