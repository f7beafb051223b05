package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crmweb/internal/domain"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	token_hash TEXT PRIMARY KEY,
	api_token  TEXT NOT NULL,
	user_id    INTEGER NOT NULL,
	username   TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name  TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

// SQLiteStore implements Store using a local SQLite database, so sessions
// survive restarts of the front-end process.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (and initializes) the session database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tests that need a raw configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	return db, nil
}

func (s *SQLiteStore) Create(ctx context.Context, sess *domain.Session) (string, error) {
	const op = "session.create"

	token, err := generateToken()
	if err != nil {
		return "", domain.Internal(err, op, "Failed to generate session token")
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, api_token, user_id, username, first_name, last_name, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		hashToken(token), sess.APIToken, sess.User.ID, sess.User.Username,
		sess.User.FirstName, sess.User.LastName, sess.ExpiresAt, now,
	)
	if err != nil {
		return "", domain.Internal(err, op, "Failed to create session")
	}

	sess.CreatedAt = now
	return token, nil
}

func (s *SQLiteStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	const op = "session.get"

	if len(token) != TokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid session")
	}

	var sess domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT api_token, user_id, username, first_name, last_name, expires_at, created_at
		 FROM sessions WHERE token_hash = ?`,
		hashToken(token),
	).Scan(&sess.APIToken, &sess.User.ID, &sess.User.Username,
		&sess.User.FirstName, &sess.User.LastName, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	if sess.IsExpired() {
		// Lazy cleanup; DeleteExpired handles the rest.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hashToken(token))
		return nil, domain.Unauthorized(op, "Session expired")
	}

	return &sess, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, token string) error {
	const op = "session.delete"

	if token == "" || len(token) != TokenBytes*2 {
		return nil // Idempotent
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, hashToken(token)); err != nil {
		return domain.Internal(err, op, "Failed to delete session")
	}
	return nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int64, error) {
	const op = "session.deleteExpired"

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
