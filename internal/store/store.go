// Package store persists expert sessions and their ordered messages in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"vanguardd/pkg/types"
)

// titleMax is the auto-title cutoff: first questions longer than this are
// truncated to titleKeep runes plus a two-rune ellipsis marker.
const (
	titleMax  = 50
	titleKeep = 47
)

// Store manages session and message persistence. Operations are short-lived
// independent statements on a pooled connection; there is no long-lived
// transaction state.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema
// idempotently. Foreign keys are enforced per connection via the DSN pragma.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer. One pooled connection serializes append
	// transactions instead of letting two of them deadlock on a lock upgrade.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_game ON sessions(game, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session. A duplicate identifier is a silent
// no-op: clients may retry creation for the same id.
func (s *Store) CreateSession(ctx context.Context, id, game, title string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, game, title, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, game, title, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.log.Debug().Str("session_id", id).Msg("session already exists")
	}
	return nil
}

// ListSessions returns all sessions for a game, newest first.
func (s *Store) ListSessions(ctx context.Context, game string) ([]types.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game, title, created_at FROM sessions
		WHERE game = ? ORDER BY created_at DESC, id DESC
	`, game)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]types.Session, 0, 8)
	for rows.Next() {
		var sess types.Session
		var created string
		if err := rows.Scan(&sess.ID, &sess.Game, &sess.Title, &created); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// AppendMessage appends one turn to a session and returns the stored row.
// Fails with an unknown-session error when the session does not exist and
// leaves the store untouched in that case.
//
// Auto-titling: when a user message lands as the very first message of its
// session, the session title is rewritten to a truncated form of the content.
// The rule fires exactly once per session and never again.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) (types.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Message{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return types.Message{}, fmt.Errorf("check session: %w", err)
	}
	if exists == 0 {
		return types.Message{}, ErrUnknownSession(sessionID)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)
	`, sessionID, role, content, now.Format(time.RFC3339Nano))
	if err != nil {
		return types.Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Message{}, fmt.Errorf("message id: %w", err)
	}

	if role == types.RoleUser {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
			return types.Message{}, fmt.Errorf("count messages: %w", err)
		}
		if count == 1 {
			if _, err := tx.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, truncateTitle(content), sessionID); err != nil {
				return types.Message{}, fmt.Errorf("update title: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Message{}, fmt.Errorf("commit: %w", err)
	}
	return types.Message{ID: id, SessionID: sessionID, Role: role, Content: content, CreatedAt: now}, nil
}

// ListMessages returns all messages of a session, oldest first. The row id
// equals append order, so ordering is stable even for same-instant appends.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at FROM messages
		WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]types.Message, 0, 16)
	for rows.Next() {
		var m types.Message
		var created string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// truncateTitle shortens a first question into a session title. Operates on
// runes so a multibyte character is never split.
func truncateTitle(content string) string {
	r := []rune(content)
	if len(r) > titleMax {
		return string(r[:titleKeep]) + ".."
	}
	return content
}
