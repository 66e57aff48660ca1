package chatstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/go-go-golems/parliament-chat/pkg/conversation"
)

type SQLiteResumeStore struct {
	db *sql.DB
}

var _ ResumeStore = &SQLiteResumeStore{}

func NewSQLiteResumeStore(dsn string) (*SQLiteResumeStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite resume store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteResumeStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteResumeStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteResumeStore) SaveActive(ctx context.Context, id conversation.ID) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite resume store: db is nil")
	}
	raw, ok := id.Get()
	if !ok {
		_, err := s.db.ExecContext(ctx, `DELETE FROM resume_state WHERE key = ?`, activeConversationKey)
		return errors.Wrap(err, "sqlite resume store: clear active conversation")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resume_state (key, value, updated_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at_ms = excluded.updated_at_ms
	`, activeConversationKey, raw, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite resume store: save active conversation")
	}
	return nil
}

func (s *SQLiteResumeStore) ActiveConversation(ctx context.Context) (conversation.ID, error) {
	if s == nil || s.db == nil {
		return conversation.NoID(), errors.New("sqlite resume store: db is nil")
	}
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM resume_state WHERE key = ?`, activeConversationKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && raw == "") {
		return conversation.NoID(), nil
	}
	if err != nil {
		return conversation.NoID(), errors.Wrap(err, "sqlite resume store: read active conversation")
	}
	return conversation.SomeID(raw), nil
}

// SaveSummaries replaces the cached list, keeping the order it was given in.
func (s *SQLiteResumeStore) SaveSummaries(ctx context.Context, summaries []conversation.Summary) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite resume store: db is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite resume store: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_summaries`); err != nil {
		return errors.Wrap(err, "sqlite resume store: clear summaries")
	}
	now := time.Now().UnixMilli()
	for i, sum := range summaries {
		if sum.ConversationID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO conversation_summaries (conv_id, position, first_message, created_at, cached_at_ms)
			VALUES (?, ?, ?, ?, ?)
		`, sum.ConversationID, i, sum.FirstMessage, sum.CreatedAt, now)
		if err != nil {
			return errors.Wrapf(err, "sqlite resume store: insert summary %s", sum.ConversationID)
		}
	}
	return errors.Wrap(tx.Commit(), "sqlite resume store: commit summaries")
}

func (s *SQLiteResumeStore) ListSummaries(ctx context.Context) ([]conversation.Summary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite resume store: db is nil")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT conv_id, first_message, created_at
		FROM conversation_summaries
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite resume store: query summaries")
	}
	defer func() { _ = rows.Close() }()

	var out []conversation.Summary
	for rows.Next() {
		var sum conversation.Summary
		if err := rows.Scan(&sum.ConversationID, &sum.FirstMessage, &sum.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "sqlite resume store: scan summary")
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite resume store: iterate summaries")
	}
	return out, nil
}

func (s *SQLiteResumeStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite resume store: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS resume_state (
		  key TEXT PRIMARY KEY,
		  value TEXT NOT NULL,
		  updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversation_summaries (
		  conv_id TEXT PRIMARY KEY,
		  position INTEGER NOT NULL,
		  first_message TEXT NOT NULL DEFAULT '',
		  created_at TEXT NOT NULL DEFAULT '',
		  cached_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS conversation_summaries_by_position
		  ON conversation_summaries(position);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite resume store: migrate")
		}
	}
	return nil
}

// SQLiteResumeDSNForFile builds a DSN for a database file at path.
func SQLiteResumeDSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite resume store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path), nil
}
