package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	username TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_suggestions_user_id ON suggestions(user_id);

CREATE TABLE IF NOT EXISTS subscribers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL
);`

type store struct {
	db *sql.DB
}

func newStore(dbPath string) (*store, error) {
	if dbPath == "" {
		return nil, errors.Wrap(ErrConfig, "empty database path")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating database directory")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrating database")
	}

	return &store{db: db}, nil
}

func (s *store) Close() error {
	return errors.Wrap(s.db.Close(), "closing database")
}

func (s *store) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.PingContext(ctx), "pinging database")
}

func (s *store) AddSuggestion(ctx context.Context, userID int64, username, content string) (Suggestion, error) {
	sug := Suggestion{
		UserID:    userID,
		Username:  username,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestions (user_id, username, content, created_at) VALUES (?, ?, ?, ?)`,
		sug.UserID, sug.Username, sug.Content, sug.CreatedAt,
	)
	if err != nil {
		return sug, errors.Wrap(err, "inserting suggestion")
	}

	if sug.ID, err = res.LastInsertId(); err != nil {
		return sug, errors.Wrap(err, "reading suggestion ID")
	}

	return sug, nil
}

// ListSuggestions returns all suggestions, newest first.
func (s *store) ListSuggestions(ctx context.Context) ([]Suggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, username, content, created_at FROM suggestions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying suggestions")
	}
	defer rows.Close()

	suggestions := []Suggestion{}
	for rows.Next() {
		var sug Suggestion
		if err := rows.Scan(&sug.ID, &sug.UserID, &sug.Username, &sug.Content, &sug.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning suggestion")
		}
		suggestions = append(suggestions, sug)
	}

	return suggestions, errors.Wrap(rows.Err(), "iterating suggestions")
}

// Subscribe stores email once. It reports false when the address was
// already subscribed.
func (s *store) Subscribe(ctx context.Context, email string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers (email, created_at) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`,
		email, time.Now().UTC(),
	)
	if err != nil {
		return false, errors.Wrap(err, "inserting subscriber")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "reading affected rows")
	}

	return n > 0, nil
}
