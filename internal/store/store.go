// Package store provides SQLite-backed persistence for users, their
// configured assistants, and per-user conversation history.
//
// The pipeline treats users and assistants as read-only; history is
// append-only. Nothing here mutates or deletes existing rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is an SMS subscriber, keyed by phone number. Profile fields feed
// the persona prompt and search localization.
type User struct {
	ID           int64
	PhoneNumber  string
	FirstName    string
	LastName     string
	Title        string
	Email        string
	Description  string
	Location     string
	Languages    string
	Country      string
	Expectations string
}

// Assistant is a user's configured persona. One per user.
type Assistant struct {
	ID             int64
	UserID         int64
	Name           string
	Disposition    string
	Personality    string
	FavoriteAuthor string
	Origin         string
	CreatedAt      time.Time
}

// HistoryRecord is one turn of a user's conversation.
type HistoryRecord struct {
	ID        int64
	UserID    int64
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// Line renders the record for prompt injection.
func (r HistoryRecord) Line() string {
	return fmt.Sprintf("%s: %s: %s", r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Role, r.Content)
}

// Store manages user, assistant, and history persistence.
type Store struct {
	db *sql.DB
}

// New creates a store over the given database handle and ensures the
// schema exists.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phone_number TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			languages TEXT NOT NULL DEFAULT 'en',
			country TEXT NOT NULL DEFAULT 'us',
			expectations TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS assistants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			name TEXT NOT NULL,
			disposition TEXT NOT NULL DEFAULT '',
			personality TEXT NOT NULL DEFAULT '',
			favorite_author TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS user_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			from_field TEXT NOT NULL,
			history TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_history_user
			ON user_history(user_id, created_at);
	`)
	return err
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for administrative tooling and test
// seeding. User and assistant rows are managed outside this service.
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetUserByPhone fetches a user by phone number (without the leading
// "+"). Returns nil, nil when no user exists.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone_number, first_name, last_name, title, email,
		       description, location, languages, country, expectations
		FROM users WHERE phone_number = ?
	`, phone)

	var u User
	err := row.Scan(&u.ID, &u.PhoneNumber, &u.FirstName, &u.LastName, &u.Title,
		&u.Email, &u.Description, &u.Location, &u.Languages, &u.Country, &u.Expectations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetAssistant fetches the assistant configured for a user.
// Returns nil, nil when the user has no assistant.
func (s *Store) GetAssistant(ctx context.Context, userID int64) (*Assistant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, disposition, personality, favorite_author, origin, created_at
		FROM assistants WHERE user_id = ?
	`, userID)

	var a Assistant
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Disposition, &a.Personality,
		&a.FavoriteAuthor, &a.Origin, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assistant: %w", err)
	}
	return &a, nil
}

// AppendHistory durably records one turn. The insert commits before
// return; a nil error means the row is on disk.
func (s *Store) AppendHistory(ctx context.Context, userID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_history (user_id, from_field, history, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// RecentHistory returns up to limit records for a user, newest first.
// Callers that inject history into a prompt must reverse to
// chronological order themselves.
func (s *Store) RecentHistory(ctx context.Context, userID int64, limit int) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, from_field, history, created_at
		FROM user_history WHERE user_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Role, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent history rows: %w", err)
	}
	return records, nil
}
