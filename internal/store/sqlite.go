// Package store provides storage backends for Streako.
//
// This file implements a SQLite-backed store for habits, users, and dialog
// sessions.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/streako/streako/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists Streako state in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// AddUser registers a user, ignoring duplicates.
func (s *SQLiteStore) AddUser(userID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO users (id) VALUES (?)`, userID)
	if err != nil {
		slog.Error("SQLiteStore AddUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to insert user %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore AddUser succeeded", "userID", userID)
	return nil
}

// GetHabits returns all habits for a user, oldest first.
func (s *SQLiteStore) GetHabits(userID string) ([]models.Habit, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, description, reminder_time, streak, created_at, updated_at
		 FROM habits WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		slog.Error("SQLiteStore GetHabits query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habits for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanHabits(rows)
}

// AddHabit persists a new habit.
func (s *SQLiteStore) AddHabit(h models.Habit) error {
	_, err := s.db.Exec(
		`INSERT INTO habits (id, user_id, name, description, reminder_time, streak, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Description, h.ReminderTime, h.Streak, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddHabit failed", "error", err, "habitID", h.ID, "userID", h.UserID)
		return fmt.Errorf("failed to insert habit %s: %w", h.ID, err)
	}
	slog.Debug("SQLiteStore AddHabit succeeded", "habitID", h.ID, "userID", h.UserID)
	return nil
}

// UpdateHabitStreak persists a new streak count for a habit.
func (s *SQLiteStore) UpdateHabitStreak(userID, habitID string, streak int) error {
	_, err := s.db.Exec(
		`UPDATE habits SET streak = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND id = ?`,
		streak, userID, habitID)
	if err != nil {
		slog.Error("SQLiteStore UpdateHabitStreak failed", "error", err, "habitID", habitID)
		return fmt.Errorf("failed to update streak for habit %s: %w", habitID, err)
	}
	slog.Debug("SQLiteStore UpdateHabitStreak succeeded", "habitID", habitID, "streak", streak)
	return nil
}

// DeleteHabit removes a single habit.
func (s *SQLiteStore) DeleteHabit(userID, habitID string) error {
	_, err := s.db.Exec(`DELETE FROM habits WHERE user_id = ? AND id = ?`, userID, habitID)
	if err != nil {
		slog.Error("SQLiteStore DeleteHabit failed", "error", err, "habitID", habitID)
		return fmt.Errorf("failed to delete habit %s: %w", habitID, err)
	}
	slog.Debug("SQLiteStore DeleteHabit succeeded", "habitID", habitID, "userID", userID)
	return nil
}

// ClearHabits removes every habit for a user in one operation.
func (s *SQLiteStore) ClearHabits(userID string) error {
	_, err := s.db.Exec(`DELETE FROM habits WHERE user_id = ?`, userID)
	if err != nil {
		slog.Error("SQLiteStore ClearHabits failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to clear habits for %s: %w", userID, err)
	}
	slog.Debug("SQLiteStore ClearHabits succeeded", "userID", userID)
	return nil
}

// GetAllHabits returns every habit across all users.
func (s *SQLiteStore) GetAllHabits() ([]models.Habit, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, description, reminder_time, streak, created_at, updated_at
		 FROM habits ORDER BY created_at, id`)
	if err != nil {
		slog.Error("SQLiteStore GetAllHabits query failed", "error", err)
		return nil, fmt.Errorf("failed to query all habits: %w", err)
	}
	defer rows.Close()
	return scanHabits(rows)
}

// SaveSession upserts the dialog session for a chat.
func (s *SQLiteStore) SaveSession(sess models.DialogSession) error {
	draft, snapshot, err := encodeSessionData(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO dialog_sessions (chat_id, user_id, flow, step, draft, snapshot, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET
		   user_id = excluded.user_id, flow = excluded.flow, step = excluded.step,
		   draft = excluded.draft, snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		sess.ChatID, sess.UserID, string(sess.Flow), string(sess.Step), draft, snapshot, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "chatID", sess.ChatID)
		return fmt.Errorf("failed to save session for chat %s: %w", sess.ChatID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "chatID", sess.ChatID, "flow", sess.Flow, "step", sess.Step)
	return nil
}

// GetSession returns the active session for a chat, or nil if none.
func (s *SQLiteStore) GetSession(chatID string) (*models.DialogSession, error) {
	row := s.db.QueryRow(
		`SELECT chat_id, user_id, flow, step, draft, snapshot, created_at, updated_at
		 FROM dialog_sessions WHERE chat_id = ?`, chatID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to load session for chat %s: %w", chatID, err)
	}
	return sess, nil
}

// DeleteSession removes the session for a chat, if any.
func (s *SQLiteStore) DeleteSession(chatID string) error {
	_, err := s.db.Exec(`DELETE FROM dialog_sessions WHERE chat_id = ?`, chatID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete session for chat %s: %w", chatID, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "chatID", chatID)
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeSessionData(sess models.DialogSession) (draft, snapshot string, err error) {
	d, err := json.Marshal(sess.Draft)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode session draft: %w", err)
	}
	snap := sess.Snapshot
	if snap == nil {
		snap = []models.Habit{}
	}
	sn, err := json.Marshal(snap)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	return string(d), string(sn), nil
}
