// Package store provides storage backends for Streako.
//
// This file implements a PostgreSQL-backed store for habits, users, and
// dialog sessions.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/streako/streako/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists Streako state in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// AddUser registers a user, ignoring duplicates.
func (s *PostgresStore) AddUser(userID string) error {
	_, err := s.db.Exec(`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		slog.Error("PostgresStore AddUser failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to insert user %s: %w", userID, err)
	}
	slog.Debug("PostgresStore AddUser succeeded", "userID", userID)
	return nil
}

// GetHabits returns all habits for a user, oldest first.
func (s *PostgresStore) GetHabits(userID string) ([]models.Habit, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, description, reminder_time, streak, created_at, updated_at
		 FROM habits WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		slog.Error("PostgresStore GetHabits query failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to query habits for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanHabits(rows)
}

// AddHabit persists a new habit.
func (s *PostgresStore) AddHabit(h models.Habit) error {
	_, err := s.db.Exec(
		`INSERT INTO habits (id, user_id, name, description, reminder_time, streak, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.UserID, h.Name, h.Description, h.ReminderTime, h.Streak, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore AddHabit failed", "error", err, "habitID", h.ID, "userID", h.UserID)
		return fmt.Errorf("failed to insert habit %s: %w", h.ID, err)
	}
	slog.Debug("PostgresStore AddHabit succeeded", "habitID", h.ID, "userID", h.UserID)
	return nil
}

// UpdateHabitStreak persists a new streak count for a habit.
func (s *PostgresStore) UpdateHabitStreak(userID, habitID string, streak int) error {
	_, err := s.db.Exec(
		`UPDATE habits SET streak = $1, updated_at = NOW() WHERE user_id = $2 AND id = $3`,
		streak, userID, habitID)
	if err != nil {
		slog.Error("PostgresStore UpdateHabitStreak failed", "error", err, "habitID", habitID)
		return fmt.Errorf("failed to update streak for habit %s: %w", habitID, err)
	}
	slog.Debug("PostgresStore UpdateHabitStreak succeeded", "habitID", habitID, "streak", streak)
	return nil
}

// DeleteHabit removes a single habit.
func (s *PostgresStore) DeleteHabit(userID, habitID string) error {
	_, err := s.db.Exec(`DELETE FROM habits WHERE user_id = $1 AND id = $2`, userID, habitID)
	if err != nil {
		slog.Error("PostgresStore DeleteHabit failed", "error", err, "habitID", habitID)
		return fmt.Errorf("failed to delete habit %s: %w", habitID, err)
	}
	slog.Debug("PostgresStore DeleteHabit succeeded", "habitID", habitID, "userID", userID)
	return nil
}

// ClearHabits removes every habit for a user in one operation.
func (s *PostgresStore) ClearHabits(userID string) error {
	_, err := s.db.Exec(`DELETE FROM habits WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore ClearHabits failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to clear habits for %s: %w", userID, err)
	}
	slog.Debug("PostgresStore ClearHabits succeeded", "userID", userID)
	return nil
}

// GetAllHabits returns every habit across all users.
func (s *PostgresStore) GetAllHabits() ([]models.Habit, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, description, reminder_time, streak, created_at, updated_at
		 FROM habits ORDER BY created_at, id`)
	if err != nil {
		slog.Error("PostgresStore GetAllHabits query failed", "error", err)
		return nil, fmt.Errorf("failed to query all habits: %w", err)
	}
	defer rows.Close()
	return scanHabits(rows)
}

// SaveSession upserts the dialog session for a chat.
func (s *PostgresStore) SaveSession(sess models.DialogSession) error {
	draft, snapshot, err := encodeSessionData(sess)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO dialog_sessions (chat_id, user_id, flow, step, draft, snapshot, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (chat_id) DO UPDATE SET
		   user_id = EXCLUDED.user_id, flow = EXCLUDED.flow, step = EXCLUDED.step,
		   draft = EXCLUDED.draft, snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`,
		sess.ChatID, sess.UserID, string(sess.Flow), string(sess.Step), draft, snapshot, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "chatID", sess.ChatID)
		return fmt.Errorf("failed to save session for chat %s: %w", sess.ChatID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "chatID", sess.ChatID, "flow", sess.Flow, "step", sess.Step)
	return nil
}

// GetSession returns the active session for a chat, or nil if none.
func (s *PostgresStore) GetSession(chatID string) (*models.DialogSession, error) {
	row := s.db.QueryRow(
		`SELECT chat_id, user_id, flow, step, draft, snapshot, created_at, updated_at
		 FROM dialog_sessions WHERE chat_id = $1`, chatID)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to load session for chat %s: %w", chatID, err)
	}
	return sess, nil
}

// DeleteSession removes the session for a chat, if any.
func (s *PostgresStore) DeleteSession(chatID string) error {
	_, err := s.db.Exec(`DELETE FROM dialog_sessions WHERE chat_id = $1`, chatID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete session for chat %s: %w", chatID, err)
	}
	slog.Debug("PostgresStore DeleteSession succeeded", "chatID", chatID)
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
