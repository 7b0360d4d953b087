// Package store provides storage backends for Streako.
//
// It defines the Store interface consumed by the flow engine and scheduler,
// with in-memory, SQLite, and PostgreSQL implementations.
package store

import (
	"strings"

	"github.com/streako/streako/internal/models"
)

// Store is the persistence contract for habits, users, and dialog sessions.
//
// GetHabits returns habits in insertion order; index-based flow steps rely
// on that ordering being stable between the listing and the selection.
type Store interface {
	// AddUser registers a user, ignoring duplicates.
	AddUser(userID string) error

	// GetHabits returns all habits for a user, oldest first.
	GetHabits(userID string) ([]models.Habit, error)

	// AddHabit persists a new habit.
	AddHabit(h models.Habit) error

	// UpdateHabitStreak persists a new streak count for a habit.
	UpdateHabitStreak(userID, habitID string, streak int) error

	// DeleteHabit removes a single habit.
	DeleteHabit(userID, habitID string) error

	// ClearHabits removes every habit for a user in one operation.
	ClearHabits(userID string) error

	// GetAllHabits returns every habit across all users, for startup
	// rehydration of the reminder scheduler.
	GetAllHabits() ([]models.Habit, error)

	// SaveSession upserts the dialog session for a chat. A chat has at most
	// one session; saving replaces any prior one.
	SaveSession(s models.DialogSession) error

	// GetSession returns the active session for a chat, or nil if none.
	GetSession(chatID string) (*models.DialogSession, error)

	// DeleteSession removes the session for a chat, if any.
	DeleteSession(chatID string) error

	// Close releases the underlying resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	// DSN is the database connection string. File paths select SQLite,
	// postgres URLs select PostgreSQL.
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}
