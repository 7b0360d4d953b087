// Package models defines the core data structures for Streako.
//
// It includes the habit entity, input validation helpers, and the typed
// action set used for dispatching user selections.
package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MisfireGracePeriod is the tolerance window after a reminder's scheduled
// fire time within which a late fire is still honored. Beyond it, that
// occurrence is skipped.
const MisfireGracePeriod = 30 * time.Second

// Error variables for better error handling and testability
var (
	ErrEmptyHabitName      = errors.New("habit name cannot be empty")
	ErrInvalidReminderTime = errors.New("reminder time must be in 24-hour HH:MM format")
	ErrIndexNotANumber     = errors.New("selection is not a valid number")
	ErrIndexOutOfRange     = errors.New("selection does not fall within the list")
	ErrUnknownAction       = errors.New("unknown action")
)

var (
	// Strict 24-hour HH:MM: two-digit hours 00-23, two-digit minutes 00-59.
	reminderTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	listIndexRegex    = regexp.MustCompile(`^\d+$`)
)

// Habit represents a habit a user wants to cultivate, with a daily reminder.
type Habit struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ReminderTime string    `json:"reminder_time"` // 24-hour HH:MM
	Streak       int       `json:"streak"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate checks that the habit satisfies the creation invariants.
func (h *Habit) Validate() error {
	if h.Name == "" {
		return ErrEmptyHabitName
	}
	return ValidateReminderTime(h.ReminderTime)
}

// String renders the habit the way it is echoed back to the user.
func (h Habit) String() string {
	return fmt.Sprintf("%s: %s\nStreak: %d\nDaily reminder at %s", h.Name, h.Description, h.Streak, h.ReminderTime)
}

// ListEntry renders the habit as a 1-indexed list line.
func (h Habit) ListEntry(position int) string {
	return fmt.Sprintf("#%d %s: %s (streak %d, reminder %s)", position, h.Name, h.Description, h.Streak, h.ReminderTime)
}

// JobID computes the deterministic scheduler job identifier for a habit and
// its owning user. Registration under an existing identifier replaces the
// prior job, so this key is what makes registration idempotent.
func JobID(habitID, userID string) string {
	return habitID + "-user-" + userID
}

// ValidateReminderTime checks a 24-hour HH:MM time-of-day string.
// Single-digit hours (e.g. "7:30") are rejected.
func ValidateReminderTime(s string) error {
	if !reminderTimeRegex.MatchString(s) {
		return ErrInvalidReminderTime
	}
	return nil
}

// ParseReminderTime splits a validated HH:MM string into hour and minute.
func ParseReminderTime(s string) (hour, minute int, err error) {
	if err := ValidateReminderTime(s); err != nil {
		return 0, 0, err
	}
	hour, _ = strconv.Atoi(s[:2])
	minute, _ = strconv.Atoi(s[3:])
	return hour, minute, nil
}

// ParseListIndex validates a 1-indexed selection against a list of length n.
// It distinguishes non-numeric input from an out-of-range number so callers
// can report the specific failure.
func ParseListIndex(s string, n int) (int, error) {
	if !listIndexRegex.MatchString(s) {
		return 0, ErrIndexNotANumber
	}
	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrIndexNotANumber
	}
	if idx < 1 || idx > n {
		return 0, ErrIndexOutOfRange
	}
	return idx, nil
}

// Action identifies a user-selectable operation from the help menu.
type Action string

const (
	// ActionView lists all habits for the user.
	ActionView Action = "view"
	// ActionAdd starts the habit creation flow.
	ActionAdd Action = "add"
	// ActionDelete starts the habit deletion flow.
	ActionDelete Action = "delete"
	// ActionUpdate starts the update-streak flow.
	ActionUpdate Action = "update"
)

// Actions lists every action in menu order.
func Actions() []Action {
	return []Action{ActionView, ActionAdd, ActionDelete, ActionUpdate}
}

// Label returns the human-readable menu label for the action.
func (a Action) Label() string {
	switch a {
	case ActionView:
		return "View all habits"
	case ActionAdd:
		return "Add habit"
	case ActionDelete:
		return "Delete habit"
	case ActionUpdate:
		return "Update streak"
	default:
		return string(a)
	}
}

// IsValidAction checks if the given action is supported.
func IsValidAction(a Action) bool {
	switch a {
	case ActionView, ActionAdd, ActionDelete, ActionUpdate:
		return true
	default:
		return false
	}
}

// ParseAction decodes an action received off the wire (e.g. callback data).
// Foreign or stale callback payloads yield ErrUnknownAction.
func ParseAction(data string) (Action, error) {
	a := Action(data)
	if !IsValidAction(a) {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	return a, nil
}
