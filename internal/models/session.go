// Package models defines dialog session structures for Streako flows.
package models

import "time"

// FlowType identifies one of the multi-step conversational flows.
type FlowType string

const (
	// FlowCreate walks the user through creating a habit.
	FlowCreate FlowType = "create"
	// FlowDelete deletes a habit selected by list index.
	FlowDelete FlowType = "delete"
	// FlowUpdateStreak increments the streak of a habit selected by list index.
	FlowUpdateStreak FlowType = "update_streak"
	// FlowClearAll bulk-deletes every habit for the user after confirmation.
	FlowClearAll FlowType = "clear_all"
)

// StepType identifies the current step within a flow.
type StepType string

const (
	// StepAwaitName waits for the habit name (create flow).
	StepAwaitName StepType = "await_name"
	// StepAwaitDescription waits for the habit description (create flow).
	StepAwaitDescription StepType = "await_description"
	// StepAwaitReminderTime waits for the HH:MM reminder time (create flow).
	StepAwaitReminderTime StepType = "await_reminder_time"
	// StepAwaitIndex waits for a 1-indexed list selection (delete and
	// update-streak flows).
	StepAwaitIndex StepType = "await_index"
	// StepAwaitConfirmation waits for the literal "YES" (clear-all flow).
	StepAwaitConfirmation StepType = "await_confirmation"
)

// HabitDraft accumulates the fields collected so far by the create flow.
type HabitDraft struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// DialogSession is the live record of a chat's position within an active
// flow. At most one session exists per chat; starting a new flow silently
// replaces any prior session. A session persists until the flow completes,
// a step validation fails, or a new flow supersedes it.
type DialogSession struct {
	ChatID    string     `json:"chat_id"`
	UserID    string     `json:"user_id"`
	Flow      FlowType   `json:"flow"`
	Step      StepType   `json:"step"`
	Draft     HabitDraft `json:"draft,omitempty"`
	Snapshot  []Habit    `json:"snapshot,omitempty"` // listing snapshot indexed by later steps
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
