package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/streako/streako/internal/models"
)

// scanHabits drains rows of the habits table into a slice.
func scanHabits(rows *sql.Rows) ([]models.Habit, error) {
	var habits []models.Habit
	for rows.Next() {
		var h models.Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.ReminderTime, &h.Streak, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan habit failed: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate habit rows failed: %w", err)
	}
	return habits, nil
}

// scanSession scans a dialog session from a single row. Returns
// sql.ErrNoRows unchanged so callers can map it to "no session".
func scanSession(row *sql.Row) (*models.DialogSession, error) {
	var sess models.DialogSession
	var flow, step, draftJSON, snapshotJSON string
	err := row.Scan(&sess.ChatID, &sess.UserID, &flow, &step, &draftJSON, &snapshotJSON, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sess.Flow = models.FlowType(flow)
	sess.Step = models.StepType(step)
	if err := json.Unmarshal([]byte(draftJSON), &sess.Draft); err != nil {
		return nil, fmt.Errorf("decode session draft failed: %w", err)
	}
	if err := json.Unmarshal([]byte(snapshotJSON), &sess.Snapshot); err != nil {
		return nil, fmt.Errorf("decode session snapshot failed: %w", err)
	}
	if len(sess.Snapshot) == 0 {
		sess.Snapshot = nil
	}
	return &sess, nil
}
