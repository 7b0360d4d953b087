package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streako/streako/internal/models"
)

// beginIndexed opens the delete or update-streak flow: it lists the user's
// habits, and if any exist, captures the listing snapshot and waits for a
// 1-indexed selection. An empty list ends the flow immediately.
func (e *Engine) beginIndexed(ctx context.Context, chatID, userID string, flowType models.FlowType, prompt string) error {
	snapshot, err := e.listHabits(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if len(snapshot) == 0 {
		return nil
	}

	sess := newSession(chatID, userID, flowType, models.StepAwaitIndex)
	sess.Snapshot = snapshot
	if err := e.store.SaveSession(sess); err != nil {
		return fmt.Errorf("failed to start %s flow for chat %s: %w", flowType, chatID, err)
	}
	return e.notifier.Send(ctx, chatID, prompt)
}

// selectFromSnapshot validates the selection against the session's listing
// snapshot, aborting the flow with the specific error message on failure.
// The returned habit is the snapshot entry at index-1; ok reports whether
// the flow should continue.
func (e *Engine) selectFromSnapshot(ctx context.Context, sess *models.DialogSession, text string) (models.Habit, bool, error) {
	idx, err := models.ParseListIndex(text, len(sess.Snapshot))
	if err != nil {
		msg := msgOutOfRange
		if errors.Is(err, models.ErrIndexNotANumber) {
			msg = msgNotANumber
		}
		return models.Habit{}, false, e.abort(ctx, sess, msg)
	}
	return sess.Snapshot[idx-1], true, nil
}

// handleDeleteIndex is the terminal step of the delete flow: it removes the
// selected habit and prunes its reminder job so no stale job keeps firing
// for a habit that no longer exists.
func (e *Engine) handleDeleteIndex(ctx context.Context, sess *models.DialogSession, text string) error {
	habit, ok, err := e.selectFromSnapshot(ctx, sess, text)
	if !ok {
		return err
	}

	if err := e.store.DeleteHabit(sess.UserID, habit.ID); err != nil {
		_ = e.endSession(sess.ChatID)
		return fmt.Errorf("failed to delete habit %s: %w", habit.ID, err)
	}
	e.sched.Remove(models.JobID(habit.ID, sess.UserID))
	slog.Info("Habit deleted", "habitID", habit.ID, "userID", sess.UserID)

	if err := e.endSession(sess.ChatID); err != nil {
		return err
	}
	e.recorder.RecordFlowCompleted(string(models.FlowDelete))
	return e.notifier.Send(ctx, sess.ChatID, fmt.Sprintf("Have deleted the following habit:\n\n%s", habit))
}

// handleUpdateIndex is the terminal step of the update-streak flow: it
// increments the selected habit's streak by exactly one and persists the
// new value before confirming.
func (e *Engine) handleUpdateIndex(ctx context.Context, sess *models.DialogSession, text string) error {
	habit, ok, err := e.selectFromSnapshot(ctx, sess, text)
	if !ok {
		return err
	}

	habit.Streak++
	if err := e.store.UpdateHabitStreak(sess.UserID, habit.ID, habit.Streak); err != nil {
		_ = e.endSession(sess.ChatID)
		return fmt.Errorf("failed to update streak for habit %s: %w", habit.ID, err)
	}
	slog.Info("Habit streak updated", "habitID", habit.ID, "userID", sess.UserID, "streak", habit.Streak)

	if err := e.endSession(sess.ChatID); err != nil {
		return err
	}
	e.recorder.RecordFlowCompleted(string(models.FlowUpdateStreak))
	return e.notifier.Send(ctx, sess.ChatID, fmt.Sprintf("Have updated the following habit:\n\n%s", habit))
}
