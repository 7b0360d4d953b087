package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streako/streako/internal/models"
)

// clearConfirmationLiteral is the exact text that commits the clear-all
// flow. Anything else, including case variants, declines without error.
const clearConfirmationLiteral = "YES"

// beginClearAll opens the clear-all flow at the confirmation step.
func (e *Engine) beginClearAll(ctx context.Context, chatID, userID string) error {
	sess := newSession(chatID, userID, models.FlowClearAll, models.StepAwaitConfirmation)
	if err := e.store.SaveSession(sess); err != nil {
		return fmt.Errorf("failed to start clear-all flow for chat %s: %w", chatID, err)
	}
	return e.notifier.Send(ctx, chatID, msgAskClearConfirm)
}

// handleClearConfirmation is the terminal step of the clear-all flow. On the
// exact literal "YES" it bulk-deletes the user's habits and prunes their
// reminder jobs; any other input declines and leaves everything untouched.
func (e *Engine) handleClearConfirmation(ctx context.Context, sess *models.DialogSession, text string) error {
	if text != clearConfirmationLiteral {
		slog.Debug("Clear-all declined", "chatID", sess.ChatID, "userID", sess.UserID)
		if err := e.endSession(sess.ChatID); err != nil {
			return err
		}
		return e.notifier.Send(ctx, sess.ChatID, msgNotCleared)
	}

	// Snapshot the habit set before the bulk delete so the reminder jobs
	// can be pruned afterwards.
	habits, err := e.store.GetHabits(sess.UserID)
	if err != nil {
		_ = e.endSession(sess.ChatID)
		return fmt.Errorf("failed to load habits before clear for user %s: %w", sess.UserID, err)
	}
	if err := e.store.ClearHabits(sess.UserID); err != nil {
		_ = e.endSession(sess.ChatID)
		return fmt.Errorf("failed to clear habits for user %s: %w", sess.UserID, err)
	}
	for _, h := range habits {
		e.sched.Remove(models.JobID(h.ID, sess.UserID))
	}
	slog.Info("All habits cleared", "userID", sess.UserID, "count", len(habits))

	if err := e.endSession(sess.ChatID); err != nil {
		return err
	}
	e.recorder.RecordFlowCompleted(string(models.FlowClearAll))
	return e.notifier.Send(ctx, sess.ChatID, msgCleared)
}
