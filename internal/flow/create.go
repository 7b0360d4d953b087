package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/streako/streako/internal/models"
)

// beginCreate opens the creation flow at the name step.
func (e *Engine) beginCreate(ctx context.Context, chatID, userID string) error {
	sess := newSession(chatID, userID, models.FlowCreate, models.StepAwaitName)
	if err := e.store.SaveSession(sess); err != nil {
		return fmt.Errorf("failed to start create flow for chat %s: %w", chatID, err)
	}
	return e.notifier.Send(ctx, chatID, msgAskName)
}

// handleCreateName accepts any non-empty text as the habit name.
func (e *Engine) handleCreateName(ctx context.Context, sess *models.DialogSession, text string) error {
	if text == "" {
		return e.abort(ctx, sess, msgAskName)
	}
	sess.Draft.Name = text
	if err := e.advance(sess, models.StepAwaitDescription); err != nil {
		return err
	}
	prompt := fmt.Sprintf("%s sounds like a great habit to cultivate. Would you mind describing it briefly?", text)
	return e.notifier.Send(ctx, sess.ChatID, prompt)
}

// handleCreateDescription accepts any text as the description.
func (e *Engine) handleCreateDescription(ctx context.Context, sess *models.DialogSession, text string) error {
	sess.Draft.Description = text
	if err := e.advance(sess, models.StepAwaitReminderTime); err != nil {
		return err
	}
	prompt := fmt.Sprintf("Got it! %s: %s.\n\nSet a daily reminder! Please key it in an HH:MM format, for e.g 08:00",
		sess.Draft.Name, text)
	return e.notifier.Send(ctx, sess.ChatID, prompt)
}

// handleCreateReminderTime is the terminal step of the creation flow: it
// validates the time-of-day, persists the habit, and registers its daily
// reminder job.
func (e *Engine) handleCreateReminderTime(ctx context.Context, sess *models.DialogSession, text string) error {
	if err := models.ValidateReminderTime(text); err != nil {
		return e.abort(ctx, sess, msgBadTime)
	}

	now := time.Now()
	habit := models.Habit{
		ID:           uuid.NewString(),
		UserID:       sess.UserID,
		Name:         sess.Draft.Name,
		Description:  sess.Draft.Description,
		ReminderTime: text,
		Streak:       0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.AddHabit(habit); err != nil {
		_ = e.endSession(sess.ChatID)
		return fmt.Errorf("failed to persist habit for user %s: %w", sess.UserID, err)
	}

	jobID := models.JobID(habit.ID, habit.UserID)
	if err := e.sched.RegisterDaily(jobID, habit.ReminderTime, habit, sess.ChatID); err != nil {
		_ = e.endSession(sess.ChatID)
		return fmt.Errorf("failed to register reminder for habit %s: %w", habit.ID, err)
	}
	slog.Info("Habit created", "habitID", habit.ID, "userID", habit.UserID, "jobID", jobID, "reminderTime", habit.ReminderTime)

	if err := e.endSession(sess.ChatID); err != nil {
		return err
	}
	e.recorder.RecordFlowCompleted(string(models.FlowCreate))
	return e.notifier.Send(ctx, sess.ChatID, fmt.Sprintf("Have created the following habit!\n\n%s", habit))
}
