// Package flow implements Streako's stateful dialog engine: the per-chat
// session manager and the four conversational flows (create, delete,
// update-streak, clear-all).
//
// Sessions are persisted through the store so dialog position survives
// process restarts and is inspectable outside process memory. A chat has at
// most one active session; starting a new flow silently replaces any prior
// one. Step validation failures abort the session outright and the user
// re-issues the originating command; there is no retry loop.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streako/streako/internal/messaging"
	"github.com/streako/streako/internal/metrics"
	"github.com/streako/streako/internal/models"
	"github.com/streako/streako/internal/scheduler"
	"github.com/streako/streako/internal/store"
)

// User-visible message texts.
const (
	msgWelcome         = "Welcome to Streak-o!"
	msgFunctionMissing = "Function not found"
	msgAskName         = "What is the name of the habit that you hope to cultivate?"
	msgBadTime         = "Format of time is not correct!\n\nTry creating a habit again!"
	msgNoHabits        = "No habits found! Create a habit to start"
	msgAskDeleteIndex  = "Which habit would you like to delete? Key in the corresponding number."
	msgAskUpdateIndex  = "Which habit did you complete today? Key in the corresponding number"
	msgNotANumber      = "This does not seem to be a valid number!\n\nTry again!"
	msgOutOfRange      = "The index provided does not fall within the list!\n\nTry again!"
	msgAskClearConfirm = "Would you like to clear all existing habits? Type 'YES' to clear all habits or 'NO' to cancel this action."
	msgCleared         = "All habits have been cleared!"
	msgNotCleared      = "Habits were not cleared successfully. Try again!"
)

// Engine routes inbound events to command handling or to the active
// session's current step, and performs the terminal side effects
// (repository writes, scheduler registration, outbound messages).
type Engine struct {
	store    store.Store
	sched    *scheduler.ReminderScheduler
	notifier messaging.Notifier
	recorder metrics.Recorder

	// chatLocks serializes session transitions per chat so two concurrent
	// inputs cannot both observe the same current step.
	mu        sync.Mutex
	chatLocks map[string]*sync.Mutex
}

// NewEngine creates a dialog engine wired to its collaborators.
func NewEngine(st store.Store, sched *scheduler.ReminderScheduler, notifier messaging.Notifier, recorder metrics.Recorder) *Engine {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Engine{
		store:     st,
		sched:     sched,
		notifier:  notifier,
		recorder:  recorder,
		chatLocks: make(map[string]*sync.Mutex),
	}
}

// chatLock returns the exclusive-section lock for a chat.
func (e *Engine) chatLock(chatID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		e.chatLocks[chatID] = l
	}
	return l
}

// HandleStart registers the user and sends the welcome message.
func (e *Engine) HandleStart(ctx context.Context, chatID, userID string) error {
	if err := e.store.AddUser(userID); err != nil {
		return fmt.Errorf("start failed for user %s: %w", userID, err)
	}
	slog.Info("Application initialized by user", "userID", userID)
	return e.notifier.Send(ctx, chatID, msgWelcome)
}

// HandleAction dispatches a named action selected from the help menu.
// Unknown action data is reported to the user and logged as a warning.
func (e *Engine) HandleAction(ctx context.Context, chatID, userID string, data string) error {
	action, err := models.ParseAction(data)
	if err != nil {
		slog.Warn("Unknown action received", "data", data, "chatID", chatID)
		e.recorder.RecordUnknownAction()
		return e.notifier.Send(ctx, chatID, msgFunctionMissing)
	}

	switch action {
	case models.ActionView:
		_, err := e.listHabits(ctx, chatID, userID)
		return err
	case models.ActionAdd:
		return e.StartFlow(ctx, chatID, userID, models.FlowCreate)
	case models.ActionDelete:
		return e.StartFlow(ctx, chatID, userID, models.FlowDelete)
	case models.ActionUpdate:
		return e.StartFlow(ctx, chatID, userID, models.FlowUpdateStreak)
	}
	return nil
}

// StartFlow discards any existing session for the chat and begins the given
// flow at its initial step. Flows whose initial step has nothing to act on
// (an empty habit list) end immediately.
func (e *Engine) StartFlow(ctx context.Context, chatID, userID string, flowType models.FlowType) error {
	l := e.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	// Starting a new flow silently replaces any prior session.
	if err := e.store.DeleteSession(chatID); err != nil {
		return fmt.Errorf("failed to supersede session for chat %s: %w", chatID, err)
	}

	slog.Debug("Starting flow", "flow", flowType, "chatID", chatID, "userID", userID)
	switch flowType {
	case models.FlowCreate:
		return e.beginCreate(ctx, chatID, userID)
	case models.FlowDelete:
		return e.beginIndexed(ctx, chatID, userID, models.FlowDelete, msgAskDeleteIndex)
	case models.FlowUpdateStreak:
		return e.beginIndexed(ctx, chatID, userID, models.FlowUpdateStreak, msgAskUpdateIndex)
	case models.FlowClearAll:
		return e.beginClearAll(ctx, chatID, userID)
	default:
		return fmt.Errorf("unknown flow type %q", flowType)
	}
}

// HandleInput routes free text to the active session's current step. It
// reports whether a session consumed the input; with no active session the
// input is inert and ordinary command routing applies.
func (e *Engine) HandleInput(ctx context.Context, chatID, userID string, text string) (bool, error) {
	l := e.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	sess, err := e.store.GetSession(chatID)
	if err != nil {
		return false, fmt.Errorf("failed to load session for chat %s: %w", chatID, err)
	}
	if sess == nil {
		slog.Debug("Input with no active session", "chatID", chatID)
		return false, nil
	}

	slog.Debug("Dispatching session input", "chatID", chatID, "flow", sess.Flow, "step", sess.Step)
	return true, e.dispatch(ctx, sess, text)
}

// dispatch runs the step continuation for the session's current position.
func (e *Engine) dispatch(ctx context.Context, sess *models.DialogSession, text string) error {
	switch sess.Flow {
	case models.FlowCreate:
		switch sess.Step {
		case models.StepAwaitName:
			return e.handleCreateName(ctx, sess, text)
		case models.StepAwaitDescription:
			return e.handleCreateDescription(ctx, sess, text)
		case models.StepAwaitReminderTime:
			return e.handleCreateReminderTime(ctx, sess, text)
		}
	case models.FlowDelete:
		if sess.Step == models.StepAwaitIndex {
			return e.handleDeleteIndex(ctx, sess, text)
		}
	case models.FlowUpdateStreak:
		if sess.Step == models.StepAwaitIndex {
			return e.handleUpdateIndex(ctx, sess, text)
		}
	case models.FlowClearAll:
		if sess.Step == models.StepAwaitConfirmation {
			return e.handleClearConfirmation(ctx, sess, text)
		}
	}

	// A session in an impossible position is discarded rather than wedged.
	slog.Error("Session in unknown state, discarding", "chatID", sess.ChatID, "flow", sess.Flow, "step", sess.Step)
	return e.endSession(sess.ChatID)
}

// advance persists the session at its next step with updated fields.
func (e *Engine) advance(sess *models.DialogSession, step models.StepType) error {
	sess.Step = step
	sess.UpdatedAt = time.Now()
	if err := e.store.SaveSession(*sess); err != nil {
		return fmt.Errorf("failed to advance session for chat %s: %w", sess.ChatID, err)
	}
	return nil
}

// endSession destroys the chat's session record.
func (e *Engine) endSession(chatID string) error {
	if err := e.store.DeleteSession(chatID); err != nil {
		return fmt.Errorf("failed to end session for chat %s: %w", chatID, err)
	}
	return nil
}

// abort informs the user, ends the session, and counts the aborted flow.
// The user must re-issue the originating command; no retry loop exists.
func (e *Engine) abort(ctx context.Context, sess *models.DialogSession, userMsg string) error {
	slog.Debug("Aborting flow on validation failure", "chatID", sess.ChatID, "flow", sess.Flow, "step", sess.Step)
	e.recorder.RecordFlowAborted(string(sess.Flow))
	if err := e.notifier.Send(ctx, sess.ChatID, userMsg); err != nil {
		slog.Error("Failed to send abort message", "chatID", sess.ChatID, "error", err)
	}
	return e.endSession(sess.ChatID)
}

// newSession builds a fresh session record for a chat and flow.
func newSession(chatID, userID string, flowType models.FlowType, step models.StepType) models.DialogSession {
	now := time.Now()
	return models.DialogSession{
		ChatID:    chatID,
		UserID:    userID,
		Flow:      flowType,
		Step:      step,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
