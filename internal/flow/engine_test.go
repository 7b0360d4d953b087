package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/streako/streako/internal/messaging"
	"github.com/streako/streako/internal/models"
	"github.com/streako/streako/internal/scheduler"
	"github.com/streako/streako/internal/store"
)

const (
	testChat = "1001"
	testUser = "1001"
)

type fixture struct {
	engine   *Engine
	store    *store.InMemoryStore
	sched    *scheduler.ReminderScheduler
	notifier *messaging.MockNotifier
}

func newFixture(t *testing.T) *fixture {
	st := store.NewInMemoryStore()
	notifier := messaging.NewMockNotifier()
	sched := scheduler.NewReminderScheduler(notifier, nil)
	t.Cleanup(sched.Stop)
	return &fixture{
		engine:   NewEngine(st, sched, notifier, nil),
		store:    st,
		sched:    sched,
		notifier: notifier,
	}
}

// seedHabit persists a habit and registers its reminder job, the way a
// completed create flow would.
func (f *fixture) seedHabit(t *testing.T, id, name, reminderTime string, streak int) models.Habit {
	now := time.Now()
	h := models.Habit{
		ID:           id,
		UserID:       testUser,
		Name:         name,
		Description:  "desc of " + name,
		ReminderTime: reminderTime,
		Streak:       streak,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.store.AddHabit(h); err != nil {
		t.Fatalf("seed AddHabit failed: %v", err)
	}
	if err := f.sched.RegisterDaily(models.JobID(id, testUser), reminderTime, h, testChat); err != nil {
		t.Fatalf("seed RegisterDaily failed: %v", err)
	}
	return h
}

func (f *fixture) input(t *testing.T, text string) bool {
	handled, err := f.engine.HandleInput(context.Background(), testChat, testUser, text)
	if err != nil {
		t.Fatalf("HandleInput(%q) failed: %v", text, err)
	}
	return handled
}

func (f *fixture) session(t *testing.T) *models.DialogSession {
	sess, err := f.store.GetSession(testChat)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	return sess
}

func TestHandleStart(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.HandleStart(context.Background(), testChat, testUser); err != nil {
		t.Fatalf("HandleStart failed: %v", err)
	}
	if got := f.notifier.LastTo(testChat); got != "Welcome to Streak-o!" {
		t.Errorf("welcome message = %q", got)
	}
}

func TestCreateFlowHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.StartFlow(ctx, testChat, testUser, models.FlowCreate); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	if got := f.notifier.LastTo(testChat); got != msgAskName {
		t.Errorf("name prompt = %q", got)
	}

	if !f.input(t, "Exercise") {
		t.Fatal("name input not handled by session")
	}
	if sess := f.session(t); sess == nil || sess.Step != models.StepAwaitDescription {
		t.Fatalf("expected session at description step, got %+v", sess)
	}

	f.input(t, "Run 5k")
	if sess := f.session(t); sess == nil || sess.Step != models.StepAwaitReminderTime {
		t.Fatalf("expected session at reminder time step, got %+v", sess)
	}
	if sess := f.session(t); sess.Draft.Name != "Exercise" || sess.Draft.Description != "Run 5k" {
		t.Errorf("accumulated draft = %+v", f.session(t).Draft)
	}

	f.input(t, "07:30")

	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 1 {
		t.Fatalf("expected 1 habit persisted, got %d", len(habits))
	}
	h := habits[0]
	if h.Name != "Exercise" || h.Description != "Run 5k" || h.ReminderTime != "07:30" || h.Streak != 0 {
		t.Errorf("persisted habit = %+v", h)
	}

	wantJob := models.JobID(h.ID, testUser)
	jobs := f.sched.JobIDs()
	if len(jobs) != 1 || jobs[0] != wantJob {
		t.Errorf("job set = %v, want [%s]", jobs, wantJob)
	}
	if !strings.HasSuffix(wantJob, "-user-"+testUser) {
		t.Errorf("job identifier %q lacks -user-<id> suffix", wantJob)
	}

	if f.session(t) != nil {
		t.Error("session should end after terminal step")
	}
	if got := f.notifier.LastTo(testChat); !strings.Contains(got, "Have created the following habit!") {
		t.Errorf("confirmation = %q", got)
	}
}

func TestCreateFlowRepeatedCreationReplacesJob(t *testing.T) {
	f := newFixture(t)
	h := f.seedHabit(t, "h1", "Exercise", "07:30", 0)

	// Re-registering the same habit and user replaces rather than duplicates.
	if err := f.sched.RegisterDaily(models.JobID(h.ID, testUser), "09:00", h, testChat); err != nil {
		t.Fatalf("RegisterDaily failed: %v", err)
	}
	if f.sched.Len() != 1 {
		t.Errorf("job count = %d, want 1", f.sched.Len())
	}
}

func TestCreateFlowAbortsOnBadTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.StartFlow(ctx, testChat, testUser, models.FlowCreate); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "Exercise")
	f.input(t, "Run 5k")
	f.input(t, "7:30")

	if got := f.notifier.LastTo(testChat); got != msgBadTime {
		t.Errorf("abort message = %q", got)
	}
	if f.session(t) != nil {
		t.Error("session should be aborted on validation failure")
	}
	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 0 {
		t.Errorf("no habit should be persisted on abort, got %d", len(habits))
	}
	if f.sched.Len() != 0 {
		t.Errorf("no job should be registered on abort, got %d", f.sched.Len())
	}

	// No retry loop: further text is inert until a new flow starts.
	if f.input(t, "07:30") {
		t.Error("input after abort should be inert")
	}
}

func TestDeleteFlowEmptyListEndsImmediately(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowDelete); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	if got := f.notifier.LastTo(testChat); got != msgNoHabits {
		t.Errorf("empty-list message = %q", got)
	}
	if f.session(t) != nil {
		t.Error("no session should exist for an empty list")
	}
}

func TestDeleteFlowOutOfRangeIndex(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 0)
	f.seedHabit(t, "h2", "Read", "21:00", 0)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowDelete); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "3")

	if got := f.notifier.LastTo(testChat); got != msgOutOfRange {
		t.Errorf("out-of-range message = %q", got)
	}
	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 2 {
		t.Errorf("no deletion should occur, got %d habits", len(habits))
	}
	if f.session(t) != nil {
		t.Error("session should be aborted")
	}
}

func TestDeleteFlowNonNumericIndex(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 0)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowDelete); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "first")

	if got := f.notifier.LastTo(testChat); got != msgNotANumber {
		t.Errorf("non-numeric message = %q", got)
	}
	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 1 {
		t.Errorf("no deletion should occur, got %d habits", len(habits))
	}
}

func TestDeleteFlowRemovesHabitAndJob(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 0)
	f.seedHabit(t, "h2", "Read", "21:00", 0)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowDelete); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "2")

	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 1 || habits[0].ID != "h1" {
		t.Fatalf("expected only h1 to remain, got %+v", habits)
	}
	jobs := f.sched.JobIDs()
	if len(jobs) != 1 || jobs[0] != models.JobID("h1", testUser) {
		t.Errorf("job for deleted habit not pruned: %v", jobs)
	}
	if got := f.notifier.LastTo(testChat); !strings.Contains(got, "Have deleted the following habit:") {
		t.Errorf("confirmation = %q", got)
	}
}

func TestUpdateStreakFlowIncrementsByOne(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 4)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowUpdateStreak); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "1")

	habits, _ := f.store.GetHabits(testUser)
	if habits[0].Streak != 5 {
		t.Errorf("streak = %d, want 5", habits[0].Streak)
	}
	if got := f.notifier.LastTo(testChat); !strings.Contains(got, "Have updated the following habit:") || !strings.Contains(got, "Streak: 5") {
		t.Errorf("confirmation = %q", got)
	}
	if f.session(t) != nil {
		t.Error("session should end after terminal step")
	}
}

func TestClearAllFlowDeclines(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 0)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowClearAll); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	if got := f.notifier.LastTo(testChat); got != msgAskClearConfirm {
		t.Errorf("confirmation prompt = %q", got)
	}

	// Anything but the exact literal "YES" declines, including case variants.
	f.input(t, "yes")

	if got := f.notifier.LastTo(testChat); got != msgNotCleared {
		t.Errorf("decline message = %q", got)
	}
	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 1 {
		t.Errorf("habits should remain after decline, got %d", len(habits))
	}
	if f.sched.Len() != 1 {
		t.Errorf("job set should be unchanged after decline, got %d", f.sched.Len())
	}
	if f.session(t) != nil {
		t.Error("session should end after decline")
	}
}

func TestClearAllFlowCommits(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 0)
	f.seedHabit(t, "h2", "Read", "21:00", 0)

	if err := f.engine.StartFlow(context.Background(), testChat, testUser, models.FlowClearAll); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "YES")

	if got := f.notifier.LastTo(testChat); got != msgCleared {
		t.Errorf("cleared message = %q", got)
	}
	habits, _ := f.store.GetHabits(testUser)
	if len(habits) != 0 {
		t.Errorf("habits should be cleared, got %d", len(habits))
	}
	if f.sched.Len() != 0 {
		t.Errorf("reminder jobs should be pruned on clear, got %d", f.sched.Len())
	}
}

func TestInputWithoutSessionIsInert(t *testing.T) {
	f := newFixture(t)
	if f.input(t, "hello") {
		t.Error("input with no active session should not be handled")
	}
	if len(f.notifier.Sent()) != 0 {
		t.Errorf("inert input should produce no messages, got %d", len(f.notifier.Sent()))
	}
}

func TestNewFlowReplacesActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.engine.StartFlow(ctx, testChat, testUser, models.FlowCreate); err != nil {
		t.Fatalf("StartFlow failed: %v", err)
	}
	f.input(t, "Exercise")

	// Starting clear-all mid-create silently replaces the session.
	if err := f.engine.StartFlow(ctx, testChat, testUser, models.FlowClearAll); err != nil {
		t.Fatalf("second StartFlow failed: %v", err)
	}
	sess := f.session(t)
	if sess == nil || sess.Flow != models.FlowClearAll || sess.Step != models.StepAwaitConfirmation {
		t.Fatalf("expected clear-all session, got %+v", sess)
	}

	f.input(t, "whatever")
	if got := f.notifier.LastTo(testChat); got != msgNotCleared {
		t.Errorf("input should be handled by the replacing flow, got %q", got)
	}
}

func TestHandleActionView(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 2)

	if err := f.engine.HandleAction(context.Background(), testChat, testUser, string(models.ActionView)); err != nil {
		t.Fatalf("HandleAction failed: %v", err)
	}
	got := f.notifier.LastTo(testChat)
	if !strings.HasPrefix(got, "#1 ") || !strings.Contains(got, "Exercise") {
		t.Errorf("listing = %q", got)
	}
	if f.session(t) != nil {
		t.Error("view action should not open a session")
	}
}

func TestHandleActionUnknown(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.HandleAction(context.Background(), testChat, testUser, "bogus"); err != nil {
		t.Fatalf("HandleAction failed: %v", err)
	}
	if got := f.notifier.LastTo(testChat); got != msgFunctionMissing {
		t.Errorf("unknown action reply = %q", got)
	}
}

func TestHandleActionStartsFlows(t *testing.T) {
	f := newFixture(t)
	f.seedHabit(t, "h1", "Exercise", "07:30", 0)

	tests := []struct {
		action models.Action
		flow   models.FlowType
	}{
		{models.ActionAdd, models.FlowCreate},
		{models.ActionDelete, models.FlowDelete},
		{models.ActionUpdate, models.FlowUpdateStreak},
	}
	for _, tt := range tests {
		if err := f.engine.HandleAction(context.Background(), testChat, testUser, string(tt.action)); err != nil {
			t.Fatalf("HandleAction(%s) failed: %v", tt.action, err)
		}
		sess := f.session(t)
		if sess == nil || sess.Flow != tt.flow {
			t.Errorf("action %s opened session %+v, want flow %s", tt.action, sess, tt.flow)
		}
	}
}
