// Package scheduler provides the recurring reminder scheduler for Streako.
//
// It owns one daily-firing cron job per (habit, user) pair, keyed by the
// deterministic job identifier "<habitId>-user-<userId>". Registration is an
// idempotent upsert: registering an existing identifier replaces the prior
// job atomically. Jobs fire with the habit payload frozen at registration
// time; the scheduler never re-queries the store at fire time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/streako/streako/internal/messaging"
	"github.com/streako/streako/internal/metrics"
	"github.com/streako/streako/internal/models"
	"github.com/streako/streako/internal/store"
)

// job holds everything captured at registration time for one reminder.
type job struct {
	entryID cron.EntryID
	habit   models.Habit
	target  string
	hour    int
	minute  int
}

// ReminderScheduler schedules daily habit reminders on a cron runner.
type ReminderScheduler struct {
	cron     *cron.Cron
	notifier messaging.Notifier
	recorder metrics.Recorder

	mu   sync.Mutex
	jobs map[string]*job

	// now is swappable for tests.
	now func() time.Time
}

// NewReminderScheduler creates and starts a reminder scheduler that delivers
// through the given notifier.
func NewReminderScheduler(notifier messaging.Notifier, recorder metrics.Recorder) *ReminderScheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) with panic
	// recovery on job functions.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ReminderScheduler{
		cron:     c,
		notifier: notifier,
		recorder: recorder,
		jobs:     make(map[string]*job),
		now:      time.Now,
	}
}

// RegisterDaily upserts a recurring job that fires once per day at the
// habit's reminder time. The payload is the habit snapshot passed here;
// later repository changes do not affect what an already-registered job
// sends. Returns an error only for a malformed time-of-day.
func (s *ReminderScheduler) RegisterDaily(jobID string, timeOfDay string, habit models.Habit, target string) error {
	hour, minute, err := models.ParseReminderTime(timeOfDay)
	if err != nil {
		slog.Error("Scheduler RegisterDaily invalid time", "jobID", jobID, "timeOfDay", timeOfDay, "error", err)
		return fmt.Errorf("cannot register job %s: %w", jobID, err)
	}

	j := &job{habit: habit, target: target, hour: hour, minute: minute}
	expr := fmt.Sprintf("%d %d * * *", minute, hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, exists := s.jobs[jobID]; exists {
		s.cron.Remove(prev.entryID)
		slog.Debug("Scheduler replacing existing job", "jobID", jobID)
	}

	entryID, err := s.cron.AddFunc(expr, func() { s.fire(jobID, j) })
	if err != nil {
		// Unreachable for a validated HH:MM, but surfaced rather than dropped.
		slog.Error("Scheduler cron registration failed", "jobID", jobID, "expr", expr, "error", err)
		return fmt.Errorf("cron registration failed for job %s: %w", jobID, err)
	}
	j.entryID = entryID
	s.jobs[jobID] = j

	slog.Info("Scheduler registered daily reminder", "jobID", jobID, "fireAt", timeOfDay, "target", target)
	return nil
}

// fire delivers the reminder for one occurrence, honoring the misfire grace
// window: a fire running more than MisfireGracePeriod after its scheduled
// time-of-day is skipped without error.
func (s *ReminderScheduler) fire(jobID string, j *job) {
	now := s.now()
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), j.hour, j.minute, 0, 0, now.Location())
	if late := now.Sub(scheduled); late > models.MisfireGracePeriod {
		slog.Warn("Scheduler skipping misfired occurrence", "jobID", jobID, "late", late)
		s.recorder.RecordReminderSkipped()
		return
	}

	text := fmt.Sprintf("Remember to do your habit today!\n\n%s", j.habit)
	if err := s.notifier.Send(context.Background(), j.target, text); err != nil {
		// Delivery failures are terminal for this single fire; no retry.
		slog.Error("Scheduler reminder delivery failed", "jobID", jobID, "target", j.target, "error", err)
		s.recorder.RecordReminderSendFailure()
		return
	}
	s.recorder.RecordReminderFired()
	slog.Debug("Scheduler reminder delivered", "jobID", jobID, "target", j.target)
}

// Remove deletes a job by identifier. Removing an unknown identifier is a
// no-op.
func (s *ReminderScheduler) Remove(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, exists := s.jobs[jobID]; exists {
		s.cron.Remove(j.entryID)
		delete(s.jobs, jobID)
		slog.Debug("Scheduler removed job", "jobID", jobID)
	}
}

// Clear removes every registered job. Run before rehydration so the job set
// is rebuilt purely from durable state.
func (s *ReminderScheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jobID, j := range s.jobs {
		s.cron.Remove(j.entryID)
		delete(s.jobs, jobID)
	}
	slog.Debug("Scheduler cleared all jobs")
}

// RehydrateAll reconstructs the full job set from persisted habits. The
// resulting job identifiers equal what direct registration of each habit
// would produce, independent of order, because registration is keyed purely
// by habit and user identity.
func (s *ReminderScheduler) RehydrateAll(ctx context.Context, st store.Store) error {
	habits, err := st.GetAllHabits()
	if err != nil {
		slog.Error("Scheduler rehydration failed to load habits", "error", err)
		return fmt.Errorf("rehydration failed: %w", err)
	}
	if len(habits) == 0 {
		slog.Info("Scheduler rehydration found no habits")
		return nil
	}

	slog.Info("Scheduler rehydrating reminder jobs", "count", len(habits))
	for _, h := range habits {
		jobID := models.JobID(h.ID, h.UserID)
		// In private chats the chat identifier equals the user identifier,
		// so rehydrated jobs target the owning user directly.
		if err := s.RegisterDaily(jobID, h.ReminderTime, h, h.UserID); err != nil {
			slog.Error("Scheduler rehydration skipped habit with bad reminder time", "habitID", h.ID, "error", err)
		}
	}
	return nil
}

// JobIDs returns the sorted identifiers of all registered jobs.
func (s *ReminderScheduler) JobIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered jobs.
func (s *ReminderScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Stop stops the cron runner and waits for running jobs to finish.
func (s *ReminderScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Scheduler stopped")
}
