package store

import (
	"sync"
	"time"

	"github.com/streako/streako/internal/models"
)

// InMemoryStore keeps all state in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]struct{}
	habits   []models.Habit // insertion order preserved across all users
	sessions map[string]models.DialogSession
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]struct{}),
		sessions: make(map[string]models.DialogSession),
	}
}

// AddUser registers a user, ignoring duplicates.
func (s *InMemoryStore) AddUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = struct{}{}
	return nil
}

// GetHabits returns all habits for a user, oldest first.
func (s *InMemoryStore) GetHabits(userID string) ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Habit
	for _, h := range s.habits {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

// AddHabit persists a new habit.
func (s *InMemoryStore) AddHabit(h models.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits = append(s.habits, h)
	return nil
}

// UpdateHabitStreak persists a new streak count for a habit.
func (s *InMemoryStore) UpdateHabitStreak(userID, habitID string, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.habits {
		if s.habits[i].UserID == userID && s.habits[i].ID == habitID {
			s.habits[i].Streak = streak
			s.habits[i].UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

// DeleteHabit removes a single habit.
func (s *InMemoryStore) DeleteHabit(userID, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.habits {
		if s.habits[i].UserID == userID && s.habits[i].ID == habitID {
			s.habits = append(s.habits[:i], s.habits[i+1:]...)
			return nil
		}
	}
	return nil
}

// ClearHabits removes every habit for a user in one operation.
func (s *InMemoryStore) ClearHabits(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.habits[:0]
	for _, h := range s.habits {
		if h.UserID != userID {
			kept = append(kept, h)
		}
	}
	s.habits = kept
	return nil
}

// GetAllHabits returns every habit across all users.
func (s *InMemoryStore) GetAllHabits() ([]models.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Habit, len(s.habits))
	copy(out, s.habits)
	return out, nil
}

// SaveSession upserts the dialog session for a chat.
func (s *InMemoryStore) SaveSession(sess models.DialogSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ChatID] = sess
	return nil
}

// GetSession returns the active session for a chat, or nil if none.
func (s *InMemoryStore) GetSession(chatID string) (*models.DialogSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

// DeleteSession removes the session for a chat, if any.
func (s *InMemoryStore) DeleteSession(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
