package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/streako/streako/internal/models"
)

// listHabits fetches all habits for a user and sends them as a 1-indexed
// list. With no habits it sends the empty-list message and returns a nil
// snapshot, which callers treat as "no further action".
//
// The returned snapshot is not re-fetched by later steps: index selection
// operates on this in-memory copy, so it can go stale if the underlying
// data changes between listing and selection.
func (e *Engine) listHabits(ctx context.Context, chatID, userID string) ([]models.Habit, error) {
	habits, err := e.store.GetHabits(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits for user %s: %w", userID, err)
	}
	if len(habits) == 0 {
		return nil, e.notifier.Send(ctx, chatID, msgNoHabits)
	}

	lines := make([]string, len(habits))
	for i, h := range habits {
		lines[i] = h.ListEntry(i + 1)
	}
	if err := e.notifier.Send(ctx, chatID, strings.Join(lines, "\n")); err != nil {
		return nil, err
	}
	return habits, nil
}
