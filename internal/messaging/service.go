// Package messaging defines the outbound message delivery abstraction for
// Streako and its non-Telegram backends.
package messaging

import (
	"context"
	"sync"
)

// Notifier delivers a text payload to a chat or user target. Delivery is
// fire-and-forget: the core performs no retries and requires no delivery
// confirmation.
type Notifier interface {
	Send(ctx context.Context, target string, text string) error
}

// SentMessage records one delivery made through MockNotifier.
type SentMessage struct {
	Target string
	Text   string
}

// MockNotifier is a recording Notifier for tests.
type MockNotifier struct {
	mu   sync.Mutex
	sent []SentMessage

	// Err, when set, is returned by every Send.
	Err error
}

// NewMockNotifier creates an empty MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the message and returns Err.
func (m *MockNotifier) Send(ctx context.Context, target string, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentMessage{Target: target, Text: text})
	return m.Err
}

// Sent returns a copy of all recorded messages.
func (m *MockNotifier) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// LastTo returns the most recent message sent to target, or an empty string.
func (m *MockNotifier) LastTo(target string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Target == target {
			return m.sent[i].Text
		}
	}
	return ""
}
