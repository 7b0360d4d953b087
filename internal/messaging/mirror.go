package messaging

import (
	"context"
	"log/slog"
)

// MirrorNotifier delivers through a primary Notifier and sends a copy of
// every message to a fixed secondary target on a second channel (e.g. an
// SMS number watched by an operator). Mirror failures are logged and do not
// affect primary delivery.
type MirrorNotifier struct {
	primary      Notifier
	secondary    Notifier
	mirrorTarget string
}

// NewMirrorNotifier wraps primary so every send is copied to mirrorTarget
// via secondary.
func NewMirrorNotifier(primary, secondary Notifier, mirrorTarget string) *MirrorNotifier {
	return &MirrorNotifier{primary: primary, secondary: secondary, mirrorTarget: mirrorTarget}
}

// Send delivers to the primary target and mirrors a copy.
func (m *MirrorNotifier) Send(ctx context.Context, target string, text string) error {
	err := m.primary.Send(ctx, target, text)
	if mirrorErr := m.secondary.Send(ctx, m.mirrorTarget, text); mirrorErr != nil {
		slog.Warn("Mirror delivery failed", "mirrorTarget", m.mirrorTarget, "error", mirrorErr)
	}
	return err
}
