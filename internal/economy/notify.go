package economy

import (
	"context"
	"log/slog"
)

// Notifier is the fire-and-forget delivery sink. The engine records
// notification rows transactionally and hands delivery to this interface
// after commit; failures are logged, never propagated into economy ops.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string)
}

// LogNotifier writes notifications to the structured log. It stands in for
// the external delivery service in development and tests.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Notify(ctx context.Context, userID, title, message string) {
	if n.Log == nil {
		return
	}
	n.Log.InfoContext(ctx, "notification", "user_id", userID, "title", title, "message", message)
}
