package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger.
// Useful for development when you want to see the event trace in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}

	if event.DeviceName != "" {
		attrs = append(attrs, slog.String("device_name", event.DeviceName))
	}

	// Add type-specific attributes
	switch {
	case event.Stack != nil:
		attrs = append(attrs,
			slog.String("namespace", event.Stack.Namespace),
			slog.String("kind", event.Stack.Kind),
		)
		if event.Stack.Addr != "" {
			attrs = append(attrs, slog.String("addr", event.Stack.Addr))
		}
		if event.Stack.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Stack.Reason))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Session != nil:
		attrs = append(attrs, slog.String("step", event.Session.Step.String()))
		if event.Session.Peer != "" {
			attrs = append(attrs, slog.String("peer", event.Session.Peer))
		}
	case event.Error != nil:
		attrs = append(attrs, slog.String("error_msg", event.Error.Message))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "capture", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
