package observability

import (
	"context"
	"log/slog"

	"github.com/amutnick/Runecast/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "session transition",
				"session_id", e.SessionID, "from", e.From, "to", e.To, "event", e.Event)
		},
		OnCompletionStart: func(ctx context.Context, e *domain.CompletionEvent) {
			logger.DebugContext(ctx, "interpretation started",
				"session_id", e.SessionID, "spread", e.Spread, "runes", e.Runes)
		},
		OnCompletionDone: func(ctx context.Context, e *domain.CompletionEvent) {
			if e.Degraded {
				logger.WarnContext(ctx, "interpretation degraded",
					"session_id", e.SessionID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "interpretation done",
				"session_id", e.SessionID, "duration", e.Duration)
		},
		OnStaleResponse: func(ctx context.Context, e *domain.CompletionEvent) {
			logger.DebugContext(ctx, "stale interpretation dropped", "session_id", e.SessionID)
		},
	}
}

// Combine fans each event out to every non-nil hook, in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnTransition = chain(out.OnTransition, h.OnTransition)
		out.OnCompletionStart = chain(out.OnCompletionStart, h.OnCompletionStart)
		out.OnCompletionDone = chain(out.OnCompletionDone, h.OnCompletionDone)
		out.OnStaleResponse = chain(out.OnStaleResponse, h.OnStaleResponse)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
