package telemetry

import (
	"context"
	"log/slog"
	"time"

	"ai-prompt-generator/admin/internal/audit/domain"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
)

// emitTimeout bounds one audit export.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration bounds OTel provider shutdown after the HTTP server stops.
// Must be >= emitTimeout so an export started just before shutdown can finish.
const ShutdownDrainDuration = emitTimeout

// EmitAsync exports event on its own goroutine so auth decisions never wait on the collector.
// The export is detached from the request context; a failure is logged and counted, never returned.
// A nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, event *domain.AuditLog) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			metrics.AuditEmitFailuresTotal.WithLabelValues(actionLabel(event.Action)).Inc()
			slog.Warn("audit: export failed",
				"action", event.Action, "resource", event.Resource, "user_id", event.UserID, "error", err)
		}
	}()
}

func actionLabel(action string) string {
	if action == "" {
		return "unknown"
	}
	return action
}
