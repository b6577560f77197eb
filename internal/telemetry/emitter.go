package telemetry

import (
	"context"

	"ai-prompt-generator/admin/internal/audit/domain"
)

// EventEmitter exports an audit entry to an external sink such as OTLP logs.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuditLog) error
}
