package repository

import (
	"context"

	"ai-prompt-generator/admin/internal/audit/domain"
)

// Repository defines storage for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListRecent returns up to limit entries, newest first. Empty userID, action and resource match everything.
	ListRecent(ctx context.Context, limit int, userID, action, resource string) ([]*domain.AuditLog, error)
}
