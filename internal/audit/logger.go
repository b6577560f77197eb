// Package audit records security-relevant admin events: logins, logouts, session
// revocations and authorization denials.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ai-prompt-generator/admin/internal/audit/domain"
	auditrepo "ai-prompt-generator/admin/internal/audit/repository"
	"ai-prompt-generator/admin/internal/telemetry"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. Used by the auth middleware and the login service.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, entry domain.AuditLog)
}

// Logger implements AuditLogger. Entries go to the repository synchronously and to
// the emitter asynchronously.
type Logger struct {
	repo        auditrepo.Repository
	emitter     telemetry.EventEmitter
	ipExtractor IPExtractor
	log         *slog.Logger
	nowF        func() time.Time
}

// NewLogger returns an AuditLogger that stores to repo and exports through emitter.
// repo, emitter and ipExtractor may be nil; without an extractor IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, emitter telemetry.EventEmitter, ipExtractor IPExtractor, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{
		repo:        repo,
		emitter:     emitter,
		ipExtractor: ipExtractor,
		log:         log,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent fills ID, IP and CreatedAt when unset and records entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, entry domain.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.IP == "" {
		entry.IP = "unknown"
		if l.ipExtractor != nil {
			if ip := l.ipExtractor(ctx); ip != "" {
				entry.IP = ip
			}
		}
	}
	if entry.Outcome == "" {
		entry.Outcome = domain.OutcomeSuccess
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.nowF()
	}
	l.log.InfoContext(ctx, "audit",
		"action", entry.Action,
		"resource", entry.Resource,
		"outcome", entry.Outcome,
		"user_id", entry.UserID,
		"ip", entry.IP,
	)
	if l.repo != nil {
		if err := l.repo.Create(ctx, &entry); err != nil {
			l.log.WarnContext(ctx, "audit: failed to store event", "action", entry.Action, "resource", entry.Resource, "error", err)
		}
	}
	telemetry.EmitAsync(l.emitter, &entry)
}
