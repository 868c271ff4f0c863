package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	Tenant        string
	UserID        string
	Email         string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(ctx context.Context, event AuditEvent) {
	attrs := al.baseAttrs("auth", event.EventType, event.Tenant)
	attrs = append(attrs, slog.Bool("success", event.Success))

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.log(ctx, event.Success, attrs)
}

// LogPasswordChange logs password change events
func (al *AuditLogger) LogPasswordChange(ctx context.Context, tenant, userID, ipAddress string, success bool) {
	attrs := al.baseAttrs("password", "password_change", tenant)
	attrs = append(attrs,
		slog.Bool("success", success),
		slog.String("user_id", userID),
	)

	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}

	al.log(ctx, success, attrs)
}

// LogMigration logs a user's transition to an external identity provider
func (al *AuditLogger) LogMigration(ctx context.Context, tenant, userID, providerName string, alreadyMigrated bool) {
	attrs := al.baseAttrs("migration", "user_migrated", tenant)
	attrs = append(attrs,
		slog.String("user_id", userID),
		slog.String("provider_name", providerName),
		slog.Bool("already_migrated", alreadyMigrated),
	)

	al.log(ctx, true, attrs)
}

// LogAccountAction logs general account actions
func (al *AuditLogger) LogAccountAction(ctx context.Context, eventType, tenant, userID string, metadata map[string]string) {
	attrs := al.baseAttrs("account", eventType, tenant)
	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.log(ctx, true, attrs)
}

func (al *AuditLogger) baseAttrs(auditType, eventType, tenant string) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if tenant != "" {
		attrs = append(attrs, slog.String("tenant", tenant))
	}
	return attrs
}

func (al *AuditLogger) log(ctx context.Context, success bool, attrs []slog.Attr) {
	if success {
		al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
	}
}
