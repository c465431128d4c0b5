package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a security-relevant event on the admin surface.
type AuditEvent struct {
	EventType     string
	AdminID       string
	IPAddress     string
	Route         string
	Success       bool
	FailureReason string
}

// AuditLogger emits structured audit entries. Audit state is log-only;
// nothing is persisted.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt logs login, 2FA and reset attempts with the client IP.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.AdminID != "" {
		attrs = append(attrs, slog.String("admin_id", event.AdminID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Route != "" {
		attrs = append(attrs, slog.String("route", event.Route))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogBlockedAccess logs an attempt from a blocked IP.
func (al *AuditLogger) LogBlockedAccess(ip, route string) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "abuse"),
		slog.String("event_type", "blocked_ip_access"),
		slog.String("ip_address", ip),
		slog.String("route", route),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogAccountAction logs credential and 2FA lifecycle changes.
func (al *AuditLogger) LogAccountAction(eventType, adminID, ipAddress string) {
	al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit",
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("admin_id", adminID),
		slog.String("ip_address", ipAddress),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
