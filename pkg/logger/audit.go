package logger

import (
	"context"
	"log/slog"
	"time"
)

// VerificationEvent is one auditable step of the verification flow.
type VerificationEvent struct {
	EventType     string // "code_sent", "code_verified", "session_restored", "sign_out", "admin_save"
	Email         string // already sanitized by the caller
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger records verification flow events in a uniform shape so
// they can be filtered out of the regular request logs.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogVerification logs one verification flow event.
func (al *AuditLogger) LogVerification(event VerificationEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "verification"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.Email != "" {
		attrs = append(attrs, slog.String("email", event.Email))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
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
