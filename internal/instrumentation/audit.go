package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/gitmail/internal/logging"
)

// ActionInvocation captures one card action or MCP tool call for the audit
// trail.
//
// # Privacy Considerations
//
// UserSubject is the stable Google account identifier. General logs only
// carry its hash; the raw value is written only when the audit logger is
// configured with IncludePII.
type ActionInvocation struct {
	// ID correlates the audit line with request logs.
	ID string

	// Function is the card action function or MCP tool name.
	Function string

	UserSubject string

	// Target is the issue or pull request the action touched, e.g. "acme/widgets#42".
	Target string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewActionInvocation creates an invocation with a fresh ID and timing started.
// Call Complete when the action finishes.
func NewActionInvocation(function string) *ActionInvocation {
	return &ActionInvocation{
		ID:        uuid.NewString(),
		Function:  function,
		StartTime: time.Now(),
	}
}

// WithUser sets the user identity.
func (ai *ActionInvocation) WithUser(subject string) *ActionInvocation {
	ai.UserSubject = subject
	return ai
}

// WithTarget sets the issue or pull request the action operates on.
func (ai *ActionInvocation) WithTarget(target string) *ActionInvocation {
	ai.Target = target
	return ai
}

// WithSpanContext copies trace and span IDs from the span in ctx.
func (ai *ActionInvocation) WithSpanContext(ctx context.Context) *ActionInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ai.TraceID = span.SpanContext().TraceID().String()
		ai.SpanID = span.SpanContext().SpanID().String()
	}
	return ai
}

// Complete marks the invocation finished. A nil err means success.
func (ai *ActionInvocation) Complete(err error) *ActionInvocation {
	ai.Duration = time.Since(ai.StartTime)
	ai.Success = err == nil
	if err != nil {
		ai.Error = err.Error()
	}
	return ai
}

// UserHash returns the anonymized user identifier.
func (ai *ActionInvocation) UserHash() string {
	return logging.AnonymizeUser(ai.UserSubject)
}

// Status returns StatusSuccess or StatusError.
func (ai *ActionInvocation) Status() string {
	if ai.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the attributes for an audit line. The raw subject is only
// included when includePII is set.
func (ai *ActionInvocation) LogAttrs(includePII bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("invocation_id", ai.ID),
		slog.String("function", ai.Function),
		slog.String(logging.KeyUserHash, ai.UserHash()),
		slog.Duration(logging.KeyDuration, ai.Duration),
		slog.Bool("success", ai.Success),
	}

	if includePII && ai.UserSubject != "" {
		attrs = append(attrs, slog.String("user", ai.UserSubject))
	}
	if ai.Target != "" {
		attrs = append(attrs, slog.String("target", ai.Target))
	}
	if ai.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ai.TraceID))
	}
	if ai.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ai.SpanID))
	}
	if ai.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ai.Error))
	}

	return attrs
}

// AuditLogger writes one structured line per action invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogAction writes the invocation at INFO on success and WARN on failure.
// Safe to call on a nil AuditLogger.
func (al *AuditLogger) LogAction(ai *ActionInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ai.LogAttrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ai.Success {
		al.logger.Info("action_executed", args...)
	} else {
		al.logger.Warn("action_failed", args...)
	}
}
