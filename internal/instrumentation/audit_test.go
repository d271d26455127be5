package instrumentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

const (
	testSubject = "108765432109876543210"
	testTarget  = "acme/widgets#42"
)

func TestActionInvocation_NewAndComplete(t *testing.T) {
	ai := NewActionInvocation("addComment")

	if ai.Function != "addComment" {
		t.Errorf("Function = %q, want %q", ai.Function, "addComment")
	}
	if ai.ID == "" {
		t.Error("ID should be set")
	}
	if ai.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}

	ai.Complete(nil)

	if !ai.Success {
		t.Error("Success should be true")
	}
	if ai.Duration < 0 {
		t.Error("Duration should not be negative")
	}
	if ai.Status() != StatusSuccess {
		t.Errorf("Status() = %q, want %q", ai.Status(), StatusSuccess)
	}
}

func TestActionInvocation_UniqueIDs(t *testing.T) {
	a := NewActionInvocation("logout")
	b := NewActionInvocation("logout")
	if a.ID == b.ID {
		t.Error("expected distinct invocation IDs")
	}
}

func TestActionInvocation_CompleteWithError(t *testing.T) {
	ai := NewActionInvocation("toggleIssueState").Complete(errors.New("permission denied"))

	if ai.Success {
		t.Error("Success should be false")
	}
	if ai.Error != "permission denied" {
		t.Errorf("Error = %q, want %q", ai.Error, "permission denied")
	}
	if ai.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", ai.Status(), StatusError)
	}
}

func TestActionInvocation_LogAttrs(t *testing.T) {
	ai := NewActionInvocation("addComment").
		WithUser(testSubject).
		WithTarget(testTarget).
		Complete(nil)

	find := func(attrs []slog.Attr, key string) (slog.Attr, bool) {
		for _, a := range attrs {
			if a.Key == key {
				return a, true
			}
		}
		return slog.Attr{}, false
	}

	anon := ai.LogAttrs(false)
	if _, ok := find(anon, "user"); ok {
		t.Error("raw user subject must not be logged without PII")
	}
	hash, ok := find(anon, "user_hash")
	if !ok || !strings.HasPrefix(hash.Value.String(), "user:") {
		t.Errorf("expected user_hash attribute, got %v", hash)
	}
	if target, ok := find(anon, "target"); !ok || target.Value.String() != testTarget {
		t.Errorf("expected target %q, got %v", testTarget, target)
	}

	full := ai.LogAttrs(true)
	if user, ok := find(full, "user"); !ok || user.Value.String() != testSubject {
		t.Errorf("expected raw user with PII enabled, got %v", user)
	}
}

func TestAuditLogger_LogAction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	audit := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})

	audit.LogAction(NewActionInvocation("logout").WithUser(testSubject).Complete(nil))
	audit.LogAction(NewActionInvocation("addComment").Complete(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}

	if first["msg"] != "action_executed" || first["level"] != "INFO" {
		t.Errorf("unexpected success line: %v", first)
	}
	if second["msg"] != "action_failed" || second["level"] != "WARN" {
		t.Errorf("unexpected failure line: %v", second)
	}
	if strings.Contains(lines[0], testSubject) {
		t.Error("raw subject leaked into audit log")
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	audit := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	audit.LogAction(NewActionInvocation("logout").Complete(nil))

	var nilAudit *AuditLogger
	nilAudit.LogAction(NewActionInvocation("logout").Complete(nil))

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}
