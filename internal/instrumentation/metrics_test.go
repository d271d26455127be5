package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMetrics(t *testing.T, detailed bool) (*Metrics, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
		DetailedLabels:  detailed,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}
	return metrics, ctx
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	metrics, ctx := newTestMetrics(t, false)

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "POST", "/addon/message", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/actions/addComment", 500, 50*time.Millisecond)
}

func TestMetrics_RecordAPIOperation(t *testing.T) {
	metrics, ctx := newTestMetrics(t, false)

	metrics.RecordAPIOperation(ctx, ServiceGitHub, OperationFetchIssue, StatusSuccess, 200*time.Millisecond)
	metrics.RecordAPIOperation(ctx, ServiceGitHub, OperationCloseIssue, StatusError, 500*time.Millisecond)
	metrics.RecordAPIOperation(ctx, ServiceGmail, OperationGetMessage, StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordOAuth(t *testing.T) {
	metrics, ctx := newTestMetrics(t, false)

	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordOAuthAuth(ctx, OAuthResultFailure)
	metrics.RecordLogout(ctx)
}

func TestMetrics_RecordActionInvocation(t *testing.T) {
	for _, detailed := range []bool{false, true} {
		metrics, ctx := newTestMetrics(t, detailed)

		metrics.RecordActionInvocation(ctx, "toggleIssueState", StatusSuccess, "user:abc", 20*time.Millisecond)
		metrics.RecordActionInvocation(ctx, "notAFunction", StatusError, "", 20*time.Millisecond)
	}
}

func TestMetrics_RecordCardsAndTools(t *testing.T) {
	metrics, ctx := newTestMetrics(t, false)

	metrics.RecordCardRendered(ctx, "issue")
	metrics.RecordToolInvocation(ctx, "github_extract_references", StatusSuccess, time.Millisecond)
}

func TestMetrics_NilAndUninitialized(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	nilMetrics.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	nilMetrics.RecordAPIOperation(ctx, ServiceGitHub, OperationViewer, StatusSuccess, time.Millisecond)
	nilMetrics.RecordActionInvocation(ctx, "logout", StatusSuccess, "", time.Millisecond)
	nilMetrics.RecordCardRendered(ctx, "about")
	nilMetrics.RecordLogout(ctx)

	empty := &Metrics{}
	empty.RecordHTTPRequest(ctx, "GET", "/healthz", 200, time.Millisecond)
	empty.RecordOAuthAuth(ctx, OAuthResultDenied)
	empty.RecordToolInvocation(ctx, "github_render_cards", StatusError, time.Millisecond)
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(nil); got != StatusSuccess {
		t.Errorf("StatusOf(nil) = %q, want %q", got, StatusSuccess)
	}
	if got := StatusOf(errors.New("boom")); got != StatusError {
		t.Errorf("StatusOf(err) = %q, want %q", got, StatusError)
	}
}
