// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for gitmail.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: add-on endpoints by
//     method, route template and status
//   - upstream_api_operations_total, upstream_api_operation_duration_seconds:
//     GitHub and Gmail calls by service, operation and status
//   - card_action_invocations_total, card_action_duration_seconds: card
//     actions by function and status
//   - cards_rendered_total: cards by kind
//   - oauth_auth_total, oauth_logout_total: GitHub account connects and
//     sign-outs
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: MCP tools
//
// Request paths and function names are folded with PathLabel and
// FunctionLabel so that arbitrary URLs cannot create new series.
//
// # Tracing
//
// Spans are created for card actions (action.<function>), MCP tools
// (tool.<name>) and upstream calls (github.<operation>, gmail.<operation>).
//
// # Configuration
//
// LoadConfig reads INSTRUMENTATION_ENABLED, METRICS_EXPORTER,
// TRACING_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_TRACES_SAMPLER_ARG,
// OTEL_SERVICE_NAME, METRICS_DETAILED_LABELS and AUDIT_LOGGING_*.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordAPIOperation(ctx, instrumentation.ServiceGitHub,
//		instrumentation.OperationFetchIssue, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
