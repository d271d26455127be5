package instrumentation

import "strings"

// Cardinality helpers. Request paths and function names come from the
// network, so they are folded onto a fixed set before they become labels.

// Unknown is the label value used for anything outside the known set.
const Unknown = "unknown"

// Operation names for upstream API metrics.
const (
	OperationFetchIssue  = "fetch_issue"
	OperationFetchPull   = "fetch_pull"
	OperationViewer      = "viewer"
	OperationCloseIssue  = "close_issue"
	OperationReopenIssue = "reopen_issue"
	OperationAddComment  = "add_comment"
	OperationGetMessage  = "get_message"
)

var knownFunctions = map[string]bool{
	"toggleIssueState": true,
	"addComment":       true,
	"logout":           true,
}

// FunctionLabel returns fn when it is a registered card action and Unknown
// otherwise.
func FunctionLabel(fn string) string {
	if knownFunctions[fn] {
		return fn
	}
	return Unknown
}

// PathLabel collapses request paths into route templates, e.g.
// "/actions/addComment" becomes "/actions/:function".
//
// Example:
//
//	PathLabel("/addon/message")       // "/addon/message"
//	PathLabel("/actions/logout")      // "/actions/:function"
//	PathLabel("/wp-admin/setup.php")  // "unknown"
func PathLabel(path string) string {
	if strings.HasPrefix(path, "/actions/") {
		return "/actions/:function"
	}
	if knownPaths[path] {
		return path
	}
	return Unknown
}

var knownPaths = map[string]bool{
	"/addon/homepage":   true,
	"/addon/message":    true,
	"/addon/about":      true,
	"/addon/settings":   true,
	"/oauth/callback":   true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
}
