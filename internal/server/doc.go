// Package server exposes gitmail as a Google Workspace add-on over HTTP.
//
// # Endpoints
//
// The add-on deployment points its triggers at these routes:
//   - POST /addon/homepage: homepage trigger (About card)
//   - POST /addon/message: Gmail contextual trigger (one card per GitHub link)
//   - POST /actions/{function}: card actions (toggleIssueState, addComment, logout)
//   - POST /addon/about, POST /addon/settings: universal actions
//   - GET /oauth/callback: redirect target of the GitHub OAuth app
//
// Every add-on request carries a system ID token, checked against the
// public URL, and a user ID token whose subject identifies the user's
// GitHub link. Users without a link get an authorization prompt instead of
// cards. Card actions can be limited per user with a RateLimiter.
//
// Health probes (/healthz, /readyz, /healthz/detailed) are served next to the
// add-on routes; Prometheus metrics are served on a separate port by
// MetricsServer.
package server
