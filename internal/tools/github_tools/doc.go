// Package github_tools exposes the link-to-card pipeline as MCP tools.
//
// Read-only tools:
//   - github_extract_references: list the issue and pull request links in a text
//   - github_render_cards: render the add-on cards for every link in a text
//   - github_viewer: show the login the configured token belongs to
//
// Write tools (registered unless read-only):
//   - github_close_issues, github_reopen_issues: change issue state
//   - github_add_comment: comment on an issue or pull request
//
// Write tools run through the same card actions the add-on uses and report
// the status message the add-on would show.
package github_tools
