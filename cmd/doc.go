// Package cmd implements the command-line interface for gitmail.
//
// This package provides the following commands:
//   - serve: Run the Gmail add-on HTTP backend
//   - mcp: Expose the GitHub card tools to AI assistants over MCP
//   - scan: Render the cards for one message from a file, stdin or Gmail
//   - login google: Cache a Google token for scan --gmail-message
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
