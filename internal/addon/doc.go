// Package addon connects the Gmail add-on host to the GitHub pipeline.
//
// It decodes the event objects the Google Workspace add-on runtime posts to
// the HTTP endpoints, dispatches references found in a message to the issue
// and pull request view builders, runs card actions (toggle issue state, add
// comment, sign out) and encodes the navigation responses the host expects.
//
// Every call is request scoped: references are rendered one after another in
// the order they were found, with one GraphQL round trip each.
package addon
