// Package google holds the Google-side collaborators of gitmail: verifying
// the ID tokens the Workspace add-on runtime attaches to requests, and the
// Google OAuth login and token cache the CLI uses to read Gmail messages.
package google
