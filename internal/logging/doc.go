// Package logging provides structured logging utilities for gitmail.
//
// All components log through log/slog. This package keeps attribute names
// consistent across the pipeline (operation, reference, status, error) and
// sanitizes anything that could identify a user or leak a credential.
//
// # Usage Patterns
//
// Tag a logger with the operation it serves:
//
//	logger := logging.WithOperation(slog.Default(), "addon.render")
//	logger.Info("rendered cards",
//	    logging.Reference(ref.Owner, ref.Repo, ref.Number),
//	    logging.Status(logging.StatusSuccess))
//
// Hash identities and mask tokens before logging:
//
//	logger.Info("github account linked",
//	    logging.UserHash(subject),
//	    slog.String("token", logging.SanitizeToken(tok.AccessToken)))
//
// Command-line entry points build their root logger with NewLogger, which uses
// a tint handler for human-readable output; the add-on server uses JSON.
package logging
