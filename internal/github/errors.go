package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"

	"github.com/teemow/gitmail/internal/logging"
)

// ErrNotFound is returned when the requested node is missing from an
// otherwise successful response. GitHub answers with a null node both for
// resources that do not exist and for ones the viewer cannot see.
var ErrNotFound = errors.New("resource not found or not accessible")

// ErrNoToken is returned by token sources when the user has not connected a
// GitHub account yet.
var ErrNoToken = errors.New("no GitHub token for user")

// GraphQLErrors carries the messages of a response that listed errors.
type GraphQLErrors struct {
	Messages []string
}

func (e *GraphQLErrors) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// First returns the first message, or an empty string.
func (e *GraphQLErrors) First() string {
	if len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0]
}

// UnauthorizedError reports a 401 or 403 from the API, or a missing token.
// Callers answer it by asking the user to authorize again.
type UnauthorizedError struct {
	StatusCode int
	Err        error
}

func (e *UnauthorizedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("unauthorized: %v", e.Err)
	}
	return fmt.Sprintf("unauthorized: HTTP %d", e.StatusCode)
}

func (e *UnauthorizedError) Unwrap() error { return e.Err }

// BackendError reports any other non-success HTTP status.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("github backend error: HTTP %d: %s", e.StatusCode, logging.Truncate(e.Body, maxLoggedBody))
}

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("github transport: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err asks for re-authorization.
func IsUnauthorized(err error) bool {
	var u *UnauthorizedError
	return errors.As(err, &u)
}

// classify maps errors from the go-gh GraphQL client onto the package's
// error types.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var gqlErr *api.GraphQLError
	if errors.As(err, &gqlErr) {
		msgs := make([]string, 0, len(gqlErr.Errors))
		for _, item := range gqlErr.Errors {
			msgs = append(msgs, item.Message)
		}
		return &GraphQLErrors{Messages: msgs}
	}

	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &UnauthorizedError{StatusCode: httpErr.StatusCode, Err: err}
		default:
			return &BackendError{StatusCode: httpErr.StatusCode, Body: httpErr.Message}
		}
	}

	if errors.Is(err, ErrNoToken) {
		return &UnauthorizedError{Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return &TransportError{Err: err}
}

// Severity tags a status message shown to the user.
type Severity string

const (
	SeverityWarn    Severity = "warn"
	SeverityErr     Severity = "err"
	SeveritySuccess Severity = "success"
)

// RenderableError is a failure the user should see as a status card rather
// than as a broken response.
type RenderableError struct {
	Message  string
	Severity Severity
}

func (e *RenderableError) Error() string {
	return string(e.Severity) + ": " + e.Message
}

// UnknownErrorMessage is shown when a resource is missing or unreadable.
const UnknownErrorMessage = "Unknown error. Do you have access to this resource?"

// AsRenderable converts GraphQL errors and missing nodes into a
// RenderableError. Other errors are returned unchanged.
func AsRenderable(err error) error {
	var gqlErrs *GraphQLErrors
	switch {
	case errors.As(err, &gqlErrs):
		msg := gqlErrs.First()
		if msg == "" {
			msg = UnknownErrorMessage
		}
		return &RenderableError{Message: msg, Severity: SeverityErr}
	case errors.Is(err, ErrNotFound):
		return &RenderableError{Message: UnknownErrorMessage, Severity: SeverityErr}
	default:
		return err
	}
}

// IsBackendError reports whether err is a non-success HTTP status other
// than 401 or 403.
func IsBackendError(err error) bool {
	var b *BackendError
	return errors.As(err, &b)
}

// IsNotFound reports whether err means the resource is missing or hidden.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransport reports whether the request never reached GitHub.
func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
