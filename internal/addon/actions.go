package addon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
)

var (
	// ErrUnknownAction is returned for a function ID with no handler.
	ErrUnknownAction = errors.New("unknown card action")

	// ErrMissingParameter is returned when an action lacks a required
	// parameter.
	ErrMissingParameter = errors.New("missing action parameter")

	errBlankComment = errors.New("blank comment")
)

// ActionHandler runs one card action. A returned error is not shown as a
// card; it is handled by the caller (authorization prompt or host error).
type ActionHandler func(ctx context.Context, req ActionRequest) (*Result, error)

// HandleAction runs the handler registered for req.FunctionID.
func (d *Dispatcher) HandleAction(ctx context.Context, req ActionRequest) (*Result, error) {
	fn := card.FunctionID(req.FunctionID)
	handler, ok := d.actions[fn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, fn)
	}

	userHash := logging.AnonymizeUser(req.User)
	ctx, span := instrumentation.StartActionSpan(ctx, fn,
		instrumentation.NewSpanAttributeBuilder().WithUser(userHash).Build()...)
	invocation := instrumentation.NewActionInvocation(fn).
		WithUser(req.User).
		WithTarget(req.Parameters[card.ParamID]).
		WithSpanContext(ctx)
	start := time.Now()

	result, err := handler(ctx, req)

	outcome := err
	if outcome == nil && result != nil {
		outcome = result.cause
	}
	d.metrics.RecordActionInvocation(ctx, fn, instrumentation.StatusOf(outcome), userHash, time.Since(start))
	instrumentation.EndSpan(span, outcome)
	d.audit.LogAction(invocation.Complete(outcome))

	if err != nil {
		return nil, err
	}
	return result, nil
}

// toggleIssueState closes the issue when currentState is "false" and
// reopens it otherwise.
func (d *Dispatcher) toggleIssueState(ctx context.Context, req ActionRequest) (*Result, error) {
	id := req.Parameters[card.ParamID]
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameter, card.ParamID)
	}

	gh, err := d.connect(ctx, req.User)
	if err != nil {
		return nil, err
	}

	if req.Parameters[card.ParamCurrentState] == "false" {
		return d.mutationResult(ctx, gh.CloseIssue(ctx, id), card.MessageClosed)
	}
	return d.mutationResult(ctx, gh.ReopenIssue(ctx, id), card.MessageReopened)
}

// addComment posts the comment form's text. Blank text is rejected before
// anything is sent.
func (d *Dispatcher) addComment(ctx context.Context, req ActionRequest) (*Result, error) {
	text := req.FormInputs[card.InputCommentText]
	if strings.TrimSpace(text) == "" {
		return d.statusResult(ctx, card.MessageBlankComment, github.SeverityErr, errBlankComment), nil
	}

	id := req.Parameters[card.ParamID]
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingParameter, card.ParamID)
	}

	gh, err := d.connect(ctx, req.User)
	if err != nil {
		return nil, err
	}
	return d.mutationResult(ctx, gh.AddComment(ctx, id, text), card.MessageCommented)
}

// logout forgets the user's GitHub link and returns to the root card.
func (d *Dispatcher) logout(ctx context.Context, req ActionRequest) (*Result, error) {
	if d.resetter != nil {
		if err := d.resetter.Reset(ctx, req.User); err != nil {
			return nil, fmt.Errorf("failed to reset GitHub account link: %w", err)
		}
	}
	d.metrics.RecordLogout(ctx)
	d.logger.Info("user signed out of GitHub", logging.UserHash(req.User))
	return &Result{PopToRoot: true, StateChanged: true}, nil
}

// mutationResult turns the outcome of a mutation into a status card.
// Transport failures are shown too, so the user knows nothing happened.
func (d *Dispatcher) mutationResult(ctx context.Context, err error, success string) (*Result, error) {
	if err == nil {
		return d.statusResult(ctx, success, github.SeveritySuccess, nil), nil
	}
	if github.IsTransport(err) {
		d.logger.Warn("GitHub unreachable", logging.Err(err))
		return d.statusResult(ctx, card.MessageUnreachable, github.SeverityErr, err), nil
	}

	var renderable *github.RenderableError
	if errors.As(github.AsRenderable(err), &renderable) {
		c := card.RenderError(renderable)
		d.metrics.RecordCardRendered(ctx, cardStatus)
		return &Result{Card: &c, StateChanged: true, cause: err}, nil
	}
	return nil, err
}

func (d *Dispatcher) statusResult(ctx context.Context, message string, severity github.Severity, cause error) *Result {
	c := card.RenderStatus(message, severity)
	d.metrics.RecordCardRendered(ctx, cardStatus)
	return &Result{Card: &c, StateChanged: true, cause: cause}
}
