package addon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
)

// Card kinds used as metric labels.
const (
	cardIssue    = "issue"
	cardPull     = "pull"
	cardStatus   = "status"
	cardAbout    = "about"
	cardSettings = "settings"
)

// GitHub is what the dispatcher needs from a user's GitHub client.
// *github.Client implements it.
type GitHub interface {
	IssueView(ctx context.Context, ref github.Reference) (*github.IssueView, error)
	PullRequestView(ctx context.Context, ref github.Reference) (*github.PullRequestView, error)
	CloseIssue(ctx context.Context, issueID string) error
	ReopenIssue(ctx context.Context, issueID string) error
	AddComment(ctx context.Context, subjectID, body string) error
	ViewerLogin(ctx context.Context) (string, error)
}

// Connector returns the GitHub client for a user. It returns an error
// satisfying github.IsUnauthorized when the user has not connected an
// account.
type Connector interface {
	Connect(ctx context.Context, user string) (GitHub, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, user string) (GitHub, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context, user string) (GitHub, error) {
	return f(ctx, user)
}

// Resetter forgets a user's GitHub account link.
type Resetter interface {
	Reset(ctx context.Context, user string) error
}

// Options configures a Dispatcher.
type Options struct {
	// BaseURL is the GitHub web URL links are matched against.
	BaseURL string

	// Cards is passed to every renderer.
	Cards card.Context

	Connector Connector

	// Resetter is called on sign out. Optional.
	Resetter Resetter

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Dispatcher renders the cards for a message and runs card actions.
type Dispatcher struct {
	baseURL   string
	cards     card.Context
	connector Connector
	resetter  Resetter
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger

	actions map[string]ActionHandler
}

// NewDispatcher creates a Dispatcher with the built-in card actions
// registered.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = github.DefaultBaseURL
	}
	d := &Dispatcher{
		baseURL:   opts.BaseURL,
		cards:     opts.Cards,
		connector: opts.Connector,
		resetter:  opts.Resetter,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		audit:     opts.Audit,
	}
	d.actions = map[string]ActionHandler{
		card.FunctionToggleIssueState: d.toggleIssueState,
		card.FunctionAddComment:       d.addComment,
		card.FunctionLogout:           d.logout,
	}
	return d
}

// References returns the issue and pull request references in text.
func (d *Dispatcher) References(text string) []github.Reference {
	return github.ExtractReferences(text, d.baseURL)
}

// RenderMessage extracts the references in text and renders them. Without
// references no GitHub connection is made.
func (d *Dispatcher) RenderMessage(ctx context.Context, user, text string) ([]card.Card, error) {
	refs := d.References(text)
	if len(refs) == 0 {
		return d.noLinks(ctx), nil
	}

	gh, err := d.connect(ctx, user)
	if err != nil {
		return nil, err
	}
	return d.RenderReferences(ctx, gh, refs)
}

// RenderReferences renders one card per reference, in order. GitHub errors
// that can be shown to the user become status cards; unauthorized, backend
// and transport failures abort the whole render.
func (d *Dispatcher) RenderReferences(ctx context.Context, gh GitHub, refs []github.Reference) ([]card.Card, error) {
	if len(refs) == 0 {
		return d.noLinks(ctx), nil
	}

	cards := make([]card.Card, 0, len(refs))
	for _, ref := range refs {
		c, kind, err := d.renderReference(ctx, gh, ref)
		if err != nil {
			var renderable *github.RenderableError
			if !errors.As(err, &renderable) {
				return nil, fmt.Errorf("failed to render %s: %w", ref, err)
			}
			c, kind = card.RenderError(renderable), cardStatus
		}
		d.metrics.RecordCardRendered(ctx, kind)
		cards = append(cards, c)
	}
	return cards, nil
}

func (d *Dispatcher) renderReference(ctx context.Context, gh GitHub, ref github.Reference) (card.Card, string, error) {
	d.logger.Debug("rendering reference",
		logging.Reference(ref.Owner, ref.Repo, ref.Number),
		logging.Kind(string(ref.Kind)))

	switch ref.Kind {
	case github.KindIssue:
		view, err := gh.IssueView(ctx, ref)
		if err != nil {
			return card.Card{}, "", err
		}
		return card.RenderIssue(view, d.cards), cardIssue, nil
	case github.KindPull:
		view, err := gh.PullRequestView(ctx, ref)
		if err != nil {
			return card.Card{}, "", err
		}
		return card.RenderPull(view, d.cards), cardPull, nil
	default:
		return card.Card{}, "", &github.RenderableError{Message: github.UnknownErrorMessage, Severity: github.SeverityErr}
	}
}

func (d *Dispatcher) noLinks(ctx context.Context) []card.Card {
	d.metrics.RecordCardRendered(ctx, cardStatus)
	return []card.Card{card.RenderStatus(card.MessageNoLinks, github.SeverityWarn)}
}

// RenderAbout returns the About card.
func (d *Dispatcher) RenderAbout(ctx context.Context) card.Card {
	d.metrics.RecordCardRendered(ctx, cardAbout)
	return card.RenderAbout()
}

// RenderSettings returns the Settings card for user. A failed username
// lookup still renders the card; only an unauthorized user is an error.
func (d *Dispatcher) RenderSettings(ctx context.Context, user string) (card.Card, error) {
	gh, err := d.connect(ctx, user)
	if err != nil {
		return card.Card{}, err
	}

	login, err := gh.ViewerLogin(ctx)
	if err != nil {
		if github.IsUnauthorized(err) {
			return card.Card{}, err
		}
		d.logger.Warn("failed to look up GitHub username", logging.UserHash(user), logging.Err(err))
		login = ""
	}

	d.metrics.RecordCardRendered(ctx, cardSettings)
	return card.RenderSettings(login, d.cards), nil
}

func (d *Dispatcher) connect(ctx context.Context, user string) (GitHub, error) {
	if d.connector == nil {
		return nil, &github.UnauthorizedError{Err: github.ErrNoToken}
	}
	return d.connector.Connect(ctx, user)
}
