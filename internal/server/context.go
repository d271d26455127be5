package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/gmail"
	"github.com/teemow/gitmail/internal/google"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/oauth"
)

// IdentityVerifier authenticates add-on requests.
// *google.IDTokenVerifier implements it.
type IdentityVerifier interface {
	VerifySystem(ctx context.Context, token string) error
	VerifyUser(ctx context.Context, token string) (google.Identity, error)
}

// MessageReader returns the text of the message an event refers to.
type MessageReader interface {
	MessageText(ctx context.Context, ev *addon.Event) (string, error)
}

// Options configures a ServerContext.
type Options struct {
	Config   *config.Config
	OAuth    *oauth.Service
	Verifier IdentityVerifier

	// Connector overrides how per-user GitHub clients are built (tests).
	Connector addon.Connector

	// Messages overrides the Gmail API reader (tests).
	Messages MessageReader

	// GitHubTransport is the base transport of GitHub clients.
	GitHubTransport http.RoundTripper

	// ActionLimiter limits card actions per user. Nil disables limiting.
	ActionLimiter *RateLimiter

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// ServerContext holds what the add-on handlers share: configuration, the
// OAuth service and the dispatcher.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg             *config.Config
	oauth           *oauth.Service
	verifier        IdentityVerifier
	messages        MessageReader
	dispatcher      *addon.Dispatcher
	githubTransport http.RoundTripper
	actionLimiter   *RateLimiter
	logger          *slog.Logger
	metrics         *instrumentation.Metrics

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a ServerContext.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.OAuth == nil {
		return nil, errors.New("OAuth service is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("identity verifier is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		cfg:             opts.Config,
		oauth:           opts.OAuth,
		verifier:        opts.Verifier,
		messages:        opts.Messages,
		githubTransport: opts.GitHubTransport,
		actionLimiter:   opts.ActionLimiter,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
	}
	if sc.messages == nil {
		sc.messages = &gmailReader{metrics: opts.Metrics}
	}

	connector := opts.Connector
	if connector == nil {
		connector = addon.ConnectorFunc(sc.connectGitHub)
	}
	sc.dispatcher = addon.NewDispatcher(addon.Options{
		BaseURL:   opts.Config.BaseURL,
		Cards:     card.Context{ActionBaseURL: strings.TrimRight(opts.Config.PublicURL, "/") + "/actions"},
		Connector: connector,
		Resetter:  opts.OAuth,
		Logger:    opts.Logger,
		Metrics:   opts.Metrics,
		Audit:     opts.Audit,
	})
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Dispatcher returns the add-on dispatcher.
func (sc *ServerContext) Dispatcher() *addon.Dispatcher {
	return sc.dispatcher
}

// connectGitHub builds a GitHub client from the user's linked token.
func (sc *ServerContext) connectGitHub(ctx context.Context, user string) (addon.GitHub, error) {
	client, err := github.NewClient(github.ClientOptions{
		Host:        sc.cfg.GitHubHost,
		BaseURL:     sc.cfg.BaseURL,
		TokenSource: sc.oauth.TokenSource(ctx, user),
		Transport:   sc.githubTransport,
		Logger:      sc.logger,
		Metrics:     sc.metrics,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}

// gmailReader reads the open message with the tokens in the event.
type gmailReader struct {
	metrics *instrumentation.Metrics
}

func (g *gmailReader) MessageText(ctx context.Context, ev *addon.Event) (string, error) {
	if ev.Gmail == nil || ev.Gmail.MessageID == "" {
		return "", nil
	}
	client, err := gmail.NewClient(ctx, gmail.Options{
		TokenSource:        oauth2.StaticTokenSource(&oauth2.Token{AccessToken: ev.Authorization.UserOAuthToken}),
		MessageAccessToken: ev.Gmail.AccessToken,
		Metrics:            g.metrics,
	})
	if err != nil {
		return "", err
	}
	return client.MessageText(ctx, ev.Gmail.MessageID)
}
