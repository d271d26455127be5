package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
)

const (
	// DefaultHost is the GitHub host whose GraphQL endpoint is used when
	// ClientOptions.Host is empty.
	DefaultHost = "github.com"

	// DefaultBaseURL is the web URL issue links are built from.
	DefaultBaseURL = "https://github.com"

	// starfirePreview enables the closeIssue and reopenIssue mutations on
	// older GitHub Enterprise versions.
	starfirePreview = "application/vnd.github.starfire-preview+json"

	maxLoggedBody = 512
)

// GraphQL is the part of the go-gh GraphQL client the package uses.
// Tests substitute a fake.
type GraphQL interface {
	DoWithContext(ctx context.Context, query string, variables map[string]interface{}, response interface{}) error
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Host is the GitHub hostname (default: github.com).
	Host string

	// BaseURL is the web base for issue permalinks (default: https://github.com).
	BaseURL string

	// TokenSource supplies the user's GitHub access token. Required.
	TokenSource oauth2.TokenSource

	// Transport is the base round tripper under the bearer-token transport
	// (default: http.DefaultTransport).
	Transport http.RoundTripper

	// Timeout bounds each request. Zero means no timeout beyond ctx.
	Timeout time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Client runs GraphQL documents against GitHub for one user.
// A Client is cheap to build and is normally created per request.
type Client struct {
	gql     GraphQL
	preview GraphQL
	baseURL string
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewClient creates a Client that authenticates with opts.TokenSource.
// A token source without a token yields an *UnauthorizedError.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.TokenSource == nil {
		return nil, &UnauthorizedError{Err: ErrNoToken}
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Transport == nil {
		opts.Transport = http.DefaultTransport
	}

	token, err := opts.TokenSource.Token()
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid() {
		return nil, &UnauthorizedError{Err: ErrNoToken}
	}

	// oauth2.Transport replaces go-gh's "token" Authorization header with a
	// bearer credential taken from the (possibly refreshed) token source.
	transport := &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(token, opts.TokenSource),
		Base:   &captureTransport{base: opts.Transport},
	}

	newGQL := func(headers map[string]string) (GraphQL, error) {
		gql, err := api.NewGraphQLClient(api.ClientOptions{
			Host:      opts.Host,
			AuthToken: token.AccessToken,
			Transport: transport,
			Timeout:   opts.Timeout,
			Headers:   headers,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create GraphQL client: %w", err)
		}
		return gql, nil
	}

	gql, err := newGQL(nil)
	if err != nil {
		return nil, err
	}
	preview, err := newGQL(map[string]string{"Accept": starfirePreview})
	if err != nil {
		return nil, err
	}

	c := NewClientWithGraphQL(gql, opts)
	c.preview = preview
	return c, nil
}

// NewClientWithGraphQL creates a Client around an existing GraphQL
// implementation. Only BaseURL, Logger and Metrics are read from opts.
// Mutations needing preview headers use the same instance.
func NewClientWithGraphQL(gql GraphQL, opts ClientOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Client{
		gql:     gql,
		preview: gql,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// do sends one document and classifies the outcome. BackendErrors are logged
// here, before they propagate.
func (c *Client) do(ctx context.Context, gql GraphQL, operation, document string, variables map[string]interface{}, response interface{}) error {
	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceGitHub, operation)
	ctx, captured := withBodyCapture(ctx)
	start := time.Now()

	err := classify(gql.DoWithContext(ctx, document, variables, response))
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		if body := captured.String(); body != "" {
			backendErr.Body = body
		}
	}

	c.metrics.RecordAPIOperation(ctx, instrumentation.ServiceGitHub, operation, instrumentation.StatusOf(err), time.Since(start))
	instrumentation.EndSpan(span, err)

	if backendErr != nil {
		c.logger.Error("GitHub backend error",
			logging.Operation(operation),
			logging.HTTPStatus(backendErr.StatusCode),
			slog.String("body", logging.Truncate(backendErr.Body, maxLoggedBody)))
	}
	return err
}

// Query sends a read-only document.
func (c *Client) Query(ctx context.Context, operation, document string, variables map[string]interface{}, response interface{}) error {
	return c.do(ctx, c.gql, operation, document, variables, response)
}

// Mutate sends a mutation. withPreview adds the starfire preview Accept header.
func (c *Client) Mutate(ctx context.Context, operation, document string, variables map[string]interface{}, response interface{}, withPreview bool) error {
	gql := c.gql
	if withPreview {
		gql = c.preview
	}
	return c.do(ctx, gql, operation, document, variables, response)
}
