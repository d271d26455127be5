package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gitmail/internal/instrumentation"
)

// messageAccessHeader carries the add-on's per-message access token.
const messageAccessHeader = "X-Goog-Gmail-Access-Token"

// Options configures a Client.
type Options struct {
	// TokenSource authorizes Gmail API calls. Required.
	TokenSource oauth2.TokenSource

	// MessageAccessToken is the add-on event's gmail.accessToken. Empty for
	// the CLI.
	MessageAccessToken string

	// Endpoint overrides the API base URL (tests).
	Endpoint string

	// Transport is the base round tripper (default: http.DefaultTransport).
	Transport http.RoundTripper

	Metrics *instrumentation.Metrics
}

// Client wraps the Gmail Users service for one user.
type Client struct {
	svc                *gmail.UsersService
	messageAccessToken string
	metrics            *instrumentation.Metrics
}

// NewClient creates a Client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.TokenSource == nil {
		return nil, fmt.Errorf("gmail: token source is required")
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	httpClient := &http.Client{Transport: &oauth2.Transport{Source: opts.TokenSource, Base: base}}
	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := gmail.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{
		svc:                svc.Users,
		messageAccessToken: opts.MessageAccessToken,
		metrics:            opts.Metrics,
	}, nil
}

// GetMessage retrieves a full message.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationGetMessage)
	start := time.Now()

	call := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx)
	if c.messageAccessToken != "" {
		call.Header().Set(messageAccessHeader, c.messageAccessToken)
	}
	msg, err := call.Do()
	if err != nil {
		err = fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	c.metrics.RecordAPIOperation(ctx, instrumentation.ServiceGmail, instrumentation.OperationGetMessage, instrumentation.StatusOf(err), time.Since(start))
	instrumentation.EndSpan(span, err)
	return msg, err
}

// MessageText returns the text GitHub links are searched in: the plain text
// body, or the HTML body when the message has no plain text part.
func (c *Client) MessageText(ctx context.Context, messageID string) (string, error) {
	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	return Text(msg)
}
