package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
)

// ErrAccessDenied is returned when the user declined the authorization.
var ErrAccessDenied = errors.New("authorization denied by user")

// Config configures a Service.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string

	State *StateSigner
	Store TokenStore

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Service runs the GitHub OAuth web flow for add-on users.
type Service struct {
	oauth   *oauth2.Config
	state   *StateSigner
	store   TokenStore
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewService creates a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.State == nil {
		return nil, errors.New("state signer is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("token store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		state:   cfg.State,
		store:   cfg.Store,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// AuthorizationURL returns the GitHub URL that starts linking user's account.
func (s *Service) AuthorizationURL(user string) (string, error) {
	state, err := s.state.Sign(user)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

// HandleCallback completes the flow for the redirect GitHub sent. errCode is
// the "error" query parameter, set when the user declined.
func (s *Service) HandleCallback(ctx context.Context, code, state, errCode string) (string, error) {
	user, err := s.state.Verify(state)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return "", err
	}

	if errCode != "" || code == "" {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultDenied)
		s.logger.Info("GitHub authorization denied", logging.UserHash(user), slog.String("reason", errCode))
		return user, ErrAccessDenied
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return user, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := s.store.Put(ctx, user, token); err != nil {
		s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return user, err
	}

	s.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	s.logger.Info("GitHub account linked",
		logging.UserHash(user),
		slog.String("token", logging.SanitizeToken(token.AccessToken)))
	return user, nil
}

// TokenSource returns the stored token of user. Refreshed tokens are
// written back to the store.
func (s *Service) TokenSource(ctx context.Context, user string) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, service: s, user: user}
}

// Reset forgets the user's token.
func (s *Service) Reset(ctx context.Context, user string) error {
	return s.store.Delete(ctx, user)
}

type storeTokenSource struct {
	ctx     context.Context
	service *Service
	user    string
}

func (ts *storeTokenSource) Token() (*oauth2.Token, error) {
	stored, err := ts.service.store.Get(ts.ctx, ts.user)
	if err != nil {
		return nil, err
	}
	if stored.Valid() {
		return stored, nil
	}
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("stored token expired: %w", github.ErrNoToken)
	}

	fresh, err := ts.service.oauth.TokenSource(ts.ctx, stored).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token (%v): %w", err, github.ErrNoToken)
	}
	if fresh.AccessToken != stored.AccessToken {
		if err := ts.service.store.Put(ts.ctx, ts.user, fresh); err != nil {
			ts.service.logger.Warn("failed to store refreshed token", logging.UserHash(ts.user), logging.Err(err))
		}
	}
	return fresh, nil
}
