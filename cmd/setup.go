package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
	"github.com/teemow/gitmail/internal/oauth"
)

// loadConfig reads the environment and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewLogger(w, logging.ParseLevel(cfg.LogLevel), logging.Format(cfg.LogFormat))
}

func newInstrumentation(ctx context.Context) (*instrumentation.Provider, instrumentation.Config, error) {
	instrConfig, err := instrumentation.LoadConfig()
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to load instrumentation config: %w", err)
	}
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, instrConfig, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	return provider, instrConfig, nil
}

// personalConnector connects every user with the configured GITHUB_TOKEN.
// Without a token the connector reports the user as unauthorized.
func personalConnector(cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) addon.Connector {
	return addon.ConnectorFunc(func(ctx context.Context, _ string) (addon.GitHub, error) {
		var ts oauth2.TokenSource
		if cfg.GitHubToken != "" {
			ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		}
		client, err := github.NewClient(github.ClientOptions{
			Host:        cfg.GitHubHost,
			BaseURL:     cfg.BaseURL,
			TokenSource: ts,
			Logger:      logger,
			Metrics:     metrics,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	})
}

// newTokenStore creates the store for linked GitHub accounts.
func newTokenStore(cfg *config.Config, enc *oauth.TokenEncryption) (oauth.TokenStore, error) {
	switch cfg.Store.Type {
	case config.StoreValkey:
		store, err := oauth.NewValkeyStore(oauth.ValkeyConfig{
			URL:        cfg.Store.Valkey.URL,
			Password:   cfg.Store.Valkey.Password,
			TLSEnabled: cfg.Store.Valkey.TLSEnabled,
			KeyPrefix:  cfg.Store.Valkey.KeyPrefix,
			DB:         cfg.Store.Valkey.DB,
		}, enc)
		if err != nil {
			return nil, fmt.Errorf("failed to create valkey token store: %w", err)
		}
		return store, nil
	case config.StoreMemory, "":
		return oauth.NewMemoryStore(enc), nil
	default:
		return nil, fmt.Errorf("unsupported token store %q (supported: memory, valkey)", cfg.Store.Type)
	}
}
