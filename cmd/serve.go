package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/google"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/oauth"
	"github.com/teemow/gitmail/internal/server"
)

// MetricsConfig holds the flags of the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

func newServeCmd() *cobra.Command {
	var (
		httpAddr              string
		skipIDTokenValidation bool
		metricsEnabled        bool
		metricsAddr           string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Gmail add-on backend",
		Long: `Run the HTTP backend of the Gmail add-on.

Gmail calls the /addon endpoints when a message is opened and the
/actions endpoints when a card button is pressed. Users link their GitHub
account through the OAuth flow that ends at /oauth/callback.

Required environment:
  GITMAIL_PUBLIC_URL      externally reachable URL of this server
  GITHUB_CLIENT_ID        GitHub OAuth app client ID
  GITHUB_CLIENT_SECRET    GitHub OAuth app client secret
  GITMAIL_STATE_SECRET    secret used to sign the OAuth state

Linked tokens are kept in memory by default. Set GITMAIL_TOKEN_STORE=valkey
and VALKEY_URL to share them between replicas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if skipIDTokenValidation {
				cfg.VerifyIDToken = false
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			metricsConfig := MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr}
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "false" {
				metricsConfig.Enabled = false
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					metricsConfig.Addr = addr
				}
			}

			return runServe(cmd.Context(), cfg, metricsConfig)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "Listen address of the add-on endpoints (default from GITMAIL_HTTP_ADDR)")
	cmd.Flags().BoolVar(&skipIDTokenValidation, "insecure-skip-id-token", false, "Accept add-on requests without verifying the Google ID token (local development only)")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a separate port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Listen address of the metrics server")

	return cmd
}

func runServe(parent context.Context, cfg *config.Config, metricsConfig MetricsConfig) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	provider, instrConfig, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("Error during instrumentation shutdown", "error", err)
		}
	}()
	metrics := provider.Metrics()

	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return err
	}
	enc, err := oauth.NewTokenEncryption(key)
	if err != nil {
		return err
	}
	if !enc.Enabled() {
		logger.Warn("Token encryption at rest is disabled, set GITMAIL_ENCRYPTION_KEY to enable it")
	}

	store, err := newTokenStore(cfg, enc)
	if err != nil {
		return err
	}

	state, err := oauth.NewStateSigner(cfg.OAuth.StateSecret, oauth.DefaultStateTTL)
	if err != nil {
		return err
	}
	oauthService, err := oauth.NewService(oauth.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		RedirectURL:  cfg.CallbackURL(),
		Scopes:       cfg.OAuth.Scopes,
		State:        state,
		Store:        store,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create OAuth service: %w", err)
	}

	var verifier server.IdentityVerifier = server.UnverifiedIdentity{}
	if cfg.VerifyIDToken {
		v, err := google.NewIDTokenVerifier(ctx, cfg.PublicURL)
		if err != nil {
			return fmt.Errorf("failed to create ID token verifier: %w", err)
		}
		verifier = v
	} else {
		logger.Warn("Google ID token verification is DISABLED, do not expose this server")
	}

	var actionLimiter *server.RateLimiter
	if cfg.ActionRate > 0 {
		actionLimiter = server.NewRateLimiter(cfg.ActionRate, cfg.ActionBurst)
		defer actionLimiter.Stop()
	}

	serverContext, err := server.NewServerContext(ctx, server.Options{
		Config:        cfg,
		OAuth:         oauthService,
		Verifier:      verifier,
		ActionLimiter: actionLimiter,
		Logger:        logger,
		Metrics:       metrics,
		Audit:         instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("Error during server context shutdown", "error", err)
		}
	}()

	health := server.NewHealthChecker(serverContext)
	if valkeyStore, ok := store.(*oauth.ValkeyStore); ok {
		health.AddCheck("valkey", valkeyStore.Ping)
		defer valkeyStore.Close()
	}

	var metricsServer *server.MetricsServer
	if metricsConfig.Enabled {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    metricsConfig.Addr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		switch {
		case errors.Is(err, server.ErrMetricsDisabled):
			logger.Info("Metrics server not started", "reason", err.Error())
			metricsServer = nil
		case err != nil:
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	addonServer := server.NewAddonServer(cfg.HTTPAddr, serverContext.Handler(health), logger)

	serverDone := make(chan error, 2)
	go func() {
		serverDone <- addonServer.Start()
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				serverDone <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	logger.Info("Starting gitmail add-on server",
		"addr", cfg.HTTPAddr,
		"public_url", cfg.PublicURL,
		"token_store", cfg.Store.Type,
		"metrics", metricsServer != nil)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping servers")
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("server stopped with error: %w", err)
		}
	}

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer shutdownCancel()

	if err := addonServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during add-on server shutdown", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during metrics server shutdown", "error", err)
		}
	}

	if runErr == nil {
		logger.Info("Servers gracefully stopped")
	}
	return runErr
}
