package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/server"
	"github.com/teemow/gitmail/internal/tools/github_tools"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"

	// mcpUser names the single local caller in audit logs.
	mcpUser = "mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		httpAddr  string
		yolo      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start a Model Context Protocol (MCP) server that gives AI assistants the
same GitHub view of a message that the Gmail add-on shows.

All tools act as the owner of GITHUB_TOKEN. The server has no
authentication of its own, so the HTTP transport binds to localhost by
default.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp

Safety Mode:
  By default, the server operates in read-only mode, providing only safe operations.
  Use --yolo to enable write operations (closing issues, posting comments).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runMCP(cmd.Context(), cfg, transport, httpAddr, !yolo)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "127.0.0.1:8081", "Listen address for the streamable-http transport")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (close, reopen, comment)")

	return cmd
}

func runMCP(parent context.Context, cfg *config.Config, transport, httpAddr string, readOnly bool) error {
	if transport != transportStdio && transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the protocol on stdio.
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	provider, instrConfig, err := newInstrumentation(ctx)
	if err != nil {
		return err
	}
	if transport == transportStdio && (instrConfig.MetricsExporter == instrumentation.ExporterStdout || instrConfig.TracingExporter == instrumentation.ExporterStdout) {
		_ = provider.Shutdown(context.Background())
		return errors.New("stdout exporters cannot be used with the stdio transport")
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Error("Error during instrumentation shutdown", "error", err)
		}
	}()
	metrics := provider.Metrics()

	if cfg.GitHubToken == "" {
		logger.Warn("GITHUB_TOKEN is not set, GitHub tools will report the account as unauthorized")
	}

	dispatcher := addon.NewDispatcher(addon.Options{
		BaseURL:   cfg.BaseURL,
		Connector: personalConnector(cfg, logger, metrics),
		Logger:    logger,
		Metrics:   metrics,
		Audit:     instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
	})

	// Note: mcp.Implementation has Title field but WithTitle() ServerOption not available in v0.43.0
	mcpSrv := mcpserver.NewMCPServer("gitmail", version,
		mcpserver.WithToolCapabilities(true),
	)

	if readOnly {
		logger.Info("Starting MCP server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("Starting MCP server with WRITE operations enabled (--yolo flag is set)")
	}

	if err := github_tools.RegisterGitHubTools(mcpSrv, &github_tools.Toolkit{
		Dispatcher: dispatcher,
		User:       mcpUser,
		Metrics:    metrics,
		Logger:     logger,
	}, readOnly); err != nil {
		return fmt.Errorf("failed to register GitHub tools: %w", err)
	}

	if transport == transportStdio {
		return runStdioServer(mcpSrv)
	}
	return runStreamableHTTPServer(ctx, mcpSrv, httpAddr, logger)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	))
	health := server.NewHealthChecker(nil)
	health.RegisterHealthEndpoints(mux)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: server.DefaultReadHeaderTimeout,
		IdleTimeout:       server.DefaultIdleTimeout,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("Starting MCP server", "transport", transportStreamableHTTP, "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
