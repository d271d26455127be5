package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/logging"
	"github.com/teemow/gitmail/internal/oauth"
)

const (
	// DefaultReadHeaderTimeout bounds reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout leaves room for a few sequential GitHub calls.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the keep-alive timeout.
	DefaultIdleTimeout = 120 * time.Second
)

// Handler returns the add-on routes, health probes included, wrapped in the
// request logging and metrics middleware.
func (sc *ServerContext) Handler(health *HealthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /addon/homepage", sc.handleHomepage)
	mux.HandleFunc("POST /addon/message", sc.handleMessage)
	mux.HandleFunc("POST /addon/about", sc.handleAbout)
	mux.HandleFunc("POST /addon/settings", sc.handleSettings)
	mux.HandleFunc("POST /actions/{function}", sc.handleAction)
	mux.HandleFunc("GET /oauth/callback", sc.handleOAuthCallback)
	if health != nil {
		health.RegisterHealthEndpoints(mux)
	}
	return instrumentHandler(mux, sc.logger, sc.metrics)
}

// authenticate decodes the event and verifies both ID tokens. It writes the
// error response itself and returns ok=false on failure.
func (sc *ServerContext) authenticate(w http.ResponseWriter, r *http.Request) (*addon.Event, string, bool) {
	ev, err := addon.DecodeEvent(r.Body)
	if err != nil {
		sc.logger.Debug("rejecting malformed event", logging.Err(err))
		http.Error(w, "malformed add-on event", http.StatusBadRequest)
		return nil, "", false
	}
	if err := sc.verifier.VerifySystem(r.Context(), ev.Authorization.SystemIDToken); err != nil {
		sc.logger.Warn("rejecting request with invalid system ID token", logging.Err(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, "", false
	}
	identity, err := sc.verifier.VerifyUser(r.Context(), ev.Authorization.UserIDToken)
	if err != nil {
		sc.logger.Warn("rejecting request with invalid user ID token", logging.Err(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, "", false
	}
	return ev, identity.Subject, true
}

func (sc *ServerContext) handleHomepage(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := sc.authenticate(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, addon.TriggerResponse([]card.Card{sc.dispatcher.RenderAbout(r.Context())}))
}

func (sc *ServerContext) handleMessage(w http.ResponseWriter, r *http.Request) {
	ev, user, ok := sc.authenticate(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	text, err := sc.messages.MessageText(ctx, ev)
	if err != nil {
		sc.logger.Error("failed to read message", logging.UserHash(user), logging.Err(err))
		http.Error(w, "failed to read message", http.StatusBadGateway)
		return
	}

	cards, err := sc.dispatcher.RenderMessage(ctx, user, text)
	if err != nil {
		sc.writeError(ctx, w, user, err)
		return
	}
	writeJSON(w, http.StatusOK, addon.TriggerResponse(cards))
}

func (sc *ServerContext) handleAbout(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := sc.authenticate(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, addon.UniversalResponse(sc.dispatcher.RenderAbout(r.Context())))
}

func (sc *ServerContext) handleSettings(w http.ResponseWriter, r *http.Request) {
	_, user, ok := sc.authenticate(w, r)
	if !ok {
		return
	}
	c, err := sc.dispatcher.RenderSettings(r.Context(), user)
	if err != nil {
		sc.writeError(r.Context(), w, user, err)
		return
	}
	writeJSON(w, http.StatusOK, addon.UniversalResponse(c))
}

func (sc *ServerContext) handleAction(w http.ResponseWriter, r *http.Request) {
	ev, user, ok := sc.authenticate(w, r)
	if !ok {
		return
	}
	if !sc.actionLimiter.Allow(user) {
		sc.logger.Warn("card action rate limited", logging.UserHash(user))
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many actions, please try again later", http.StatusTooManyRequests)
		return
	}
	req := ev.ActionRequest(r.PathValue("function"), user)

	result, err := sc.dispatcher.HandleAction(r.Context(), req)
	if err != nil {
		sc.writeError(r.Context(), w, user, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Response())
}

// writeError maps errors that escaped the dispatcher to a response.
// Unauthorized users are asked to link their GitHub account.
func (sc *ServerContext) writeError(ctx context.Context, w http.ResponseWriter, user string, err error) {
	switch {
	case github.IsUnauthorized(err):
		authURL, urlErr := sc.oauth.AuthorizationURL(user)
		if urlErr != nil {
			sc.logger.Error("failed to build authorization URL", logging.Err(urlErr))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, addon.AuthorizationRequired(authURL))
	case errors.Is(err, addon.ErrUnknownAction), errors.Is(err, addon.ErrMissingParameter):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		sc.logger.Debug("request canceled", logging.UserHash(user))
	default:
		// Backend and transport failures are already logged by the GitHub client.
		sc.logger.Error("add-on request failed", logging.UserHash(user), logging.Err(err))
		http.Error(w, "GitHub request failed", http.StatusBadGateway)
	}
}

// handleOAuthCallback completes the GitHub authorization flow started from
// the authorization prompt.
func (sc *ServerContext) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	_, err := sc.oauth.HandleCallback(r.Context(), q.Get("code"), q.Get("state"), q.Get("error"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "Success! You can close this window.")
	case errors.Is(err, oauth.ErrAccessDenied):
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "Denied. You can close this window.")
	case errors.Is(err, oauth.ErrInvalidState):
		sc.logger.Warn("OAuth callback with invalid state", logging.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, "Denied. The sign-in link has expired, please try again.")
	default:
		sc.logger.Error("OAuth callback failed", logging.Err(err))
		w.WriteHeader(http.StatusBadGateway)
		_, _ = fmt.Fprint(w, "Denied. GitHub did not issue a token, please try again.")
	}
}

// AddonServer serves the add-on handler.
type AddonServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewAddonServer creates an AddonServer listening on addr.
func NewAddonServer(addr string, handler http.Handler, logger *slog.Logger) *AddonServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddonServer{
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
	}
}

// Start blocks serving requests. It returns nil after Shutdown.
func (s *AddonServer) Start() error {
	s.logger.Info("starting add-on server", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *AddonServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down add-on server")
	return s.httpServer.Shutdown(ctx)
}
