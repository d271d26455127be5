package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

type loginResult struct {
	code string
	err  error
}

// LoopbackLogin runs the installed-app OAuth flow: it listens on a random
// loopback port, hands the authorization URL to onURL and waits for Google
// to redirect back with a code.
func LoopbackLogin(ctx context.Context, conf *oauth2.Config, onURL func(authURL string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the OAuth redirect: %w", err)
	}

	flow := *conf
	flow.RedirectURL = "http://" + ln.Addr().String() + "/callback"
	state := uuid.NewString()
	results := make(chan loginResult, 1)

	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "invalid state", http.StatusBadRequest)
				return
			}

			res := loginResult{code: q.Get("code")}
			if reason := q.Get("error"); reason != "" || res.code == "" {
				res = loginResult{err: fmt.Errorf("authorization denied: %s", reason)}
				_, _ = fmt.Fprintln(w, "Denied")
			} else {
				_, _ = fmt.Fprintln(w, "Success! You can close this window.")
			}

			select {
			case results <- res:
			default:
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	onURL(flow.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case <-ctx.Done():
		return nil, errors.Join(errors.New("login aborted"), ctx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		token, err := flow.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return token, nil
	}
}
