package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/google"
	"github.com/teemow/gitmail/internal/oauth"
)

// fakeVerifier accepts any user ID token and uses it as the subject.
type fakeVerifier struct {
	systemErr error
}

func (v *fakeVerifier) VerifySystem(context.Context, string) error {
	return v.systemErr
}

func (v *fakeVerifier) VerifyUser(_ context.Context, token string) (google.Identity, error) {
	if token == "" {
		return google.Identity{}, google.ErrMissingToken
	}
	return google.Identity{Subject: token}, nil
}

type fakeMessages struct {
	text string
	err  error
}

func (m *fakeMessages) MessageText(context.Context, *addon.Event) (string, error) {
	return m.text, m.err
}

// stubGitHub answers every view with a fixed issue.
type stubGitHub struct {
	mu    sync.Mutex
	calls []string
	login string
}

func (s *stubGitHub) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubGitHub) IssueView(_ context.Context, ref github.Reference) (*github.IssueView, error) {
	s.record("IssueView " + ref.String())
	return &github.IssueView{
		Ref:       ref,
		ID:        "I_1",
		Title:     "Widgets fall over",
		Author:    github.Author{Login: "octocat"},
		Permalink: "https://github.com/" + ref.Owner + "/" + ref.Repo + "/issues/1",
	}, nil
}

func (s *stubGitHub) PullRequestView(_ context.Context, ref github.Reference) (*github.PullRequestView, error) {
	s.record("PullRequestView " + ref.String())
	return nil, &github.RenderableError{Message: github.UnknownErrorMessage, Severity: github.SeverityErr}
}

func (s *stubGitHub) CloseIssue(_ context.Context, id string) error {
	s.record("CloseIssue " + id)
	return nil
}

func (s *stubGitHub) ReopenIssue(_ context.Context, id string) error {
	s.record("ReopenIssue " + id)
	return nil
}

func (s *stubGitHub) AddComment(_ context.Context, id, _ string) error {
	s.record("AddComment " + id)
	return nil
}

func (s *stubGitHub) ViewerLogin(context.Context) (string, error) {
	s.record("ViewerLogin")
	if s.login == "" {
		return "", errors.New("no login")
	}
	return s.login, nil
}

type testServer struct {
	sc       *ServerContext
	store    *oauth.MemoryStore
	state    *oauth.StateSigner
	verifier *fakeVerifier
	messages *fakeMessages
}

type testServerOptions struct {
	connector addon.Connector
	tokenURL  string
	limiter   *RateLimiter
}

func newTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	store := oauth.NewMemoryStore(nil)
	state, err := oauth.NewStateSigner("test-secret", time.Minute)
	require.NoError(t, err)

	tokenURL := opts.tokenURL
	if tokenURL == "" {
		tokenURL = "https://github.com/login/oauth/access_token"
	}
	svc, err := oauth.NewService(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      "https://github.com/login/oauth/authorize",
		TokenURL:     tokenURL,
		RedirectURL:  "https://gitmail.example.com/oauth/callback",
		Scopes:       []string{"repo"},
		State:        state,
		Store:        store,
	})
	require.NoError(t, err)

	ts := &testServer{
		store:    store,
		state:    state,
		verifier: &fakeVerifier{},
		messages: &fakeMessages{},
	}
	ts.sc, err = NewServerContext(context.Background(), Options{
		Config: &config.Config{
			BaseURL:    "https://github.com",
			GitHubHost: "github.com",
			PublicURL:  "https://gitmail.example.com",
		},
		OAuth:         svc,
		Verifier:      ts.verifier,
		Connector:     opts.connector,
		Messages:      ts.messages,
		ActionLimiter: opts.limiter,
	})
	require.NoError(t, err)
	return ts
}

// staticConnector connects every user to gh.
func staticConnector(gh addon.GitHub) addon.Connector {
	return addon.ConnectorFunc(func(context.Context, string) (addon.GitHub, error) {
		return gh, nil
	})
}

func eventBody(t *testing.T, user string, params, inputs map[string]string) io.Reader {
	t.Helper()
	ev := addon.Event{
		Common: addon.CommonEventObject{
			HostApp:    "GMAIL",
			Parameters: params,
		},
		Authorization: addon.AuthorizationEventObject{
			UserIDToken:   user,
			SystemIDToken: "system-token",
		},
		Gmail: &addon.GmailEventObject{MessageID: "msg-1", AccessToken: "message-token"},
	}
	if len(inputs) > 0 {
		ev.Common.FormInputs = make(map[string]addon.FormInput, len(inputs))
		for k, v := range inputs {
			ev.Common.FormInputs[k] = addon.FormInput{StringInputs: &addon.StringInputs{Value: []string{v}}}
		}
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
