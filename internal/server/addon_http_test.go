package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/github"
)

func serve(t *testing.T, ts *testServer, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.sc.Handler(NewHealthChecker(ts.sc)).ServeHTTP(rec, httptest.NewRequest(method, path, body))
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) addon.Response {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp addon.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func firstWidgetText(c *card.Card) string {
	for _, s := range c.Sections {
		for _, w := range s.Widgets {
			if w.TextParagraph != nil {
				return w.TextParagraph.Text
			}
		}
	}
	return ""
}

func TestHomepage(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/homepage", eventBody(t, "user-1", nil, nil)))
	require.NotNil(t, resp.Action)
	require.Len(t, resp.Action.Navigations, 1)
	assert.Equal(t, "About", resp.Action.Navigations[0].PushCard.Header.Title)
}

func TestMessage_NoLinks(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})
	ts.messages.text = "Lunch on Friday?"

	resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/message", eventBody(t, "user-1", nil, nil)))
	require.NotNil(t, resp.Action)
	require.Len(t, resp.Action.Navigations, 1)
	assert.Equal(t, card.MessageNoLinks, firstWidgetText(resp.Action.Navigations[0].PushCard))
}

func TestMessage_UnlinkedUserIsPromptedToAuthorize(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})
	ts.messages.text = "see https://github.com/acme/widgets/issues/42"

	resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/message", eventBody(t, "user-1", nil, nil)))
	require.NotNil(t, resp.BasicAuthorizationPrompt)
	assert.Nil(t, resp.Action)
	assert.Equal(t, addon.AuthorizationResource, resp.BasicAuthorizationPrompt.Resource)

	u, err := url.Parse(resp.BasicAuthorizationPrompt.AuthorizationURL)
	require.NoError(t, err)
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	user, err := ts.state.Verify(u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", user)
}

func TestMessage_RendersLinkedIssues(t *testing.T) {
	gh := &stubGitHub{}
	ts := newTestServer(t, testServerOptions{connector: staticConnector(gh)})
	ts.messages.text = "see https://github.com/acme/widgets/issues/42 and https://github.com/acme/gadgets/issues/7"

	resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/message", eventBody(t, "user-1", nil, nil)))
	require.NotNil(t, resp.Action)
	require.Len(t, resp.Action.Navigations, 2)
	assert.Equal(t, "#42 in acme/widgets", resp.Action.Navigations[0].PushCard.Header.Subtitle)
	assert.Equal(t, "#7 in acme/gadgets", resp.Action.Navigations[1].PushCard.Header.Subtitle)
	assert.Equal(t, []string{"IssueView acme/widgets#42", "IssueView acme/gadgets#7"}, gh.calls)
}

func TestMessage_ReadFailure(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})
	ts.messages.err = errors.New("gmail unavailable")

	rec := serve(t, ts, http.MethodPost, "/addon/message", eventBody(t, "user-1", nil, nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAuthentication(t *testing.T) {
	t.Run("malformed event", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{})
		rec := serve(t, ts, http.MethodPost, "/addon/homepage", strings.NewReader("{"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid system token", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{})
		ts.verifier.systemErr = errors.New("wrong audience")
		rec := serve(t, ts, http.MethodPost, "/addon/homepage", eventBody(t, "user-1", nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing user token", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{})
		rec := serve(t, ts, http.MethodPost, "/addon/homepage", eventBody(t, "", nil, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{})
		rec := serve(t, ts, http.MethodGet, "/addon/homepage", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestAboutAndSettings(t *testing.T) {
	gh := &stubGitHub{login: "octocat"}
	ts := newTestServer(t, testServerOptions{connector: staticConnector(gh)})

	about := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/about", eventBody(t, "user-1", nil, nil)))
	require.NotNil(t, about.RenderActions)
	assert.Equal(t, "About", about.RenderActions.Action.Navigations[0].PushCard.Header.Title)

	settings := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/settings", eventBody(t, "user-1", nil, nil)))
	require.NotNil(t, settings.RenderActions)
	c := settings.RenderActions.Action.Navigations[0].PushCard
	assert.Equal(t, "Settings", c.Header.Title)
	assert.Contains(t, firstWidgetText(c), "<b>octocat</b>")
}

func TestSettings_UnlinkedUserIsPromptedToAuthorize(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})

	resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/addon/settings", eventBody(t, "user-1", nil, nil)))
	assert.NotNil(t, resp.BasicAuthorizationPrompt)
}

func TestActions(t *testing.T) {
	t.Run("close issue", func(t *testing.T) {
		gh := &stubGitHub{}
		ts := newTestServer(t, testServerOptions{connector: staticConnector(gh)})

		params := map[string]string{card.ParamCurrentState: "false", card.ParamID: "I_1"}
		resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/actions/"+card.FunctionToggleIssueState, eventBody(t, "user-1", params, nil)))
		require.NotNil(t, resp.RenderActions)
		assert.Equal(t, card.MessageClosed, firstWidgetText(resp.RenderActions.Action.Navigations[0].PushCard))
		assert.Equal(t, []string{"CloseIssue I_1"}, gh.calls)
	})

	t.Run("add comment", func(t *testing.T) {
		gh := &stubGitHub{}
		ts := newTestServer(t, testServerOptions{connector: staticConnector(gh)})

		params := map[string]string{card.ParamID: "I_1"}
		inputs := map[string]string{card.InputCommentText: "Looks good"}
		resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/actions/"+card.FunctionAddComment, eventBody(t, "user-1", params, inputs)))
		require.NotNil(t, resp.RenderActions)
		assert.Equal(t, card.MessageCommented, firstWidgetText(resp.RenderActions.Action.Navigations[0].PushCard))
		assert.Equal(t, []string{"AddComment I_1"}, gh.calls)
	})

	t.Run("logout forgets the token", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{connector: staticConnector(&stubGitHub{})})
		require.NoError(t, ts.store.Put(t.Context(), "user-1", &oauth2.Token{AccessToken: "gho_abc"}))

		resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/actions/"+card.FunctionLogout, eventBody(t, "user-1", nil, nil)))
		require.NotNil(t, resp.RenderActions)
		assert.True(t, resp.RenderActions.Action.StateChanged)
		assert.True(t, resp.RenderActions.Action.Navigations[0].PopToRoot)

		_, err := ts.store.Get(t.Context(), "user-1")
		assert.ErrorIs(t, err, github.ErrNoToken)
	})

	t.Run("unknown action", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{connector: staticConnector(&stubGitHub{})})
		rec := serve(t, ts, http.MethodPost, "/actions/deleteRepository", eventBody(t, "user-1", nil, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing parameter", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{connector: staticConnector(&stubGitHub{})})
		params := map[string]string{card.ParamCurrentState: "false"}
		rec := serve(t, ts, http.MethodPost, "/actions/"+card.FunctionToggleIssueState, eventBody(t, "user-1", params, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unlinked user", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{})
		params := map[string]string{card.ParamCurrentState: "false", card.ParamID: "I_1"}
		resp := decodeResponse(t, serve(t, ts, http.MethodPost, "/actions/"+card.FunctionToggleIssueState, eventBody(t, "user-1", params, nil)))
		assert.NotNil(t, resp.BasicAuthorizationPrompt)
	})

	t.Run("rate limited per user", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 1)
		t.Cleanup(limiter.Stop)
		gh := &stubGitHub{}
		ts := newTestServer(t, testServerOptions{connector: staticConnector(gh), limiter: limiter})
		params := map[string]string{card.ParamCurrentState: "false", card.ParamID: "I_1"}
		path := "/actions/" + card.FunctionToggleIssueState

		decodeResponse(t, serve(t, ts, http.MethodPost, path, eventBody(t, "user-1", params, nil)))

		rec := serve(t, ts, http.MethodPost, path, eventBody(t, "user-1", params, nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))

		decodeResponse(t, serve(t, ts, http.MethodPost, path, eventBody(t, "user-2", params, nil)))
		assert.Equal(t, []string{"CloseIssue I_1", "CloseIssue I_1"}, gh.calls)
	})
}

func TestOAuthCallback(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"gho_linked","token_type":"bearer","scope":"repo"}`)
	}))
	t.Cleanup(tokenServer.Close)

	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{tokenURL: tokenServer.URL})
		state, err := ts.state.Sign("user-1")
		require.NoError(t, err)

		rec := serve(t, ts, http.MethodGet, "/oauth/callback?code=the-code&state="+url.QueryEscape(state), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Success!")

		token, err := ts.store.Get(t.Context(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "gho_linked", token.AccessToken)
	})

	t.Run("denied", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{tokenURL: tokenServer.URL})
		state, err := ts.state.Sign("user-1")
		require.NoError(t, err)

		rec := serve(t, ts, http.MethodGet, "/oauth/callback?error=access_denied&state="+url.QueryEscape(state), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Denied")
	})

	t.Run("invalid state", func(t *testing.T) {
		ts := newTestServer(t, testServerOptions{tokenURL: tokenServer.URL})

		rec := serve(t, ts, http.MethodGet, "/oauth/callback?code=the-code&state=forged", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Denied")
	})
}

func TestShutdown(t *testing.T) {
	ts := newTestServer(t, testServerOptions{})
	assert.False(t, ts.sc.IsShutdown())

	require.NoError(t, ts.sc.Shutdown())
	require.NoError(t, ts.sc.Shutdown())
	assert.True(t, ts.sc.IsShutdown())
	assert.Error(t, ts.sc.Context().Err())
}
