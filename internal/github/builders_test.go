package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphQLCall struct {
	query     string
	variables map[string]interface{}
}

// fakeGraphQL decodes data into the response, or fails with err.
type fakeGraphQL struct {
	data  string
	err   error
	calls []graphQLCall
}

func (f *fakeGraphQL) DoWithContext(_ context.Context, query string, variables map[string]interface{}, response interface{}) error {
	f.calls = append(f.calls, graphQLCall{query: query, variables: variables})
	if f.err != nil {
		return f.err
	}
	if f.data == "" {
		return nil
	}
	return json.Unmarshal([]byte(f.data), response)
}

func newTestClient(gql GraphQL) *Client {
	return NewClientWithGraphQL(gql, ClientOptions{BaseURL: "https://github.com/"})
}

var (
	issueRef = Reference{Owner: "acme", Repo: "widgets", Kind: KindIssue, Number: 42}
	pullRef  = Reference{Owner: "acme", Repo: "widgets", Kind: KindPull, Number: 7}
)

const issueData = `{
  "repository": {
    "issue": {
      "title": "Widgets fall over",
      "closed": false,
      "id": "I_kwDOA",
      "bodyHTML": "<p>They fall.</p>",
      "resourcePath": "/acme/widgets/issues/42",
      "createdAt": "2024-03-01T10:00:00Z",
      "viewerCanUpdate": true,
      "viewerCanReact": true,
      "author": {"avatarUrl": "https://avatars.example/u/1", "login": "octocat", "url": "https://github.com/octocat"},
      "comments": {"nodes": [
        {"bodyHTML": "<p>Same here</p>", "author": {"login": "hubot"}},
        {"bodyHTML": "<p>gone</p>", "author": null}
      ]}
    }
  }
}`

func TestIssueView(t *testing.T) {
	gql := &fakeGraphQL{data: issueData}
	view, err := newTestClient(gql).IssueView(context.Background(), issueRef)
	require.NoError(t, err)

	assert.Equal(t, &IssueView{
		Ref:        issueRef,
		ID:         "I_kwDOA",
		Title:      "Widgets fall over",
		Closed:     false,
		BodyHTML:   "<p>They fall.</p>",
		CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Author:     Author{Login: "octocat", AvatarURL: "https://avatars.example/u/1", ProfileURL: "https://github.com/octocat"},
		CanUpdate:  true,
		CanComment: true,
		Permalink:  "https://github.com/acme/widgets/issues/42",
		Comments: []CommentView{
			{AuthorLogin: "hubot", BodyHTML: "<p>Same here</p>"},
			{AuthorLogin: "ghost", BodyHTML: "<p>gone</p>"},
		},
	}, view)

	require.Len(t, gql.calls, 1)
	assert.Equal(t, issueQuery, gql.calls[0].query)
	assert.EqualValues(t, "acme", gql.calls[0].variables["owner"])
	assert.EqualValues(t, "widgets", gql.calls[0].variables["name"])
	assert.EqualValues(t, 42, gql.calls[0].variables["number"])
}

func TestIssueView_CommentWindow(t *testing.T) {
	nodes := make([]string, 0, 35)
	for i := 0; i < 35; i++ {
		nodes = append(nodes, fmt.Sprintf(`{"bodyHTML": "c%d", "author": {"login": "u"}}`, i))
	}
	data := fmt.Sprintf(`{"repository": {"issue": {"title": "t", "closed": true, "id": "I_1", "comments": {"nodes": [%s]}}}}`,
		strings.Join(nodes, ","))

	view, err := newTestClient(&fakeGraphQL{data: data}).IssueView(context.Background(), issueRef)
	require.NoError(t, err)
	assert.Len(t, view.Comments, MaxComments)
	assert.Equal(t, "c0", view.Comments[0].BodyHTML)
	assert.Equal(t, "c29", view.Comments[MaxComments-1].BodyHTML)
}

func TestIssueView_Errors(t *testing.T) {
	tests := []struct {
		name        string
		gql         *fakeGraphQL
		wantMessage string
	}{
		{
			name: "graphql errors use first message",
			gql: &fakeGraphQL{err: &api.GraphQLError{Errors: []api.GraphQLErrorItem{
				{Message: "Could not resolve to a Repository with the name 'acme/widgets'."},
				{Message: "ignored"},
			}}},
			wantMessage: "Could not resolve to a Repository with the name 'acme/widgets'.",
		},
		{
			name:        "missing repository",
			gql:         &fakeGraphQL{data: `{"repository": null}`},
			wantMessage: UnknownErrorMessage,
		},
		{
			name:        "missing issue",
			gql:         &fakeGraphQL{data: `{"repository": {"issue": null}}`},
			wantMessage: UnknownErrorMessage,
		},
		{
			name:        "missing required field",
			gql:         &fakeGraphQL{data: `{"repository": {"issue": {"id": "I_1", "closed": false}}}`},
			wantMessage: UnknownErrorMessage,
		},
		{
			name:        "wrong field type",
			gql:         &fakeGraphQL{data: `{"repository": {"issue": {"id": "I_1", "title": 5, "closed": false}}}`},
			wantMessage: UnknownErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := newTestClient(tt.gql).IssueView(context.Background(), issueRef)
			assert.Nil(t, view)

			var r *RenderableError
			require.ErrorAs(t, err, &r)
			assert.Equal(t, tt.wantMessage, r.Message)
			assert.Equal(t, SeverityErr, r.Severity)
		})
	}
}

func TestIssueView_HardFailuresPropagate(t *testing.T) {
	_, err := newTestClient(&fakeGraphQL{err: &api.HTTPError{StatusCode: 401}}).IssueView(context.Background(), issueRef)
	assert.True(t, IsUnauthorized(err))

	_, err = newTestClient(&fakeGraphQL{err: &api.HTTPError{StatusCode: 500, Message: "boom"}}).IssueView(context.Background(), issueRef)
	assert.True(t, IsBackendError(err))
}

const pullData = `{
  "repository": {
    "pullRequest": {
      "title": "Stabilize widgets",
      "state": "MERGED",
      "id": "PR_kwDOB",
      "bodyHTML": "",
      "permalink": "https://github.com/acme/widgets/pull/7",
      "createdAt": "2024-03-02T08:30:00Z",
      "baseRefName": "main",
      "headRefName": "fix/stability",
      "changedFiles": 1,
      "additions": 12,
      "deletions": 3,
      "viewerCanUpdate": false,
      "viewerCanReact": true,
      "author": {"avatarUrl": "https://avatars.example/u/2", "login": "hubot", "url": "https://github.com/hubot"},
      "comments": {"nodes": []},
      "commits": {"totalCount": 2}
    }
  }
}`

func TestPullRequestView(t *testing.T) {
	gql := &fakeGraphQL{data: pullData}
	view, err := newTestClient(gql).PullRequestView(context.Background(), pullRef)
	require.NoError(t, err)

	assert.Equal(t, &PullRequestView{
		Ref:          pullRef,
		ID:           "PR_kwDOB",
		Title:        "Stabilize widgets",
		State:        PullMerged,
		CreatedAt:    time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC),
		Author:       Author{Login: "hubot", AvatarURL: "https://avatars.example/u/2", ProfileURL: "https://github.com/hubot"},
		CanUpdate:    false,
		CanComment:   true,
		Permalink:    "https://github.com/acme/widgets/pull/7",
		Comments:     []CommentView{},
		BaseBranch:   "main",
		HeadBranch:   "fix/stability",
		ChangedFiles: 1,
		Additions:    12,
		Deletions:    3,
		CommitCount:  2,
	}, view)

	require.Len(t, gql.calls, 1)
	assert.Equal(t, pullRequestQuery, gql.calls[0].query)
	assert.EqualValues(t, 7, gql.calls[0].variables["number"])
}

func TestPullRequestView_UnknownStateKept(t *testing.T) {
	data := `{"repository": {"pullRequest": {"title": "t", "state": "DRAFTY", "id": "PR_1"}}}`
	view, err := newTestClient(&fakeGraphQL{data: data}).PullRequestView(context.Background(), pullRef)
	require.NoError(t, err)
	assert.Equal(t, PullState("DRAFTY"), view.State)
	assert.Equal(t, "ghost", view.Author.Login)
}

func TestPullRequestView_MissingNode(t *testing.T) {
	_, err := newTestClient(&fakeGraphQL{data: `{"repository": {"pullRequest": null}}`}).PullRequestView(context.Background(), pullRef)
	var r *RenderableError
	require.ErrorAs(t, err, &r)
	assert.Equal(t, UnknownErrorMessage, r.Message)
}
