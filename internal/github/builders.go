package github

import (
	"context"

	graphql "github.com/cli/shurcooL-graphql"

	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/logging"
)

func referenceVariables(ref Reference) map[string]interface{} {
	return map[string]interface{}{
		"owner":  graphql.String(ref.Owner),
		"name":   graphql.String(ref.Repo),
		"number": graphql.Int(ref.Number),
	}
}

// IssueView fetches one issue. GraphQL errors and missing nodes are returned
// as a *RenderableError; unauthorized, backend and transport failures are
// returned as they are.
func (c *Client) IssueView(ctx context.Context, ref Reference) (*IssueView, error) {
	var resp issueResponse
	err := c.Query(ctx, instrumentation.OperationFetchIssue, issueQuery, referenceVariables(ref), &resp)
	if err != nil {
		return nil, c.renderable(ref, err)
	}

	view, err := resp.view(ref, c.baseURL)
	if err != nil {
		return nil, c.renderable(ref, err)
	}
	return view, nil
}

// PullRequestView fetches one pull request, with the same error contract as
// IssueView.
func (c *Client) PullRequestView(ctx context.Context, ref Reference) (*PullRequestView, error) {
	var resp pullRequestResponse
	err := c.Query(ctx, instrumentation.OperationFetchPull, pullRequestQuery, referenceVariables(ref), &resp)
	if err != nil {
		return nil, c.renderable(ref, err)
	}

	view, err := resp.view(ref)
	if err != nil {
		return nil, c.renderable(ref, err)
	}
	return view, nil
}

func (c *Client) renderable(ref Reference, err error) error {
	converted := AsRenderable(err)
	if converted != err {
		c.logger.Debug("rendering GitHub error as card",
			logging.Reference(ref.Owner, ref.Repo, ref.Number),
			logging.Kind(string(ref.Kind)),
			logging.Err(err))
	}
	return converted
}
