package github

import (
	"context"

	graphql "github.com/cli/shurcooL-graphql"

	"github.com/teemow/gitmail/internal/instrumentation"
)

// CloseIssueInput is the input of the closeIssue mutation.
type CloseIssueInput struct {
	IssueID graphql.ID `json:"issueId"`
}

// ReopenIssueInput is the input of the reopenIssue mutation.
type ReopenIssueInput struct {
	IssueID graphql.ID `json:"issueId"`
}

// AddCommentInput is the input of the addComment mutation.
type AddCommentInput struct {
	SubjectID graphql.ID     `json:"subjectId"`
	Body      graphql.String `json:"body"`
}

type mutationPayload struct {
	ClientMutationID *string `json:"clientMutationId"`
}

// CloseIssue closes the issue with the given node ID.
func (c *Client) CloseIssue(ctx context.Context, issueID string) error {
	var resp struct {
		CloseIssue mutationPayload `json:"closeIssue"`
	}
	variables := map[string]interface{}{
		"input": CloseIssueInput{IssueID: graphql.ID(issueID)},
	}
	return c.Mutate(ctx, instrumentation.OperationCloseIssue, closeIssueMutation, variables, &resp, true)
}

// ReopenIssue reopens the issue with the given node ID.
func (c *Client) ReopenIssue(ctx context.Context, issueID string) error {
	var resp struct {
		ReopenIssue mutationPayload `json:"reopenIssue"`
	}
	variables := map[string]interface{}{
		"input": ReopenIssueInput{IssueID: graphql.ID(issueID)},
	}
	return c.Mutate(ctx, instrumentation.OperationReopenIssue, reopenIssueMutation, variables, &resp, true)
}

// AddComment posts body on the issue or pull request with the given node ID.
// body is passed through SanitizeInput first.
func (c *Client) AddComment(ctx context.Context, subjectID, body string) error {
	var resp struct {
		AddComment mutationPayload `json:"addComment"`
	}
	variables := map[string]interface{}{
		"input": AddCommentInput{
			SubjectID: graphql.ID(subjectID),
			Body:      graphql.String(SanitizeInput(body)),
		},
	}
	return c.Mutate(ctx, instrumentation.OperationAddComment, addCommentMutation, variables, &resp, false)
}

// ViewerLogin returns the login of the authenticated user. An empty login
// is not an error.
func (c *Client) ViewerLogin(ctx context.Context) (string, error) {
	var resp struct {
		Viewer struct {
			Login string `json:"login"`
		} `json:"viewer"`
	}
	if err := c.Query(ctx, instrumentation.OperationViewer, viewerQuery, nil, &resp); err != nil {
		return "", err
	}
	return resp.Viewer.Login, nil
}
