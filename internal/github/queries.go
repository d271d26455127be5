package github

// MaxComments is the fixed comment window fetched for every card.
const MaxComments = 30

// Documents are sent verbatim; every caller-provided value travels as a
// variable.
const (
	issueQuery = `query IssueCard($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) {
      title closed id bodyHTML resourcePath createdAt viewerCanUpdate viewerCanReact
      author { avatarUrl login url }
      comments(first: 30) { nodes { bodyHTML author { login } } }
    }
  }
}`

	pullRequestQuery = `query PullRequestCard($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequest(number: $number) {
      title state id bodyHTML permalink createdAt baseRefName headRefName
      changedFiles additions deletions viewerCanUpdate viewerCanReact
      author { avatarUrl login url }
      comments(first: 30) { nodes { bodyHTML author { login } } }
      commits { totalCount }
    }
  }
}`

	viewerQuery = `query Viewer { viewer { login } }`

	closeIssueMutation = `mutation CloseIssue($input: CloseIssueInput!) {
  closeIssue(input: $input) { clientMutationId }
}`

	reopenIssueMutation = `mutation ReopenIssue($input: ReopenIssueInput!) {
  reopenIssue(input: $input) { clientMutationId }
}`

	addCommentMutation = `mutation AddComment($input: AddCommentInput!) {
  addComment(input: $input) { clientMutationId }
}`
)
