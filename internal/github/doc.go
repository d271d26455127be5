// Package github turns GitHub links found in an email into read-only view
// models, and performs the few mutations the add-on offers.
//
// The package has four parts:
//
//   - ExtractReferences scans free text for issue and pull request URLs and
//     returns them deduplicated, in order of first appearance.
//   - Client sends GraphQL documents through an authorized transport and
//     classifies failures (GraphQL errors, unauthorized, backend errors).
//   - IssueView and PullRequestView decode one API response into a snapshot
//     used purely for rendering. GraphQL errors and missing nodes come back as
//     a *RenderableError; only unauthorized and backend failures escape.
//   - CloseIssue, ReopenIssue and AddComment run single mutations.
//
// Example usage:
//
//	refs := github.ExtractReferences(body, "https://github.com")
//	client, err := github.NewClient(github.ClientOptions{TokenSource: ts})
//	if err != nil {
//	    return err
//	}
//	for _, ref := range refs {
//	    view, err := client.IssueView(ctx, ref)
//	    ...
//	}
package github
