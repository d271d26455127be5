package github

import (
	"fmt"
	"time"
)

// ghostLogin stands in for deleted accounts, which GitHub returns as a null
// author.
const ghostLogin = "ghost"

// Author is the account that opened an issue or pull request.
type Author struct {
	Login      string `json:"login"`
	AvatarURL  string `json:"avatarUrl"`
	ProfileURL string `json:"profileUrl"`
}

// CommentView is one comment as shown on a card.
type CommentView struct {
	AuthorLogin string `json:"authorLogin"`
	BodyHTML    string `json:"bodyHtml"`
}

// IssueView is a read-only snapshot of one issue response.
type IssueView struct {
	Ref        Reference     `json:"ref"`
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Closed     bool          `json:"closed"`
	BodyHTML   string        `json:"bodyHtml,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	Author     Author        `json:"author"`
	CanUpdate  bool          `json:"canUpdate"`
	CanComment bool          `json:"canComment"`
	Permalink  string        `json:"permalink"`
	Comments   []CommentView `json:"comments"`
}

// PullState is the lifecycle state of a pull request. Values other than the
// three constants are kept verbatim.
type PullState string

const (
	PullOpen   PullState = "OPEN"
	PullClosed PullState = "CLOSED"
	PullMerged PullState = "MERGED"
)

// PullRequestView is a read-only snapshot of one pull request response.
type PullRequestView struct {
	Ref          Reference     `json:"ref"`
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	State        PullState     `json:"state"`
	BodyHTML     string        `json:"bodyHtml,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	Author       Author        `json:"author"`
	CanUpdate    bool          `json:"canUpdate"`
	CanComment   bool          `json:"canComment"`
	Permalink    string        `json:"permalink"`
	Comments     []CommentView `json:"comments"`
	BaseBranch   string        `json:"baseBranch"`
	HeadBranch   string        `json:"headBranch"`
	ChangedFiles int           `json:"changedFiles"`
	Additions    int           `json:"additions"`
	Deletions    int           `json:"deletions"`
	CommitCount  int           `json:"commitCount"`
}

// Response shapes. Required scalars are pointers so that absence can be
// told apart from a zero value.

type authorNode struct {
	AvatarURL string `json:"avatarUrl"`
	Login     string `json:"login"`
	URL       string `json:"url"`
}

type commentConnection struct {
	Nodes []struct {
		BodyHTML string      `json:"bodyHTML"`
		Author   *authorNode `json:"author"`
	} `json:"nodes"`
}

type issueNode struct {
	Title           *string           `json:"title"`
	Closed          *bool             `json:"closed"`
	ID              *string           `json:"id"`
	BodyHTML        string            `json:"bodyHTML"`
	ResourcePath    string            `json:"resourcePath"`
	CreatedAt       time.Time         `json:"createdAt"`
	ViewerCanUpdate bool              `json:"viewerCanUpdate"`
	ViewerCanReact  bool              `json:"viewerCanReact"`
	Author          *authorNode       `json:"author"`
	Comments        commentConnection `json:"comments"`
}

type issueResponse struct {
	Repository *struct {
		Issue *issueNode `json:"issue"`
	} `json:"repository"`
}

type pullRequestNode struct {
	Title           *string           `json:"title"`
	State           *string           `json:"state"`
	ID              *string           `json:"id"`
	BodyHTML        string            `json:"bodyHTML"`
	Permalink       string            `json:"permalink"`
	CreatedAt       time.Time         `json:"createdAt"`
	BaseRefName     string            `json:"baseRefName"`
	HeadRefName     string            `json:"headRefName"`
	ChangedFiles    int               `json:"changedFiles"`
	Additions       int               `json:"additions"`
	Deletions       int               `json:"deletions"`
	ViewerCanUpdate bool              `json:"viewerCanUpdate"`
	ViewerCanReact  bool              `json:"viewerCanReact"`
	Author          *authorNode       `json:"author"`
	Comments        commentConnection `json:"comments"`
	Commits         struct {
		TotalCount int `json:"totalCount"`
	} `json:"commits"`
}

type pullRequestResponse struct {
	Repository *struct {
		PullRequest *pullRequestNode `json:"pullRequest"`
	} `json:"repository"`
}

func missing(kind, field string) error {
	return fmt.Errorf("%w: %s has no %s", ErrNotFound, kind, field)
}

func (r *issueResponse) view(ref Reference, baseURL string) (*IssueView, error) {
	if r.Repository == nil {
		return nil, missing("response", "repository")
	}
	n := r.Repository.Issue
	switch {
	case n == nil:
		return nil, missing("repository", "issue")
	case n.ID == nil:
		return nil, missing("issue", "id")
	case n.Title == nil:
		return nil, missing("issue", "title")
	case n.Closed == nil:
		return nil, missing("issue", "closed")
	}

	return &IssueView{
		Ref:        ref,
		ID:         *n.ID,
		Title:      *n.Title,
		Closed:     *n.Closed,
		BodyHTML:   n.BodyHTML,
		CreatedAt:  n.CreatedAt,
		Author:     n.Author.author(),
		CanUpdate:  n.ViewerCanUpdate,
		CanComment: n.ViewerCanReact,
		Permalink:  baseURL + n.ResourcePath,
		Comments:   n.Comments.views(),
	}, nil
}

func (r *pullRequestResponse) view(ref Reference) (*PullRequestView, error) {
	if r.Repository == nil {
		return nil, missing("response", "repository")
	}
	n := r.Repository.PullRequest
	switch {
	case n == nil:
		return nil, missing("repository", "pull request")
	case n.ID == nil:
		return nil, missing("pull request", "id")
	case n.Title == nil:
		return nil, missing("pull request", "title")
	case n.State == nil:
		return nil, missing("pull request", "state")
	}

	return &PullRequestView{
		Ref:          ref,
		ID:           *n.ID,
		Title:        *n.Title,
		State:        PullState(*n.State),
		BodyHTML:     n.BodyHTML,
		CreatedAt:    n.CreatedAt,
		Author:       n.Author.author(),
		CanUpdate:    n.ViewerCanUpdate,
		CanComment:   n.ViewerCanReact,
		Permalink:    n.Permalink,
		Comments:     n.Comments.views(),
		BaseBranch:   n.BaseRefName,
		HeadBranch:   n.HeadRefName,
		ChangedFiles: n.ChangedFiles,
		Additions:    n.Additions,
		Deletions:    n.Deletions,
		CommitCount:  n.Commits.TotalCount,
	}, nil
}

func (a *authorNode) author() Author {
	if a == nil {
		return Author{Login: ghostLogin}
	}
	return Author{Login: a.Login, AvatarURL: a.AvatarURL, ProfileURL: a.URL}
}

func (c commentConnection) views() []CommentView {
	nodes := c.Nodes
	if len(nodes) > MaxComments {
		nodes = nodes[:MaxComments]
	}
	views := make([]CommentView, 0, len(nodes))
	for _, n := range nodes {
		login := ghostLogin
		if n.Author != nil {
			login = n.Author.Login
		}
		views = append(views, CommentView{AuthorLogin: login, BodyHTML: n.BodyHTML})
	}
	return views
}
