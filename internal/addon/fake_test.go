package addon

import (
	"context"
	"sync"

	"github.com/teemow/gitmail/internal/github"
)

// fakeGitHub records calls and answers from canned values.
type fakeGitHub struct {
	mu    sync.Mutex
	calls []string

	issues   map[github.Reference]*github.IssueView
	pulls    map[github.Reference]*github.PullRequestView
	viewErr  error
	mutErr   error
	login    string
	loginErr error

	comments []string
}

func (f *fakeGitHub) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGitHub) IssueView(_ context.Context, ref github.Reference) (*github.IssueView, error) {
	f.record("IssueView " + ref.String())
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	if v, ok := f.issues[ref]; ok {
		return v, nil
	}
	return nil, &github.RenderableError{Message: github.UnknownErrorMessage, Severity: github.SeverityErr}
}

func (f *fakeGitHub) PullRequestView(_ context.Context, ref github.Reference) (*github.PullRequestView, error) {
	f.record("PullRequestView " + ref.String())
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	if v, ok := f.pulls[ref]; ok {
		return v, nil
	}
	return nil, &github.RenderableError{Message: github.UnknownErrorMessage, Severity: github.SeverityErr}
}

func (f *fakeGitHub) CloseIssue(_ context.Context, id string) error {
	f.record("CloseIssue " + id)
	return f.mutErr
}

func (f *fakeGitHub) ReopenIssue(_ context.Context, id string) error {
	f.record("ReopenIssue " + id)
	return f.mutErr
}

func (f *fakeGitHub) AddComment(_ context.Context, id, body string) error {
	f.record("AddComment " + id)
	f.comments = append(f.comments, body)
	return f.mutErr
}

func (f *fakeGitHub) ViewerLogin(context.Context) (string, error) {
	f.record("ViewerLogin")
	return f.login, f.loginErr
}

type fakeResetter struct {
	users []string
	err   error
}

func (r *fakeResetter) Reset(_ context.Context, user string) error {
	r.users = append(r.users, user)
	return r.err
}

// newTestDispatcher wires gh for every user.
func newTestDispatcher(gh *fakeGitHub, resetter Resetter) *Dispatcher {
	return NewDispatcher(Options{
		Connector: ConnectorFunc(func(context.Context, string) (GitHub, error) {
			return gh, nil
		}),
		Resetter: resetter,
	})
}
