package card

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/gitmail/internal/github"
)

// Function IDs of the card actions.
const (
	FunctionToggleIssueState = "toggleIssueState"
	FunctionAddComment       = "addComment"
	FunctionLogout           = "logout"
)

// Parameter and form input names shared with the action handlers.
const (
	ParamCurrentState = "currentState"
	ParamID           = "id"
	InputCommentText  = "commentText"
)

// Messages shown on status cards.
const (
	MessageNoLinks      = "No GitHub links found in this message."
	MessageBlankComment = "Comment text cannot be blank."
	MessageCommented    = "Comment created"
	MessageReopened     = "Issue reopened"
	MessageClosed       = "Issue closed"
	MessageUnreachable  = "Could not reach GitHub. Please try again."
	missingUsername     = "err: username not found. Are you being rate limited?"
)

const branchColor = "#274466"

// Context carries what renderers need beyond the view itself.
type Context struct {
	// ActionBaseURL is prefixed to function IDs, e.g.
	// "https://gitmail.example.com/actions". Empty leaves bare IDs.
	ActionBaseURL string
}

func (c Context) action(function string, params ...ActionParameter) Action {
	fn := function
	if c.ActionBaseURL != "" {
		fn = strings.TrimRight(c.ActionBaseURL, "/") + "/" + function
	}
	return Action{Function: fn, Parameters: params}
}

// FunctionID returns the function ID an action endpoint refers to; it
// inverts the prefixing done for rendered actions.
func FunctionID(function string) string {
	if i := strings.LastIndex(function, "/"); i >= 0 {
		return function[i+1:]
	}
	return function
}

// RenderIssue renders an issue card.
func RenderIssue(view *github.IssueView, ctx Context) Card {
	image := ImageOpenIssue
	if view.Closed {
		image = ImageClosedIssue
	}

	info := Section{Widgets: []Widget{
		{DecoratedText: &DecoratedText{
			Text: fmt.Sprintf(`Opened by %s at <time>%s</time>`,
				authorLink(view.Author), formatTime(view.CreatedAt)),
			StartIcon: avatar(view.Author),
			WrapText:  true,
		}},
	}}
	if view.BodyHTML != "" {
		info.Widgets = append(info.Widgets, paragraph(view.BodyHTML))
	}

	actions := []Button{linkButton("Open in GitHub", view.Permalink)}
	if view.CanUpdate {
		label := "Close"
		if view.Closed {
			label = "Reopen"
		}
		actions = append(actions, actionButton(label, ctx.action(FunctionToggleIssueState,
			ActionParameter{Key: ParamCurrentState, Value: strconv.FormatBool(view.Closed)},
			ActionParameter{Key: ParamID, Value: view.ID},
		)))
	}

	sections := []Section{info, {Widgets: []Widget{buttons(actions...)}}}
	sections = appendDiscussion(sections, view.Comments, view.CanComment, view.ID, ctx)

	return Card{
		Header: &Header{
			Title:        view.Title,
			Subtitle:     view.Ref.Subtitle(),
			ImageURL:     image,
			ImageAltText: "Issue",
		},
		Sections: sections,
	}
}

// RenderPull renders a pull request card. States other than open, closed
// and merged render without header image and without the merge sentence.
func RenderPull(view *github.PullRequestView, ctx Context) Card {
	image, action := pullState(view)

	info := Section{Widgets: []Widget{
		{DecoratedText: &DecoratedText{
			Text:      authorLink(view.Author) + " " + action,
			StartIcon: avatar(view.Author),
			WrapText:  true,
		}},
		{DecoratedText: &DecoratedText{
			Text: fmt.Sprintf(`<b>%d %s</b> changing <b>%d %s</b> with <b><font color="#28a745">%d</font> %s</b> and <b><font color="#cb2431">%d</font> %s</b>`,
				view.CommitCount, plural(view.CommitCount, "commit"),
				view.ChangedFiles, plural(view.ChangedFiles, "file"),
				view.Additions, plural(view.Additions, "addition"),
				view.Deletions, plural(view.Deletions, "deletion")),
			WrapText: true,
		}},
	}}

	sections := []Section{info}
	if view.BodyHTML != "" {
		sections = append(sections, Section{Header: "Description", Widgets: []Widget{paragraph(view.BodyHTML)}})
	}
	sections = append(sections, Section{Widgets: []Widget{buttons(linkButton("Open in GitHub", view.Permalink))}})
	sections = appendDiscussion(sections, view.Comments, view.CanComment, view.ID, ctx)

	return Card{
		Header: &Header{
			Title:        view.Title,
			Subtitle:     view.Ref.Subtitle(),
			ImageURL:     image,
			ImageAltText: "Pull Request",
		},
		Sections: sections,
	}
}

func pullState(view *github.PullRequestView) (image, action string) {
	head, base := branch(view.HeadBranch), branch(view.BaseBranch)
	switch view.State {
	case github.PullOpen:
		return ImagePullOpen, fmt.Sprintf("wants to merge %s into %s", head, base)
	case github.PullClosed:
		return ImagePullClosed, fmt.Sprintf("wanted to merge %s into %s", head, base)
	case github.PullMerged:
		return ImagePullMerged, fmt.Sprintf("had %s merged into %s", head, base)
	default:
		return "", ""
	}
}

// appendDiscussion adds the comment list and the comment form.
func appendDiscussion(sections []Section, comments []github.CommentView, canComment bool, id string, ctx Context) []Section {
	if len(comments) > 0 {
		widgets := make([]Widget, 0, len(comments))
		for _, c := range comments {
			widgets = append(widgets, paragraph(fmt.Sprintf("<b>%s</b><br>%s", html.EscapeString(c.AuthorLogin), c.BodyHTML)))
		}
		sections = append(sections, Section{
			Header:                    "Comments",
			Collapsible:               true,
			UncollapsibleWidgetsCount: 1,
			Widgets:                   widgets,
		})
	}

	if canComment {
		sections = append(sections, Section{Widgets: []Widget{
			{TextInput: &TextInput{Name: InputCommentText, Label: "Add a comment", Type: MultipleLine}},
			buttons(actionButton("Comment", ctx.action(FunctionAddComment, ActionParameter{Key: ParamID, Value: id}))),
		}})
	}
	return sections
}

// RenderStatus renders a status card for message. Unknown severities get no
// icon and no alt text.
func RenderStatus(message string, severity github.Severity) Card {
	icon := statusIcons[severity]
	return Card{Sections: []Section{{Widgets: []Widget{
		{Image: &Image{ImageURL: icon.url, AltText: icon.alt}},
		paragraph(message),
	}}}}
}

// RenderError renders a RenderableError as a status card.
func RenderError(err *github.RenderableError) Card {
	return RenderStatus(err.Message, err.Severity)
}

// RenderAbout renders the About card.
func RenderAbout() Card {
	return Card{
		Header: &Header{Title: "About"},
		Sections: []Section{
			{Widgets: []Widget{paragraph(
				`<a href="https://github.com/mymindstorm/GitMail">GitMail</a> &copy; 2018 <a href="https://github.com/mymindstorm">Brendan Early</a><br>` +
					`Served by <a href="https://github.com/teemow/gitmail">gitmail</a><br>`)}},
			{Header: "Acknowledgments", Widgets: []Widget{paragraph(
				`<a href="https://github.com/primer/octicons/">Octicons</a> by GitHub<br>` +
					`<a href="https://github.com/cli/go-gh">go-gh</a> by GitHub`)}},
		},
	}
}

// RenderSettings renders the Settings card for the signed-in GitHub user.
func RenderSettings(username string, ctx Context) Card {
	if username == "" {
		username = missingUsername
	}
	return Card{
		Header: &Header{Title: "Settings"},
		Sections: []Section{{
			Header: "Account",
			Widgets: []Widget{
				paragraph(fmt.Sprintf("You are currently signed in as <b>%s</b>", html.EscapeString(username))),
				buttons(actionButton("Sign out", ctx.action(FunctionLogout))),
			},
		}},
	}
}

func authorLink(a github.Author) string {
	if a.ProfileURL == "" {
		return html.EscapeString(a.Login)
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(a.ProfileURL), html.EscapeString(a.Login))
}

func avatar(a github.Author) *Icon {
	if a.AvatarURL == "" {
		return nil
	}
	return &Icon{IconURL: a.AvatarURL, AltText: a.Login}
}

func branch(name string) string {
	return fmt.Sprintf(`<font color="%s"><b>%s</b></font>`, branchColor, html.EscapeString(name))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
