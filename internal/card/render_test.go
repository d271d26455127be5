package card

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/gitmail/internal/github"
)

var testCtx = Context{ActionBaseURL: "https://gitmail.example.com/actions/"}

func testIssue() *github.IssueView {
	return &github.IssueView{
		Ref:        github.Reference{Owner: "acme", Repo: "widgets", Kind: github.KindIssue, Number: 42},
		ID:         "I_1",
		Title:      "Widgets fall over",
		BodyHTML:   "<p>They fall.</p>",
		CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Author:     github.Author{Login: "octocat", AvatarURL: "https://avatars.example/1", ProfileURL: "https://github.com/octocat"},
		CanUpdate:  true,
		CanComment: true,
		Permalink:  "https://github.com/acme/widgets/issues/42",
		Comments: []github.CommentView{
			{AuthorLogin: "hubot", BodyHTML: "<p>first</p>"},
			{AuthorLogin: "monalisa", BodyHTML: "<p>second</p>"},
		},
	}
}

func testPull(state github.PullState) *github.PullRequestView {
	return &github.PullRequestView{
		Ref:          github.Reference{Owner: "acme", Repo: "widgets", Kind: github.KindPull, Number: 7},
		ID:           "PR_1",
		Title:        "Stabilize widgets",
		State:        state,
		Author:       github.Author{Login: "hubot", AvatarURL: "https://avatars.example/2", ProfileURL: "https://github.com/hubot"},
		Permalink:    "https://github.com/acme/widgets/pull/7",
		BaseBranch:   "main",
		HeadBranch:   "fix/stability",
		CommitCount:  1,
		ChangedFiles: 3,
		Additions:    1,
		Deletions:    0,
	}
}

func TestRenderIssue(t *testing.T) {
	c := RenderIssue(testIssue(), testCtx)

	require.NotNil(t, c.Header)
	assert.Equal(t, Header{
		Title:        "Widgets fall over",
		Subtitle:     "#42 in acme/widgets",
		ImageURL:     ImageOpenIssue,
		ImageAltText: "Issue",
	}, *c.Header)

	require.Len(t, c.Sections, 4)

	info := c.Sections[0]
	require.Len(t, info.Widgets, 2)
	assert.Equal(t, &DecoratedText{
		Text:      `Opened by <a href="https://github.com/octocat">octocat</a> at <time>2024-03-01T10:00:00Z</time>`,
		WrapText:  true,
		StartIcon: &Icon{IconURL: "https://avatars.example/1", AltText: "octocat"},
	}, info.Widgets[0].DecoratedText)
	assert.Equal(t, "<p>They fall.</p>", info.Widgets[1].TextParagraph.Text)

	btns := c.Sections[1].Widgets[0].ButtonList.Buttons
	require.Len(t, btns, 2)
	assert.Equal(t, "Open in GitHub", btns[0].Text)
	assert.Equal(t, "https://github.com/acme/widgets/issues/42", btns[0].OnClick.OpenLink.URL)
	assert.Equal(t, "Close", btns[1].Text)
	assert.Equal(t, "https://gitmail.example.com/actions/toggleIssueState", btns[1].OnClick.Action.Function)
	assert.Equal(t, "false", btns[1].OnClick.Action.Param(ParamCurrentState))
	assert.Equal(t, "I_1", btns[1].OnClick.Action.Param(ParamID))

	comments := c.Sections[2]
	assert.Equal(t, "Comments", comments.Header)
	assert.True(t, comments.Collapsible)
	assert.Equal(t, 1, comments.UncollapsibleWidgetsCount)
	require.Len(t, comments.Widgets, 2)
	assert.Equal(t, "<b>hubot</b><br><p>first</p>", comments.Widgets[0].TextParagraph.Text)

	form := c.Sections[3]
	require.Len(t, form.Widgets, 2)
	assert.Equal(t, &TextInput{Name: InputCommentText, Label: "Add a comment", Type: MultipleLine}, form.Widgets[0].TextInput)
	comment := form.Widgets[1].ButtonList.Buttons[0]
	assert.Equal(t, "Comment", comment.Text)
	assert.Equal(t, "https://gitmail.example.com/actions/addComment", comment.OnClick.Action.Function)
	assert.Equal(t, "I_1", comment.OnClick.Action.Param(ParamID))
}

func TestRenderIssue_ClosedShowsReopen(t *testing.T) {
	view := testIssue()
	view.Closed = true

	c := RenderIssue(view, testCtx)
	assert.Equal(t, ImageClosedIssue, c.Header.ImageURL)
	btn := c.Sections[1].Widgets[0].ButtonList.Buttons[1]
	assert.Equal(t, "Reopen", btn.Text)
	assert.Equal(t, "true", btn.OnClick.Action.Param(ParamCurrentState))
}

func TestRenderIssue_OptionalSections(t *testing.T) {
	view := testIssue()
	view.BodyHTML = ""
	view.CanUpdate = false
	view.CanComment = false
	view.Comments = nil

	c := RenderIssue(view, Context{})
	require.Len(t, c.Sections, 2)
	assert.Len(t, c.Sections[0].Widgets, 1, "no body paragraph")
	assert.Len(t, c.Sections[1].Widgets[0].ButtonList.Buttons, 1, "no toggle button")
}

func TestRenderIssue_Idempotent(t *testing.T) {
	view := testIssue()
	assert.Equal(t, RenderIssue(view, testCtx), RenderIssue(view, testCtx))
}

func TestRenderIssue_BareFunctionIDs(t *testing.T) {
	c := RenderIssue(testIssue(), Context{})
	assert.Equal(t, FunctionToggleIssueState, c.Sections[1].Widgets[0].ButtonList.Buttons[1].OnClick.Action.Function)
}

func TestRenderPull_States(t *testing.T) {
	head := `<font color="#274466"><b>fix/stability</b></font>`
	base := `<font color="#274466"><b>main</b></font>`
	author := `<a href="https://github.com/hubot">hubot</a>`

	tests := []struct {
		state     github.PullState
		wantImage string
		wantText  string
	}{
		{github.PullOpen, ImagePullOpen, author + " wants to merge " + head + " into " + base},
		{github.PullClosed, ImagePullClosed, author + " wanted to merge " + head + " into " + base},
		{github.PullMerged, "", author + " had " + head + " merged into " + base},
		{github.PullState("DRAFT"), "", author + " "},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			c := RenderPull(testPull(tt.state), testCtx)
			assert.Equal(t, tt.wantImage, c.Header.ImageURL)
			assert.Equal(t, "Pull Request", c.Header.ImageAltText)
			assert.Equal(t, "#7 in acme/widgets", c.Header.Subtitle)
			assert.Equal(t, tt.wantText, c.Sections[0].Widgets[0].DecoratedText.Text)
		})
	}
}

func TestRenderPull_Stats(t *testing.T) {
	c := RenderPull(testPull(github.PullOpen), testCtx)
	assert.Equal(t,
		`<b>1 commit</b> changing <b>3 files</b> with <b><font color="#28a745">1</font> addition</b> and <b><font color="#cb2431">0</font> deletions</b>`,
		c.Sections[0].Widgets[1].DecoratedText.Text)
}

func TestRenderPull_Sections(t *testing.T) {
	view := testPull(github.PullOpen)
	view.BodyHTML = "<p>Fixes it</p>"
	view.CanComment = true
	view.CanUpdate = true
	view.Comments = []github.CommentView{{AuthorLogin: "octocat", BodyHTML: "lgtm"}}

	c := RenderPull(view, testCtx)
	require.Len(t, c.Sections, 5)
	assert.Equal(t, "Description", c.Sections[1].Header)
	assert.Equal(t, "<p>Fixes it</p>", c.Sections[1].Widgets[0].TextParagraph.Text)

	btns := c.Sections[2].Widgets[0].ButtonList.Buttons
	require.Len(t, btns, 1, "pull requests have no close/reopen action")
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", btns[0].OnClick.OpenLink.URL)

	assert.Equal(t, "Comments", c.Sections[3].Header)
	assert.Equal(t, "PR_1", c.Sections[4].Widgets[1].ButtonList.Buttons[0].OnClick.Action.Param(ParamID))
}

func TestRenderPull_EscapesBranchNames(t *testing.T) {
	view := testPull(github.PullOpen)
	view.HeadBranch = "<evil>"
	c := RenderPull(view, testCtx)
	assert.Contains(t, c.Sections[0].Widgets[0].DecoratedText.Text, "&lt;evil&gt;")
}

func TestRenderStatus(t *testing.T) {
	tests := []struct {
		severity github.Severity
		wantURL  string
		wantAlt  string
	}{
		{github.SeverityWarn, ImageWarn, "Warning"},
		{github.SeverityErr, ImageError, "Error"},
		{github.SeveritySuccess, ImageSuccess, "Success"},
		{github.Severity("shrug"), "", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			c := RenderStatus("hello", tt.severity)
			assert.Nil(t, c.Header)
			require.Len(t, c.Sections, 1)
			require.Len(t, c.Sections[0].Widgets, 2)
			assert.Equal(t, &Image{ImageURL: tt.wantURL, AltText: tt.wantAlt}, c.Sections[0].Widgets[0].Image)
			assert.Equal(t, "hello", c.Sections[0].Widgets[1].TextParagraph.Text)
		})
	}
}

func TestRenderError(t *testing.T) {
	c := RenderError(&github.RenderableError{Message: "Could not resolve", Severity: github.SeverityErr})
	assert.Equal(t, RenderStatus("Could not resolve", github.SeverityErr), c)
}

func TestRenderAbout(t *testing.T) {
	c := RenderAbout()
	assert.Equal(t, "About", c.Header.Title)
	require.Len(t, c.Sections, 2)
	assert.Contains(t, c.Sections[0].Widgets[0].TextParagraph.Text, "GitMail")
	assert.Equal(t, "Acknowledgments", c.Sections[1].Header)
}

func TestRenderSettings(t *testing.T) {
	c := RenderSettings("octocat", testCtx)
	assert.Equal(t, "Settings", c.Header.Title)
	require.Len(t, c.Sections, 1)
	assert.Equal(t, "Account", c.Sections[0].Header)
	assert.Equal(t, "You are currently signed in as <b>octocat</b>", c.Sections[0].Widgets[0].TextParagraph.Text)
	signOut := c.Sections[0].Widgets[1].ButtonList.Buttons[0]
	assert.Equal(t, "Sign out", signOut.Text)
	assert.Equal(t, "https://gitmail.example.com/actions/logout", signOut.OnClick.Action.Function)

	c = RenderSettings("", testCtx)
	assert.Contains(t, c.Sections[0].Widgets[0].TextParagraph.Text, "username not found")
}

func TestFunctionID(t *testing.T) {
	assert.Equal(t, "addComment", FunctionID("https://gitmail.example.com/actions/addComment"))
	assert.Equal(t, "logout", FunctionID("logout"))
}

func TestCard_JSONShape(t *testing.T) {
	raw, err := json.Marshal(RenderSettings("octocat", Context{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"header": {"title": "Settings"},
		"sections": [{
			"header": "Account",
			"widgets": [
				{"textParagraph": {"text": "You are currently signed in as <b>octocat</b>"}},
				{"buttonList": {"buttons": [{"text": "Sign out", "onClick": {"action": {"function": "logout"}}}]}}
			]
		}]
	}`, string(raw))
}
