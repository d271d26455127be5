package github_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/instrumentation"
	"github.com/teemow/gitmail/internal/tools/batch"
	"github.com/teemow/gitmail/internal/tools/common"
)

// unauthorizedMessage is shown when the GitHub token is missing or rejected.
const unauthorizedMessage = "GitHub rejected the request: no valid token. Set GITHUB_TOKEN to a token with the repo scope."

// Toolkit holds what the GitHub tools share.
type Toolkit struct {
	Dispatcher *addon.Dispatcher

	// User identifies the caller in audit logs and metrics.
	User string

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// RegisterGitHubTools registers the GitHub tools with the MCP server.
// Write tools are skipped when readOnly is set.
func RegisterGitHubTools(s *mcpserver.MCPServer, tk *Toolkit, readOnly bool) error {
	if tk == nil || tk.Dispatcher == nil {
		return errors.New("dispatcher is required")
	}

	add := func(tool mcp.Tool, handler mcpserver.ToolHandlerFunc) {
		s.AddTool(tool, common.InstrumentedToolHandler(tool.Name, tk.Metrics, tk.Logger, handler))
	}

	add(mcp.NewTool("github_extract_references",
		mcp.WithDescription("List the GitHub issue and pull request links found in a text, first occurrence first and without duplicates"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Free text, e.g. the body of an email"),
		),
	), tk.handleExtractReferences)

	add(mcp.NewTool("github_render_cards",
		mcp.WithDescription("Render the Gmail add-on cards (JSON) for every GitHub issue and pull request link in a text"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Free text, e.g. the body of an email"),
		),
	), tk.handleRenderCards)

	add(mcp.NewTool("github_viewer",
		mcp.WithDescription("Show the GitHub login the configured token belongs to"),
	), tk.handleViewer)

	if readOnly {
		return nil
	}

	add(mcp.NewTool("github_close_issues",
		mcp.WithDescription("Close one or more GitHub issues"),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Issue node ID (string) or array of issue node IDs, as found in rendered cards"),
		),
	), tk.toggleHandler("false"))

	add(mcp.NewTool("github_reopen_issues",
		mcp.WithDescription("Reopen one or more closed GitHub issues"),
		mcp.WithString("ids",
			mcp.Required(),
			mcp.Description("Issue node ID (string) or array of issue node IDs, as found in rendered cards"),
		),
	), tk.toggleHandler("true"))

	add(mcp.NewTool("github_add_comment",
		mcp.WithDescription("Comment on a GitHub issue or pull request"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Node ID of the issue or pull request"),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Comment text"),
		),
	), tk.handleAddComment)

	return nil
}

func (tk *Toolkit) handleExtractReferences(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := common.RequiredString(request.GetArguments(), "text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(tk.Dispatcher.References(text)), nil
}

func (tk *Toolkit) handleRenderCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := common.RequiredString(request.GetArguments(), "text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cards, err := tk.Dispatcher.RenderMessage(ctx, tk.User, text)
	if err != nil {
		return toolError(err), nil
	}

	return jsonResult(cards), nil
}

func (tk *Toolkit) handleViewer(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := tk.Dispatcher.RenderSettings(ctx, tk.User)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(StatusMessage(&c)), nil
}

// toggleHandler returns the handler closing (currentState "false") or
// reopening (currentState "true") issues.
func (tk *Toolkit) toggleHandler(currentState string) mcpserver.ToolHandlerFunc {
	success := card.MessageClosed
	if currentState == "true" {
		success = card.MessageReopened
	}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := batch.ParseStringOrArray(request.GetArguments()["ids"], "ids")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results := batch.Process(ctx, ids, func(ctx context.Context, id string) (string, error) {
			return tk.runAction(ctx, addon.ActionRequest{
				FunctionID: card.FunctionToggleIssueState,
				Parameters: map[string]string{card.ParamCurrentState: currentState, card.ParamID: id},
				User:       tk.User,
			}, success)
		})
		return mcp.NewToolResultText(batch.FormatResults(results)), nil
	}
}

func (tk *Toolkit) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, err := common.RequiredString(args, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, _ := args["text"].(string)

	msg, err := tk.runAction(ctx, addon.ActionRequest{
		FunctionID: card.FunctionAddComment,
		Parameters: map[string]string{card.ParamID: id},
		FormInputs: map[string]string{card.InputCommentText: text},
		User:       tk.User,
	}, card.MessageCommented)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(msg), nil
}

// runAction runs a card action and turns the status card it answers with
// into a message or an error.
func (tk *Toolkit) runAction(ctx context.Context, req addon.ActionRequest, success string) (string, error) {
	result, err := tk.Dispatcher.HandleAction(ctx, req)
	if err != nil {
		return "", err
	}
	msg := StatusMessage(result.Card)
	if msg != success {
		return "", errors.New(msg)
	}
	return msg, nil
}

// StatusMessage returns the first paragraph of a card, which is the message
// of status cards.
func StatusMessage(c *card.Card) string {
	if c == nil {
		return ""
	}
	for _, s := range c.Sections {
		for _, w := range s.Widgets {
			if w.TextParagraph != nil {
				return w.TextParagraph.Text
			}
		}
	}
	return ""
}

// jsonResult returns v as indented JSON text.
func jsonResult(v interface{}) *mcp.CallToolResult {
	result, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(result))
}

func toolError(err error) *mcp.CallToolResult {
	if github.IsUnauthorized(err) {
		return mcp.NewToolResultError(unauthorizedMessage)
	}
	return mcp.NewToolResultError(fmt.Sprintf("GitHub request failed: %v", err))
}
