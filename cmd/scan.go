package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/gitmail/internal/addon"
	"github.com/teemow/gitmail/internal/card"
	"github.com/teemow/gitmail/internal/config"
	"github.com/teemow/gitmail/internal/github"
	"github.com/teemow/gitmail/internal/gmail"
	"github.com/teemow/gitmail/internal/google"
	"github.com/teemow/gitmail/internal/tools/github_tools"
)

const (
	formatJSON = "json"
	formatText = "text"

	// scanUser names the local caller in audit logs.
	scanUser = "cli"
)

func newScanCmd() *cobra.Command {
	var (
		gmailMessage string
		output       string
		cacheDir     string
	)

	cmd := &cobra.Command{
		Use:   "scan [file]",
		Short: "Render the GitHub cards for one message",
		Long: `Render the cards the Gmail add-on would show for a message.

The message text is read from the given file, from stdin when no file (or
"-") is given, or from Gmail with --gmail-message. Reading from Gmail needs
either GOOGLE_ACCESS_TOKEN or a cached login (gitmail login google).

GitHub is queried with GITHUB_TOKEN.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != formatJSON && output != formatText {
				return fmt.Errorf("unsupported output format %q (supported: json, text)", output)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if gmailMessage != "" && len(args) > 0 {
				return errors.New("a file cannot be combined with --gmail-message")
			}

			text, err := readScanInput(cmd.Context(), cfg, cmd.InOrStdin(), args, gmailMessage, cacheDir)
			if err != nil {
				return err
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			dispatcher := addon.NewDispatcher(addon.Options{
				BaseURL:   cfg.BaseURL,
				Connector: personalConnector(cfg, logger, nil),
				Logger:    logger,
			})
			cards, err := dispatcher.RenderMessage(cmd.Context(), scanUser, text)
			if github.IsUnauthorized(err) {
				return errors.New("GitHub rejected the request, set GITHUB_TOKEN to a valid token")
			}
			if err != nil {
				return err
			}
			return writeCards(cmd.OutOrStdout(), cards, output)
		},
	}

	cmd.Flags().StringVar(&gmailMessage, "gmail-message", "", "Read the message with this ID from Gmail")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory of the cached Google token (default: user cache directory)")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format: text or json")

	return cmd
}

func readScanInput(ctx context.Context, cfg *config.Config, stdin io.Reader, args []string, gmailMessage, cacheDir string) (string, error) {
	if gmailMessage != "" {
		ts, err := googleTokenSource(ctx, cfg, cacheDir)
		if err != nil {
			return "", err
		}
		client, err := gmail.NewClient(ctx, gmail.Options{TokenSource: ts})
		if err != nil {
			return "", err
		}
		return client.MessageText(ctx, gmailMessage)
	}

	if len(args) == 1 && args[0] != "-" {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("failed to read message file: %w", err)
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message from stdin: %w", err)
	}
	return string(raw), nil
}

// googleTokenSource prefers GOOGLE_ACCESS_TOKEN over the cached login.
func googleTokenSource(ctx context.Context, cfg *config.Config, cacheDir string) (oauth2.TokenSource, error) {
	if cfg.Google.AccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Google.AccessToken}), nil
	}
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required to read Gmail (or set GOOGLE_ACCESS_TOKEN)")
	}
	cache := google.NewTokenCache(cacheDir)
	return cache.Load(ctx, google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret))
}

// writeCards prints cards as JSON or as one summary line per card.
func writeCards(w io.Writer, cards []card.Card, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cards)
	}

	for i := range cards {
		c := &cards[i]
		var line string
		switch {
		case c.Header != nil && c.Header.Subtitle != "":
			line = fmt.Sprintf("%s\t%s", c.Header.Subtitle, c.Header.Title)
		case c.Header != nil:
			line = c.Header.Title
		default:
			line = github_tools.StatusMessage(c)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
