package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/gitmail/internal/google"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate the command-line tools",
	}
	cmd.AddCommand(newLoginGoogleCmd())
	return cmd
}

func newLoginGoogleCmd() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Log in to Google so scan can read Gmail messages",
		Long: `Run the browser OAuth flow for the Google client in GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET and cache the resulting token. Only read access to
Gmail is requested.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
				return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
			}

			out := cmd.ErrOrStderr()
			token, err := google.LoopbackLogin(cmd.Context(), google.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret), func(authURL string) {
				fmt.Fprintf(out, "Open this URL in your browser to authorize gitmail:\n\n  %s\n\n", authURL)
			})
			if err != nil {
				return fmt.Errorf("google login failed: %w", err)
			}

			cache := google.NewTokenCache(cacheDir)
			if err := cache.Save(token); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", cache.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for the cached token (default: user cache directory)")

	return cmd
}
