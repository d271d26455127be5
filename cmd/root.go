package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gitmail application
var rootCmd = &cobra.Command{
	Use:   "gitmail",
	Short: "Shows GitHub issues and pull requests linked from Gmail messages",
	Long: `gitmail renders the GitHub issues and pull requests referenced in a Gmail
message as add-on cards, and lets you close, reopen and comment on them
without leaving your inbox.

It can run as:
  - The HTTP backend of a Gmail add-on (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)
  - A command-line scanner for single messages (scan)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Global flags shared by every subcommand.
var (
	envFiles  []string
	logLevel  string
	logFormat string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gitmail version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "Env files to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from GITMAIL_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (default from GITMAIL_LOG_FORMAT)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
