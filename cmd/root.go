package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/connectorhub/internal/config"
)

// rootCmd represents the base command for the connectorhub application
var rootCmd = &cobra.Command{
	Use:   "connectorhub",
	Short: "Multi-account connectors for AI assistants",
	Long: `connectorhub exposes Gmail, Google Calendar, Apple Calendar (CalDAV),
Notion, Holded and WhatsApp Business as MCP (Model Context Protocol) tools.

Every connector manages several accounts side by side; each tool takes an
optional account argument and falls back to the connector's default account.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

var envFile string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "connectorhub version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads --env-file when given, else .env in the working
// directory, with the process environment taking precedence.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.LoadFile(envFile)
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Dotenv file with connector settings (default: .env in the working directory)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
