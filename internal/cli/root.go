package cli

import (
	"chat-workspace/internal/app"
	"chat-workspace/internal/config"
	"chat-workspace/internal/logger"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	plain     bool
	sessionID string
	version   = "dev"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chat-workspace",
	Short: "Multi-session LLM chat with a per-session file workspace",
	Long: `Chat with any OpenAI-compatible provider, keep each conversation's
generated files in its own workspace, and let beast mode build whole
projects iteratively.

Quick Start:
  chat-workspace serve                       # Run the HTTP API
  chat-workspace chat "write a hello world"  # One-off message
  chat-workspace beast "build a calculator"  # Plan, approve, execute
  chat-workspace files pull ./out            # Write the workspace to disk

Configuration is read from the environment (LLM_PROVIDER, LLM_API_KEY,
STORAGE_DRIVER, ...).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "serve" {
			// keep stdout for command output
			logger.UseStderr()
			if os.Getenv("LOG_LEVEL") == "" {
				logger.SetLevel("warn")
			}
		}
		if verbose {
			logger.SetLevel("debug")
		}
	},
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Print replies without markdown rendering")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "Session id (defaults to the current session)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// openApp loads configuration from the environment and wires the services
func openApp(ctx context.Context) (*app.Config, error) {
	appConfig, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := app.NewConfig(ctx, appConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return c, nil
}

// closeApp shuts the application down, waiting at most ShutdownTimeout
func closeApp(c *app.Config) {
	timeout := c.AppConfig.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		logger.Log.WithError(err).Warn("Shutdown incomplete")
	}
}

// targetSession resolves the --session flag against the store
func targetSession(c *app.Config) string {
	if sessionID == "" || sessionID == "current" {
		return c.Store.CurrentID()
	}
	return sessionID
}
