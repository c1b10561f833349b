package cli

import (
	"chat-workspace/internal/repository/db"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var newTitle string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		printSessions(cmd.OutOrStdout(), c.Store.Sessions(), c.Store.CurrentID())
		return nil
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session and make it current",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		s := c.Store.CreateSession(newTitle)
		fmt.Fprintln(cmd.OutOrStdout(), s.ID)
		return nil
	},
}

var sessionsSwitchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make another session current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		if err := c.Store.SwitchSession(args[0]); err != nil {
			return fmt.Errorf("switch to %s: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("current session: "+args[0]))
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the session's message log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		s, err := c.Store.Session(targetSession(c))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(s.Title))
		fmt.Fprintln(out)
		for _, m := range s.Messages {
			printMessage(out, m)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		if err := c.Store.DeleteSession(args[0]); err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("deleted "+args[0]))
		return nil
	},
}

func printSessions(w io.Writer, sessions []db.Session, currentID string) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, metaStyle.Render("No sessions"))
		return
	}
	for _, s := range sessions {
		fmt.Fprintln(w, sessionRow(s, s.ID == currentID))
	}
}

func init() {
	sessionsNewCmd.Flags().StringVarP(&newTitle, "title", "t", "", "Session title (defaults to the first message)")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsSwitchCmd, sessionsShowCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
