package cli

import (
	"bufio"
	"chat-workspace/internal/service/chat"
	"chat-workspace/internal/service/llm"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var chatMode string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message, or chat interactively without one",
	Long: `Send a message to the current session and print the reply.

Without a message argument, read messages from stdin one line at a time
until EOF or "/quit".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := chat.ParseMode(chatMode)
		if err != nil {
			return err
		}

		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		id := targetSession(c)
		out := cmd.OutOrStdout()
		send := func(message string) error {
			return sendOne(cmd.Context(), out, c.Chat, id, message, mode)
		}

		if len(args) == 1 {
			return send(args[0])
		}
		return chatLoop(cmd.InOrStdin(), out, send)
	},
}

// sender is the slice of ChatService the chat command needs
type sender interface {
	SendMessage(ctx context.Context, sessionID, message string, mode chat.Mode) (*chat.ChatResult, error)
}

func sendOne(ctx context.Context, out io.Writer, s sender, id, message string, mode chat.Mode) error {
	result, err := s.SendMessage(ctx, id, message, mode)
	if result == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render(llm.ErrorClass(err)))
		fmt.Fprint(out, renderMarkdown(result.Reply.Content))
		return nil
	}

	printMessage(out, result.Reply)
	for _, f := range result.Files {
		fmt.Fprintln(out, okStyle.Render("wrote "+f.Name))
	}
	return nil
}

// chatLoop feeds stdin lines to send until EOF or /quit. Provider failures
// are already printed, so only store errors end the loop.
func chatLoop(in io.Reader, out io.Writer, send func(string) error) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fmt.Fprint(out, userStyle.Render("> "))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		default:
			if err := send(line); err != nil {
				return err
			}
		}
		fmt.Fprint(out, userStyle.Render("> "))
	}
	return scanner.Err()
}

func init() {
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "chat", "Prompt mode: chat, agent, coder or beast")
	rootCmd.AddCommand(chatCmd)
}
