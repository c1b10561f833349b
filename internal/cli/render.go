package cli

import (
	"chat-workspace/internal/repository/db"
	"chat-workspace/internal/service/beast"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
)

// stateStyles colors beast states in status lines
var stateStyles = map[beast.State]lipgloss.Style{
	beast.StatePlanning:         metaStyle,
	beast.StateAwaitingApproval: headerStyle,
	beast.StateExecuting:        assistantStyle,
	beast.StatePaused:           headerStyle,
	beast.StateFinished:         okStyle,
	beast.StateStopped:          errorStyle,
}

// renderMarkdown renders an assistant reply for the terminal. Rendering
// failures fall back to the raw text.
func renderMarkdown(text string) string {
	if plain || strings.TrimSpace(text) == "" {
		return text
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// printMessage writes one log entry with a role header
func printMessage(w io.Writer, m db.Message) {
	switch m.Role {
	case db.RoleUser:
		fmt.Fprintln(w, userStyle.Render("You"))
		fmt.Fprintln(w, m.Content)
	case db.RoleAssistant:
		fmt.Fprintln(w, assistantStyle.Render("Assistant"))
		fmt.Fprint(w, renderMarkdown(m.Content))
	default:
		fmt.Fprintln(w, metaStyle.Render(m.Role))
		fmt.Fprintln(w, m.Content)
	}
	fmt.Fprintln(w)
}

// statusLine summarizes a beast run in one line
func statusLine(st beast.Status) string {
	style, ok := stateStyles[st.State]
	if !ok {
		style = metaStyle
	}
	line := fmt.Sprintf("%s  iteration %d  files %d", style.Render(string(st.State)), st.Iteration, len(st.Files))
	if st.LastError != "" {
		line += "  " + errorStyle.Render(st.LastError)
	}
	return line
}

// sessionRow formats one session for list output
func sessionRow(s db.Session, current bool) string {
	marker := " "
	if current {
		marker = okStyle.Render("*")
	}
	return fmt.Sprintf("%s %s  %s  %s",
		marker,
		s.ID,
		headerStyle.Render(s.Title),
		metaStyle.Render(fmt.Sprintf("%d messages, %d files, updated %s",
			len(s.Messages), len(s.Files), s.UpdatedAt.Format(time.DateTime))),
	)
}
