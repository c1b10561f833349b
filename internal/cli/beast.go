package cli

import (
	"bufio"
	"chat-workspace/internal/service/beast"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var assumeYes bool

var beastCmd = &cobra.Command{
	Use:   "beast <task>",
	Short: "Plan and build a multi-file project iteratively",
	Long: `Start a beast-mode run in the session: the model proposes a plan,
you approve it, then it writes files until it reports completion.

Pass --yes to approve plans and resume pauses without asking.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp(c)

		id := targetSession(c)
		events, cancel := c.Beast.Subscribe(id)
		defer cancel()

		if _, err := c.Beast.Start(id, args[0]); err != nil {
			return err
		}
		done, err := c.Beast.Done(id)
		if err != nil {
			return err
		}

		st, err := followRun(cmd, c.Beast, id, events, done, bufio.NewReader(cmd.InOrStdin()))
		if err != nil {
			return err
		}
		if st.State != beast.StateFinished {
			return fmt.Errorf("beast run %s", st.State)
		}
		return nil
	},
}

// controller is the slice of the beast manager a followed run needs
type controller interface {
	Approve(sessionID string) error
	Resume(sessionID string) error
	Stop(sessionID string) error
	Status(sessionID string) (beast.Status, error)
}

// followRun prints run events and answers approval prompts until the run exits
func followRun(cmd *cobra.Command, m controller, id string, events <-chan beast.Event, done <-chan struct{}, in *bufio.Reader) (beast.Status, error) {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	for {
		select {
		case ev := <-events:
			if err := handleEvent(out, m, id, ev, in); err != nil {
				return beast.Status{}, err
			}
		case <-done:
			st, err := m.Status(id)
			if err != nil {
				return beast.Status{}, err
			}
			fmt.Fprintln(out, statusLine(st))
			return st, nil
		case <-ctx.Done():
			m.Stop(id)
			return beast.Status{}, ctx.Err()
		}
	}
}

func handleEvent(out io.Writer, m controller, id string, ev beast.Event, in *bufio.Reader) error {
	switch ev.Type {
	case beast.EventPlan:
		fmt.Fprintln(out, headerStyle.Render("Plan"))
		fmt.Fprint(out, renderMarkdown(ev.Message))
		if confirm(out, in, "Approve this plan?") {
			return ignoreRace(m.Approve(id))
		}
		return m.Stop(id)
	case beast.EventState:
		fmt.Fprintln(out, statusLine(ev.Status))
		if ev.Status.State == beast.StatePaused {
			if confirm(out, in, "The model asked for approval. Continue?") {
				return ignoreRace(m.Resume(id))
			}
			return m.Stop(id)
		}
	case beast.EventFiles:
		fmt.Fprintln(out, okStyle.Render("wrote "+ev.Message))
	case beast.EventRetry:
		fmt.Fprintln(out, metaStyle.Render(fmt.Sprintf("retrying after failure %d: %s", ev.Status.Failures, ev.Message)))
	case beast.EventError:
		fmt.Fprintln(out, errorStyle.Render(ev.Message))
	}
	return nil
}

// ignoreRace drops the errors raised when the run moved on before the answer
// arrived, such as an auto-approved plan
func ignoreRace(err error) error {
	if errors.Is(err, beast.ErrNotAwaitingApprove) || errors.Is(err, beast.ErrNotPaused) {
		return nil
	}
	return err
}

func confirm(out io.Writer, in *bufio.Reader, question string) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func init() {
	beastCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Approve plans and resume pauses automatically")
	rootCmd.AddCommand(beastCmd)
}
