package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/movement-lens/internal/core/domain"
	"github.com/custodia-labs/movement-lens/internal/core/ports/driving"
)

var (
	askFollowUps []string
	askTimeout   time.Duration
)

// errAnalysisFailed marks an answer that ended in the error state.
var errAnalysisFailed = errors.New("analysis did not complete")

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Search and print the AI synthesis of the results",
	Long: `Runs a search, waits for the automatic synthesis of the results and
prints it. Follow-up questions are then asked in order about the same results.

On a terminal the answer is printed as it streams in.

Examples:
  lens ask "Anti-Austerity"
  lens ask Europe -f "Which of these had offline protests?"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVarP(&askFollowUps, "follow-up", "f", nil, "follow-up question (repeatable)")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 3*time.Minute, "give up after this long")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	lens, err := openLens()
	if err != nil {
		return err
	}
	defer lens.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), askTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	live := isTerminal(out)

	outcome := lens.Submit(ctx, query)
	if outcome.Err != nil {
		return fmt.Errorf("search failed: %w", outcome.Err)
	}
	if query != "" {
		fmt.Fprintf(out, "Found %d movements for %q.\n\n", len(outcome.Results), query)
	}

	failed := false
	if query != "" && len(outcome.Results) == 0 {
		fmt.Fprintln(out, "Nothing to analyse.")
	} else {
		msg, err := printAnswer(ctx, out, lens, live, firstAssistant)
		if err != nil {
			return err
		}
		failed = msg.Status == domain.StatusError
	}

	for _, question := range askFollowUps {
		fmt.Fprintf(out, "\n> %s\n\n", question)
		h, err := lens.Ask(question)
		if err != nil {
			return err
		}
		msg, err := printAnswer(ctx, out, lens, live, byHandle(h))
		if err != nil {
			return err
		}
		failed = failed || msg.Status == domain.StatusError
	}

	if failed {
		return errAnalysisFailed
	}
	return nil
}

// messageMatcher selects the message to print from a transcript.
type messageMatcher func(transcript []domain.Message) (domain.Message, bool)

func firstAssistant(transcript []domain.Message) (domain.Message, bool) {
	for _, m := range transcript {
		if m.Role == domain.RoleAssistant {
			return m, true
		}
	}
	return domain.Message{}, false
}

func byHandle(h domain.MessageHandle) messageMatcher {
	return func(transcript []domain.Message) (domain.Message, bool) {
		for _, m := range transcript {
			if m.ID == h.String() {
				return m, true
			}
		}
		return domain.Message{}, false
	}
}

// printAnswer waits for the matched message to finish. When live, text is
// written as it arrives; otherwise the final content is written once.
func printAnswer(
	ctx context.Context, w io.Writer, lens driving.LensService, live bool, match messageMatcher,
) (domain.Message, error) {
	updates, unsubscribe := lens.Subscribe()
	defer unsubscribe()

	printed := 0
	for {
		msg, ok := match(lens.Transcript())
		if ok && live && len(msg.Content) > printed {
			fmt.Fprint(w, msg.Content[printed:])
			printed = len(msg.Content)
		}
		if ok && msg.Status.IsTerminal() {
			if !live {
				fmt.Fprint(w, msg.Content)
			}
			fmt.Fprintln(w)
			return msg, nil
		}

		select {
		case <-ctx.Done():
			return domain.Message{}, fmt.Errorf("waiting for analysis: %w", ctx.Err())
		case <-updates:
		}
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
