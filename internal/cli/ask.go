package cli

import (
	"errors"
	"fmt"
	"strings"

	"docubot-be/internal/service"
	"docubot-be/pkg/rag/response"
	"docubot-be/pkg/rag/search"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errEmptyQuestion = errors.New("question must not be empty")

// NewAskCommand builds the ask command, which streams one answer to stdout.
func NewAskCommand(answerer func() (service.IAnswerService, error)) *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:           "ask [question]",
		Short:         "Ask the documentation a question",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errEmptyQuestion
			}

			svc, err := answerer()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			prepared, err := svc.Prepare(cmd.Context(), question)
			if err != nil {
				if errors.Is(err, search.ErrRetrievalUnavailable) {
					return fmt.Errorf("cannot search documentation right now: %w", err)
				}
				return err
			}

			if showSources && len(prepared.Prompt.Sources) > 0 {
				color.New(color.FgCyan).Fprintf(out, "Sources: %s\n\n", strings.Join(prepared.Prompt.Sources, ", "))
			}

			outcome := svc.Stream(cmd.Context(), prepared, response.SinkFunc(func(text string) error {
				_, err := fmt.Fprint(out, text)
				return err
			}))
			fmt.Fprintln(out)

			if outcome.Err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "The answer was cut off.")
				return outcome.Err
			}
			if !prepared.Grounded() {
				color.New(color.Faint).Fprintln(cmd.ErrOrStderr(), "(no matching documentation)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", true, "print the source files used for the answer")
	return cmd
}
