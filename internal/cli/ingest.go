package cli

import (
	"fmt"
	"io"
	"time"

	"docubot-be/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewIngestCommand builds the ingest command. ingester is resolved lazily so
// flag parsing and --help never touch the store.
func NewIngestCommand(defaultDocs, defaultGlob string, ingester func() (service.IIngestService, error)) *cobra.Command {
	var docs, glob string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a documentation corpus into the vector store",
		Long: `Walks the docs directory, splits every matching file into overlapping
passages, embeds them and stores them. Running it again over the same corpus
leaves the store unchanged.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := ingester()
			if err != nil {
				return err
			}

			report, err := svc.IngestCorpus(cmd.Context(), docs, glob)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&docs, "docs", defaultDocs, "directory holding the documentation corpus")
	cmd.Flags().StringVar(&glob, "glob", defaultGlob, "file pattern relative to --docs (supports **)")
	return cmd
}

func printReport(w io.Writer, r *service.IngestReport) {
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "Ingested %s\n", r.Root)
	fmt.Fprintf(w, "  documents: %d\n", r.Documents)
	fmt.Fprintf(w, "  passages:  %d\n", r.Passages)
	fmt.Fprintf(w, "  took:      %s\n", r.Duration.Round(time.Millisecond))

	for _, path := range r.Skipped {
		color.New(color.FgYellow).Fprintf(w, "  skipped %s (not readable UTF-8 text)\n", path)
	}
	for _, f := range r.Failures {
		color.New(color.FgRed).Fprintf(w, "  failed  %s: %s\n", f.SourcePath, f.Error)
	}
}
