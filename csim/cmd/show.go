package cmd

import (
	"fmt"

	"github.com/sarchlab/csim/datarecording"
	"github.com/sarchlab/csim/report"
	"github.com/spf13/cobra"
)

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <recording.sqlite3>",
		Short: "Print the summaries stored in a recording database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := datarecording.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			runs, err := report.ReadSummaries(cmd.Context(), reader)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, run := range runs {
				fmt.Fprintf(out, "%s %s ", run.Name, run.Config)

				if err := report.WriteSummary(out, run.Stats); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
