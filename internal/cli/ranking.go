package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRankingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Print the current standings and progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, err := opts.startService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			ranking, err := svc.Ranking(ctx)
			if err != nil {
				return err
			}
			prog, err := svc.Progress(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			writeRanking(out, ranking)
			fmt.Fprintf(out, "\n%d/%d judgments (%d%%) %s\n", prog.Judgments, prog.Target, prog.Percent, prog.Encouragement)
			return nil
		},
	}
}
