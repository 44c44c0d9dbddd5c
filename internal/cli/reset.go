package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResetCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard every comparison and start over",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprint(out, "Discard every comparison and start over? [y/N] ")
				in := bufio.NewScanner(cmd.InOrStdin())
				if !in.Scan() || !strings.EqualFold(strings.TrimSpace(in.Text()), "y") {
					fmt.Fprintln(out, "aborted")
					return nil
				}
			}

			ctx := cmd.Context()
			svc, _, err := opts.startService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			if err := svc.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(out, "session reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}
