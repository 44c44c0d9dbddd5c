package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ErrExportUnavailable is returned when there are too few items to export.
var ErrExportUnavailable = errors.New("nothing to export: fewer than three items")

func newExportCommand(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the ranking as shareable text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, _, err := opts.startService(ctx)
			if err != nil {
				return err
			}
			defer svc.Stop()

			text, ok, err := svc.Export(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return ErrExportUnavailable
			}

			if output != "" {
				err := os.WriteFile(output, []byte(text+"\n"), 0o644) //nolint:gosec // shareable text
				if err == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "ranking written to %s\n", output)
					return nil
				}
				// Fall back to stdout so the text is not lost.
				fmt.Fprintf(cmd.ErrOrStderr(), "could not write %s: %v\n", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the text to a file instead of stdout")
	return cmd
}
