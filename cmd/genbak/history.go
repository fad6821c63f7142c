package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/genbak/genbak/internal/history"
	"github.com/genbak/genbak/internal/ui"
)

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:           "history [flags] <backup-root>",
		Short:         "List past backup runs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			db, err := history.Open(args[0])
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.List(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stdout, "no recorded runs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "GENERATION\tCOPIED\tSIZE\tLINKED\tFAILED\tTIME")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.Generation,
					ui.FormatCount(r.FilesCopied),
					ui.FormatBytes(r.BytesCopied),
					ui.FormatCount(r.FilesLinked),
					r.FilesFailed,
					ui.FormatDuration(r.Duration),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show (0 for all)")
	return cmd
}
