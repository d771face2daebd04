package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/sui/internal/history"
)

func newHistoryCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recorded extraction runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.historyDB == "" {
				return errors.New("no history database: pass --history or set SUI_HISTORY_DB")
			}
			store, err := history.Open(root.historyDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXTRACTED\tFILE\tIMPORTER\tTXNS\tWARNINGS\tSHA256")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.12s\n",
					r.ExtractedAt.Local().Format(time.DateTime), r.File, r.Importer,
					r.Transactions, r.Warnings, r.SHA256)
			}
			return w.Flush()
		},
	}
}
