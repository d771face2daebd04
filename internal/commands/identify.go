package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/sui/internal/history"
	"github.com/cleared-dev/sui/internal/importer"
	"github.com/cleared-dev/sui/internal/logger"
)

func newIdentifyCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <file>...",
		Short: "Report which importer accepts each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg, logger.FromContext(cmd.Context()), root.debug)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, path := range args {
				name, err := identify(reg, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", path, name)
			}
			return w.Flush()
		},
	}
}

// identify returns the accepting importer's name, or "-".
func identify(reg *importer.Registry, path string) (string, error) {
	imp, err := reg.Identify(path)
	if err != nil {
		return "", err
	}
	if imp == nil {
		return "-", nil
	}
	return imp.Name(), nil
}

func newScanCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <dir>",
		Short: "List importable files waiting in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			reg, err := newRegistry(cfg, logger.FromContext(cmd.Context()), root.debug)
			if err != nil {
				return err
			}

			var store *history.Store
			if root.historyDB != "" {
				store, err = history.Open(root.historyDB)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			files, err := importer.Scan(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tSIZE\tIMPORTER\tSTATUS")
			for _, f := range files {
				name, err := identify(reg, f.Path)
				if err != nil {
					return err
				}
				status := "new"
				if store != nil {
					digest, err := history.Digest(f.Path)
					if err != nil {
						return err
					}
					seen, err := store.Seen(digest)
					if err != nil {
						return err
					}
					if seen {
						status = "imported"
					}
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", filepath.Base(f.Path), f.Size, name, status)
			}
			return w.Flush()
		},
	}
}
