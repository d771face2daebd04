package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/sui/internal/config"
)

func newInitCommand() *cobra.Command {
	var encoding string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter sui.yaml and import directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, encoding); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized sui importer at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "utf-8", "encoding of the exports (utf-8, gbk, gb18030)")

	return cmd
}

func runInit(dir, encoding string) error {
	for _, d := range []string{"import", filepath.Join("import", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	path := filepath.Join(dir, "sui.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	cfg := config.Default()
	cfg.Encoding = encoding
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}
	return nil
}
