package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/sui/internal/history"
	"github.com/cleared-dev/sui/internal/importer"
	"github.com/cleared-dev/sui/internal/journal"
	"github.com/cleared-dev/sui/internal/logger"
	"github.com/cleared-dev/sui/internal/model"
)

type extractOptions struct {
	dir           string
	output        string
	importer      string
	force         bool
	markProcessed bool
}

func newExtractCommand(root *rootOptions) *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract transactions from sui.com exports",
		Long: "Extract converts each export into balanced transactions and writes\n" +
			"them as CSV, one row per posting, oldest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.dir == "" {
				return errors.New("no input: pass files or --dir")
			}
			if opts.markProcessed && opts.dir == "" {
				return errors.New("--mark-processed requires --dir")
			}

			publish := func(data []byte) error {
				if opts.output == "" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				return replaceFile(opts.output, data)
			}
			return runExtract(cmd, root, opts, args, publish)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", "", "extract every CSV in this directory")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write postings here instead of stdout")
	cmd.Flags().StringVar(&opts.importer, "importer", "", "use this importer instead of identifying each file")
	cmd.Flags().BoolVar(&opts.force, "force", false, "extract files already in the history")
	cmd.Flags().BoolVar(&opts.markProcessed, "mark-processed", false, "move extracted files into <dir>/processed")

	return cmd
}

// extraction is one file's result, pending until the output is written.
type extraction struct {
	path     string
	digest   string
	importer string
	txns     []model.Transaction
	warnings int
}

// runExtract extracts every input and hands the postings to publish only
// when all of them succeed. History and processed moves follow publish.
func runExtract(cmd *cobra.Command, root *rootOptions, opts extractOptions, args []string, publish func([]byte) error) error {
	log := logger.FromContext(cmd.Context())

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg, log, root.debug)
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

	paths := args
	if opts.dir != "" {
		files, err := importer.Scan(opts.dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	var (
		done []extraction
		all  []model.Transaction
	)
	for _, path := range paths {
		ex, err := extractFile(reg, store, path, all, opts, log)
		if errors.Is(err, history.ErrAlreadyImported) {
			log.Info().Str("file", path).Msg("already imported, skipping")
			continue
		}
		if errors.Is(err, errNotRecognized) && opts.dir != "" {
			log.Warn().Str("file", path).Msg("no importer recognizes file, skipping")
			continue
		}
		if err != nil {
			return err
		}
		log.Info().Str("file", path).Int("transactions", len(ex.txns)).Int("warnings", ex.warnings).Msg("extracted")
		done = append(done, ex)
		all = append(all, ex.txns...)
	}

	var buf bytes.Buffer
	if err := journal.WriteTransactions(&buf, all); err != nil {
		return fmt.Errorf("writing postings: %w", err)
	}
	if err := publish(buf.Bytes()); err != nil {
		return err
	}

	for _, ex := range done {
		if store != nil {
			_, err := store.Record(history.Run{
				File:         filepath.Base(ex.path),
				SHA256:       ex.digest,
				Importer:     ex.importer,
				Transactions: len(ex.txns),
				Warnings:     ex.warnings,
			})
			if err != nil {
				return err
			}
		}
		if opts.markProcessed {
			if err := importer.MarkProcessed(opts.dir, filepath.Base(ex.path)); err != nil {
				return err
			}
		}
	}
	return nil
}

var errNotRecognized = errors.New("no importer recognizes file")

func extractFile(reg *importer.Registry, store *history.Store, path string, existing []model.Transaction, opts extractOptions, log zerolog.Logger) (extraction, error) {
	ex := extraction{path: path}

	imp, err := pickImporter(reg, path, opts.importer)
	if err != nil {
		return ex, err
	}
	ex.importer = imp.Name()

	if store != nil {
		ex.digest, err = history.Digest(path)
		if err != nil {
			return ex, err
		}
		seen, err := store.Seen(ex.digest)
		if err != nil {
			return ex, err
		}
		if seen && !opts.force {
			return ex, fmt.Errorf("%s: %w", path, history.ErrAlreadyImported)
		}
	}

	src, err := imp.Open(path)
	if err != nil {
		return ex, err
	}
	defer src.Close()

	ex.txns, err = imp.Extract(src, existing)
	if err != nil {
		return ex, err
	}

	issues := journal.Validate(ex.txns)
	for _, issue := range issues {
		if issue.Warning {
			ex.warnings++
			log.Warn().Str("source", issue.Source.String()).Msg(issue.Description)
		}
	}
	if failures := journal.Failures(issues); len(failures) > 0 {
		for _, f := range failures {
			log.Error().Str("source", f.Source.String()).Msg(f.Description)
		}
		return ex, fmt.Errorf("%s: %d unbalanced transactions", path, len(failures))
	}
	return ex, nil
}

// pickImporter returns the importer registered as name, or the first one
// that identifies path when name is empty.
func pickImporter(reg *importer.Registry, path, name string) (importer.Importer, error) {
	if name != "" {
		imp := reg.Get(name)
		if imp == nil {
			return nil, fmt.Errorf("unknown importer %q", name)
		}
		return imp, nil
	}

	imp, err := reg.Identify(path)
	if err != nil {
		return nil, err
	}
	if imp == nil {
		return nil, fmt.Errorf("%s: %w", path, errNotRecognized)
	}
	return imp, nil
}

// replaceFile writes data to a temporary file next to path and renames it
// over path, so path is either untouched or complete.
func replaceFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing output: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
