package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/sui/internal/buildinfo"
	"github.com/cleared-dev/sui/internal/config"
	"github.com/cleared-dev/sui/internal/logger"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envPath    string
	historyDB  string
	debug      bool
	logFormat  string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "sui",
		Short:   "Convert sui.com CSV exports into double-entry transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "importer config (default $SUI_CONFIG or sui.yaml)")
	flags.StringVar(&opts.envPath, "env", "", "env file to load (default .env when present)")
	flags.StringVar(&opts.historyDB, "history", "", "SQLite extraction history (default $SUI_HISTORY_DB)")
	flags.BoolVar(&opts.debug, "debug", false, "log every raw row")
	flags.StringVar(&opts.logFormat, "log-format", "console", "log format: console or json")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newExtractCommand(opts))
	rootCmd.AddCommand(newIdentifyCommand(opts))
	rootCmd.AddCommand(newScanCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))

	return rootCmd
}

// setup fills unset flags from the environment and installs the logger.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	env, err := config.LoadEnv(o.envPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("config") {
		o.configPath = env.ConfigPath
	}
	if !cmd.Flags().Changed("history") {
		o.historyDB = env.HistoryDB
	}
	o.debug = o.debug || env.Debug

	var log zerolog.Logger
	switch o.logFormat {
	case "console":
		log = logger.New(cmd.ErrOrStderr(), o.debug)
	case "json":
		log = logger.NewWithWriter(cmd.ErrOrStderr(), o.debug)
	default:
		return fmt.Errorf("unknown log format %q", o.logFormat)
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return nil
}

// loadConfig reads the importer config named by --config.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.configPath, err)
	}
	return cfg, nil
}
