package commands

import (
	"github.com/rs/zerolog"

	"github.com/cleared-dev/sui/internal/config"
	"github.com/cleared-dev/sui/internal/importer"
)

// newRegistry builds the importers described by cfg. Problems with the
// lookup tables are logged; they only matter once a row references them.
func newRegistry(cfg *config.Config, log zerolog.Logger, debug bool) (*importer.Registry, error) {
	tables := cfg.Tables()
	for _, err := range tables.Validate() {
		log.Warn().Err(err).Msg("config")
	}

	opts, err := cfg.ImporterOptions()
	if err != nil {
		return nil, err
	}
	opts.Debug = opts.Debug || debug
	if opts.Debug && log.GetLevel() > zerolog.DebugLevel {
		log = log.Level(zerolog.DebugLevel)
	}
	opts.Logger = &log

	reg := importer.NewRegistry()
	reg.Register(importer.NewSuiImporter(tables, opts))
	return reg, nil
}
