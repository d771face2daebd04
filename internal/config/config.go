package config

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/sui/internal/accounts"
	"github.com/cleared-dev/sui/internal/importer"
)

// Config represents the sui.yaml importer configuration.
type Config struct {
	Accounts    map[string]string     `yaml:"accounts"`
	Currencies  map[string]string     `yaml:"currencies"`
	Categories  map[string]string     `yaml:"categories"`
	Adjustments AdjustmentConfig      `yaml:"adjustment_accounts"`
	Columns     importer.ColumnConfig `yaml:"columns,omitempty"`
	Dialect     DialectConfig         `yaml:"dialect,omitempty"`
	Encoding    string                `yaml:"encoding,omitempty"` // WHATWG label, default utf-8
	Debug       bool                  `yaml:"debug,omitempty"`
}

// AdjustmentConfig names the counter-party accounts for balance adjustments.
type AdjustmentConfig struct {
	Asset      string `yaml:"asset"`
	Liability  string `yaml:"liability"`
	Receivable string `yaml:"receivable"`
}

// DialectConfig describes the CSV dialect of the export.
type DialectConfig struct {
	Delimiter        string `yaml:"delimiter,omitempty"` // single character, default ","
	LazyQuotes       bool   `yaml:"lazy_quotes,omitempty"`
	TrimLeadingSpace bool   `yaml:"trim_leading_space,omitempty"`
}

// Load reads a sui.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the sui.com column headers and placeholder
// adjustment accounts.
func Default() *Config {
	return &Config{
		Accounts:   map[string]string{},
		Currencies: map[string]string{},
		Categories: map[string]string{},
		Adjustments: AdjustmentConfig{
			Asset:      "Equity:Adjustments:Assets",
			Liability:  "Equity:Adjustments:Liabilities",
			Receivable: "Equity:Adjustments:Receivables",
		},
		Columns:  importer.DefaultColumns(),
		Encoding: "utf-8",
	}
}

// Tables builds the lookup tables described by the config.
func (c *Config) Tables() *accounts.Service {
	return accounts.NewService(c.Accounts, c.Currencies, c.Categories, accounts.Adjustments{
		Asset:      c.Adjustments.Asset,
		Liability:  c.Adjustments.Liability,
		Receivable: c.Adjustments.Receivable,
	})
}

// ImporterOptions converts the CSV settings into importer options.
func (c *Config) ImporterOptions() (importer.SuiOptions, error) {
	d := importer.Dialect{
		LazyQuotes:       c.Dialect.LazyQuotes,
		TrimLeadingSpace: c.Dialect.TrimLeadingSpace,
	}
	if c.Dialect.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(c.Dialect.Delimiter)
		if size != len(c.Dialect.Delimiter) || r == utf8.RuneError {
			return importer.SuiOptions{}, fmt.Errorf("delimiter %q must be a single character", c.Dialect.Delimiter)
		}
		d.Delimiter = r
	}
	return importer.SuiOptions{
		Columns:  c.Columns,
		Dialect:  d,
		Encoding: c.Encoding,
		Debug:    c.Debug,
	}, nil
}

// Env holds settings read from the environment and an optional .env file.
type Env struct {
	ConfigPath string
	HistoryDB  string
	Debug      bool
}

// LoadEnv loads envPath (or ./.env when empty, ignoring a missing file) and
// returns the SUI_* settings.
func LoadEnv(envPath string) (Env, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return Env{}, fmt.Errorf("loading %s: %w", envPath, err)
		}
	} else {
		_ = godotenv.Load()
	}

	return Env{
		ConfigPath: getEnvOrDefault("SUI_CONFIG", "sui.yaml"),
		HistoryDB:  os.Getenv("SUI_HISTORY_DB"),
		Debug:      os.Getenv("SUI_DEBUG") == "true",
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
