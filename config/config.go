// Package config loads backtest run configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
)

// Config represents a complete backtest run.
type Config struct {
	Run          backtest.Options   `json:"run" yaml:"run"`
	Data         DataConfig         `json:"data" yaml:"data"`
	Strategy     *strategy.Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	StrategyFile string             `json:"strategy_file,omitempty" yaml:"strategy_file,omitempty"`
	Journal      JournalConfig      `json:"journal" yaml:"journal"`
	Log          LogConfig          `json:"log" yaml:"log"`

	// dir is the directory of the loaded file; relative paths resolve
	// against it.
	dir string
}

// DataConfig locates the bar series.
type DataConfig struct {
	Path      string `json:"path" yaml:"path"`
	Timeframe string `json:"timeframe,omitempty" yaml:"timeframe,omitempty"` // e.g. "D1", "H1", "15m"
	From      string `json:"from,omitempty" yaml:"from,omitempty"`           // 2006-01-02 or RFC3339
	To        string `json:"to,omitempty" yaml:"to,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "csv" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	OrgDir string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "console" or "json"
}

// LoadFromFile loads configuration from a file, trying YAML and then JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	cfg.dir = filepath.Dir(path)
	cfg.Run = cfg.Run.Normalize()
	if cfg.Strategy != nil {
		cfg.Strategy.Normalize()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	if c.Data.Timeframe != "" {
		if _, err := market.ParseTimeframe(c.Data.Timeframe); err != nil {
			return fmt.Errorf("data.timeframe: %w", err)
		}
	}
	from, to, err := c.Range()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fmt.Errorf("data.from must be before data.to")
	}

	switch {
	case c.Strategy == nil && c.StrategyFile == "":
		return fmt.Errorf("one of strategy or strategy_file is required")
	case c.Strategy != nil && c.StrategyFile != "":
		return fmt.Errorf("strategy and strategy_file are mutually exclusive")
	case c.Strategy != nil:
		if err := c.Strategy.Validate(); err != nil {
			return fmt.Errorf("strategy: %w", err)
		}
	}

	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal dir required for CSV type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv' or 'none'")
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "console" && f != "json" {
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	s, err := strategy.ByName("ema-cross", "SPY", strategy.Params{StopLossPct: 2, TakeProfitPct: 6})
	if err != nil {
		panic(err)
	}
	return &Config{
		Run: backtest.DefaultOptions(),
		Data: DataConfig{
			Path:      "./data/SPY-D1.csv",
			Timeframe: "D1",
		},
		Strategy: s,
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backtester.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Resolve makes a relative path relative to the config file.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Range parses data.from and data.to. Empty bounds are zero times.
func (c *Config) Range() (from, to time.Time, err error) {
	if from, err = parseDate(c.Data.From); err != nil {
		return from, to, fmt.Errorf("data.from: %w", err)
	}
	if to, err = parseDate(c.Data.To); err != nil {
		return from, to, fmt.Errorf("data.to: %w", err)
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Options returns the run options. An unset periods_per_year is derived
// from data.timeframe when one is given.
func (c *Config) Options() backtest.Options {
	o := c.Run.Normalize()
	if o.PeriodsPerYear == 0 && c.Data.Timeframe != "" {
		if d, err := market.ParseTimeframe(c.Data.Timeframe); err == nil {
			o.PeriodsPerYear = market.PeriodsPerYear(d)
		}
	}
	return o
}

// LoadStrategy returns the inline strategy or loads strategy_file.
func (c *Config) LoadStrategy() (*strategy.Strategy, error) {
	if c.Strategy != nil {
		return c.Strategy.Clone(), nil
	}
	if c.StrategyFile == "" {
		return nil, fmt.Errorf("no strategy configured")
	}
	return strategy.LoadFile(c.Resolve(c.StrategyFile))
}

// LoadBars reads the configured bar file within the configured range.
func (c *Config) LoadBars() ([]market.Bar, error) {
	from, to, err := c.Range()
	if err != nil {
		return nil, err
	}
	return market.LoadCSV(c.Resolve(c.Data.Path), from, to)
}

// OpenJournal opens the configured journal, or returns nil for "none".
func (c *Config) OpenJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "sqlite":
		return journal.NewSQLite(c.Resolve(c.Journal.DBPath))
	case "csv":
		return journal.NewCSV(c.Resolve(c.Journal.Dir))
	default:
		return nil, nil
	}
}
