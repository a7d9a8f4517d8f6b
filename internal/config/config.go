package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar-date form used for the run window.
const DateLayout = "2006-01-02"

// Defaults for a run when nothing else is configured.
const (
	DefaultStart     = "2024-08-01"
	DefaultEnd       = "2024-12-31"
	DefaultOutputDir = "ProjetoCarteira/data"
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultTimeout   = "30s"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/91.0.4472.124"
)

// DefaultTickers is the portfolio universe downloaded when no list is given.
var DefaultTickers = []string{
	"AAPL", "MSFT", "JPM", "V", "PG", "UNH", "HD", "KO", "DIS", "INTC",
	"IBM", "WMT", "AXP", "NKE", "MCD", "TRV", "BA", "CAT", "CSCO", "CVX",
	"GS", "HON", "JNJ", "MMM", "MRK", "WBA", "DOW", "AMGN", "VZ", "RTX",
}

// Config is the complete run configuration. It is built once at start up
// and passed to the downloader by value.
type Config struct {
	Tickers    []string       `json:"tickers" yaml:"tickers"`
	Start      string         `json:"start" yaml:"start"`
	End        string         `json:"end" yaml:"end"` // exclusive
	OutputDir  string         `json:"output_dir" yaml:"output_dir"`
	AutoAdjust bool           `json:"auto_adjust" yaml:"auto_adjust"`
	Provider   ProviderConfig `json:"provider" yaml:"provider"`
	Journal    JournalConfig  `json:"journal" yaml:"journal"`
	Log        LogConfig      `json:"log" yaml:"log"`
}

// ProviderConfig describes how to reach the market-data provider.
type ProviderConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Timeout   string `json:"timeout" yaml:"timeout"` // e.g. "30s"
	UserAgent string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	Proxy     string `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// JournalConfig enables the SQLite run journal when DBPath is set.
type JournalConfig struct {
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug|info|warn|error
	Format string `json:"format" yaml:"format"` // console|json
}

// Default returns the configuration of the stock portfolio download.
func Default() *Config {
	tickers := make([]string, len(DefaultTickers))
	copy(tickers, DefaultTickers)

	return &Config{
		Tickers:   tickers,
		Start:     DefaultStart,
		End:       DefaultEnd,
		OutputDir: DefaultOutputDir,
		Provider: ProviderConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromFile reads a YAML or JSON file on top of Default and validates
// the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, as YAML for .yaml/.yml paths and
// JSON otherwise.
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

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("CARTEIRA_OUTPUT_DIR")); v != "" {
		c.OutputDir = v
	}
	if v := strings.TrimSpace(getenv("CARTEIRA_START")); v != "" {
		c.Start = v
	}
	if v := strings.TrimSpace(getenv("CARTEIRA_END")); v != "" {
		c.End = v
	}
	if v := strings.TrimSpace(getenv("CARTEIRA_TICKERS")); v != "" {
		c.Tickers = SplitTickers(v)
	}
	if v := strings.TrimSpace(getenv("CARTEIRA_DB")); v != "" {
		c.Journal.DBPath = v
	}
	if v := strings.TrimSpace(getenv("HTTPS_PROXY")); v != "" {
		c.Provider.Proxy = v
	}
	c.normalize()
}

// normalize upper-cases tickers and drops blanks.
func (c *Config) normalize() {
	out := make([]string, 0, len(c.Tickers))
	for _, t := range c.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	c.Tickers = out
}

// Validate checks if the configuration is usable for a run.
func (c *Config) Validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("tickers: at least one ticker is required")
	}
	seen := make(map[string]struct{}, len(c.Tickers))
	for _, t := range c.Tickers {
		k := strings.ToUpper(strings.TrimSpace(t))
		if k == "" {
			return fmt.Errorf("tickers: empty symbol")
		}
		if strings.ContainsAny(k, `/\`) {
			return fmt.Errorf("tickers: invalid symbol %q", t)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("tickers: duplicate symbol %q", k)
		}
		seen[k] = struct{}{}
	}

	start, err := c.StartDate()
	if err != nil {
		return err
	}
	end, err := c.EndDate()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("start %s must be before end %s", c.Start, c.End)
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	d, err := c.Provider.ParseTimeout()
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug|info|warn|error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// StartDate parses Start as a UTC calendar date.
func (c *Config) StartDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad start date %q: %w", c.Start, err)
	}
	return t, nil
}

// EndDate parses End as a UTC calendar date.
func (c *Config) EndDate() (time.Time, error) {
	t, err := time.Parse(DateLayout, c.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad end date %q: %w", c.End, err)
	}
	return t, nil
}

// ParseTimeout converts the timeout string to a time.Duration.
func (p ProviderConfig) ParseTimeout() (time.Duration, error) {
	if p.Timeout == "" {
		return time.ParseDuration(DefaultTimeout)
	}
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("bad provider.timeout %q: %w", p.Timeout, err)
	}
	return d, nil
}

// SplitTickers parses a comma separated symbol list.
func SplitTickers(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
