package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/retail-cli/internal/fetcher"
	"github.com/sells-group/retail-cli/internal/period"
)

// Config holds the full application configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Window    WindowConfig    `yaml:"window" mapstructure:"window"`
	National  NationalConfig  `yaml:"national" mapstructure:"national"`
	Quality   ValidateConfig  `yaml:"validate" mapstructure:"validate"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// PathsConfig locates the data tree, the docs output and the source list.
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" mapstructure:"data_dir"`
	DocsDir     string `yaml:"docs_dir" mapstructure:"docs_dir"`
	SourcesFile string `yaml:"sources_file" mapstructure:"sources_file"`
}

// WindowConfig bounds the analysis window, inclusive, as YYYY-MM.
type WindowConfig struct {
	Start string `yaml:"start" mapstructure:"start"`
	End   string `yaml:"end" mapstructure:"end"`
}

// NationalConfig configures the national survey workbook parser.
type NationalConfig struct {
	SheetYears []int `yaml:"sheet_years" mapstructure:"sheet_years"`
}

// ValidateConfig sets the plausible band for state YoY growth (%).
type ValidateConfig struct {
	YoYMin float64 `yaml:"yoy_min" mapstructure:"yoy_min"`
	YoYMax float64 `yaml:"yoy_max" mapstructure:"yoy_max"`
}

// FetchConfig configures raw file downloads and CSV decoding.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
}

// WarehouseConfig configures the optional Postgres publish target.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MonthWindow parses the configured analysis window.
func (c *Config) MonthWindow() (period.Window, error) {
	w, err := period.NewWindow(c.Window.Start, c.Window.End)
	if err != nil {
		return period.Window{}, eris.Wrap(err, "config: window")
	}
	return w, nil
}

// HTTPOptions builds downloader options from the fetch settings.
func (c *Config) HTTPOptions() fetcher.HTTPOptions {
	return fetcher.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: c.Fetch.MaxRetries,
	}
}

// FTPOptions builds FTP downloader options from the fetch settings.
func (c *Config) FTPOptions() fetcher.FTPOptions {
	return fetcher.FTPOptions{
		Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: c.Fetch.MaxRetries,
	}
}

// CSVOptions builds CSV reader options from the fetch settings. Survey
// exports carry stray quotes in footnote rows, so quoting is lenient.
func (c *Config) CSVOptions() fetcher.CSVOptions {
	return fetcher.CSVOptions{Encoding: c.Fetch.Encoding, LazyQuotes: true}
}

// Validate checks that the settings needed by mode are present and sane.
// Modes are the command names: ingest, transform, marts, report, publish, run.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Paths.DataDir == "" {
		errs = append(errs, "paths.data_dir is required")
	}

	switch mode {
	case "ingest":
		if c.Paths.SourcesFile == "" {
			errs = append(errs, "paths.sources_file is required")
		}
		if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 16 {
			errs = append(errs, "fetch.concurrency must be between 1 and 16")
		}
		if c.Fetch.TimeoutSecs <= 0 {
			errs = append(errs, "fetch.timeout_secs must be > 0")
		}
		if c.Fetch.MaxRetries < 0 {
			errs = append(errs, "fetch.max_retries must be >= 0")
		}
	case "transform", "run":
		if _, err := c.MonthWindow(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(c.National.SheetYears) == 0 {
			errs = append(errs, "national.sheet_years must not be empty")
		}
		switch strings.ToLower(c.Fetch.Encoding) {
		case "", "utf-8", "utf8", "windows-1252", "cp1252", "latin1", "iso-8859-1":
		default:
			errs = append(errs, "fetch.encoding must be utf-8 or windows-1252")
		}
		if mode == "run" {
			errs = append(errs, c.reportErrors()...)
		}
	case "marts":
	case "report":
		if _, err := c.MonthWindow(); err != nil {
			errs = append(errs, err.Error())
		}
		errs = append(errs, c.reportErrors()...)
	case "publish":
		if c.Warehouse.DatabaseURL == "" {
			errs = append(errs, "warehouse.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) reportErrors() []string {
	var errs []string
	if c.Quality.YoYMin >= c.Quality.YoYMax {
		errs = append(errs, "validate.yoy_min must be < validate.yoy_max")
	}
	if c.Paths.DocsDir == "" {
		errs = append(errs, "paths.docs_dir is required")
	}
	return errs
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RETAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.docs_dir", "docs")
	v.SetDefault("paths.sources_file", "config/data_sources.yaml")
	v.SetDefault("window.start", "2022-01")
	v.SetDefault("window.end", "2024-12")
	v.SetDefault("national.sheet_years", []int{2022, 2023, 2024})
	v.SetDefault("validate.yoy_min", -100.0)
	v.SetDefault("validate.yoy_max", 300.0)
	v.SetDefault("fetch.user_agent", "retail-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.concurrency", 2)
	v.SetDefault("fetch.encoding", "utf-8")
	v.SetDefault("warehouse.database_url", "")
	v.SetDefault("warehouse.schema", "retail")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
