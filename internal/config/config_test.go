package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/retail-cli/internal/period"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, "docs", cfg.Paths.DocsDir)
	assert.Equal(t, "config/data_sources.yaml", cfg.Paths.SourcesFile)
	assert.Equal(t, "2022-01", cfg.Window.Start)
	assert.Equal(t, "2024-12", cfg.Window.End)
	assert.Equal(t, []int{2022, 2023, 2024}, cfg.National.SheetYears)
	assert.InDelta(t, -100, cfg.Quality.YoYMin, 0.001)
	assert.InDelta(t, 300, cfg.Quality.YoYMax, 0.001)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 2, cfg.Fetch.Concurrency)
	assert.Equal(t, "utf-8", cfg.Fetch.Encoding)
	assert.Equal(t, "retail", cfg.Warehouse.Schema)
	assert.Empty(t, cfg.Warehouse.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	for _, mode := range []string{"ingest", "transform", "marts", "report", "run"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
window:
  start: "2023-01"
  end: "2023-06"
national:
  sheet_years: [2023]
fetch:
  encoding: windows-1252
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "2023-01", cfg.Window.Start)
	assert.Equal(t, []int{2023}, cfg.National.SheetYears)
	assert.Equal(t, "windows-1252", cfg.Fetch.Encoding)
	assert.Equal(t, "windows-1252", cfg.CSVOptions().Encoding)
	assert.True(t, cfg.CSVOptions().LazyQuotes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "data", cfg.Paths.DataDir)

	w, err := cfg.MonthWindow()
	require.NoError(t, err)
	assert.Len(t, w.Months(), 6)
	assert.Equal(t, period.MustParse("2023-06"), w.End)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
warehouse:
  schema: staging
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("RETAIL_WAREHOUSE_SCHEMA", "analytics")
	t.Setenv("RETAIL_LOG_LEVEL", "warn")
	t.Setenv("RETAIL_WAREHOUSE_DATABASE_URL", "postgres://localhost/retail")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "analytics", cfg.Warehouse.Schema)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres://localhost/retail", cfg.Warehouse.DatabaseURL)
	assert.NoError(t, cfg.Validate("publish"))
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RETAIL_FETCH_CONCURRENCY", "4")
	t.Setenv("RETAIL_PATHS_DATA_DIR", "/srv/retail")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Fetch.Concurrency)
	assert.Equal(t, "/srv/retail", cfg.Paths.DataDir)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("window: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestHTTPOptions(t *testing.T) {
	cfg := &Config{Fetch: FetchConfig{UserAgent: "ua", TimeoutSecs: 5, MaxRetries: 2}}
	opts := cfg.HTTPOptions()
	assert.Equal(t, "ua", opts.UserAgent)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, 2, opts.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.FTPOptions().Timeout)
	assert.Equal(t, cfg.Fetch.MaxRetries, cfg.FTPOptions().MaxRetries)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	return &Config{
		Paths:    PathsConfig{DataDir: "data", DocsDir: "docs", SourcesFile: "sources.yaml"},
		Window:   WindowConfig{Start: "2022-01", End: "2024-12"},
		National: NationalConfig{SheetYears: []int{2022}},
		Quality:  ValidateConfig{YoYMin: -100, YoYMax: 300},
		Fetch:    FetchConfig{TimeoutSecs: 60, MaxRetries: 3, Concurrency: 2},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", "serve", func(*Config) {}, "unknown mode"},
		{"no data dir", "marts", func(c *Config) { c.Paths.DataDir = "" }, "paths.data_dir is required"},
		{"concurrency low", "ingest", func(c *Config) { c.Fetch.Concurrency = 0 }, "fetch.concurrency must be between 1 and 16"},
		{"concurrency high", "ingest", func(c *Config) { c.Fetch.Concurrency = 17 }, "fetch.concurrency must be between 1 and 16"},
		{"no sources file", "ingest", func(c *Config) { c.Paths.SourcesFile = "" }, "paths.sources_file is required"},
		{"bad timeout", "ingest", func(c *Config) { c.Fetch.TimeoutSecs = 0 }, "fetch.timeout_secs must be > 0"},
		{"bad window", "transform", func(c *Config) { c.Window.Start = "2022-13" }, "config: window"},
		{"reversed window", "report", func(c *Config) { c.Window.End = "2021-12" }, "before start"},
		{"no sheet years", "transform", func(c *Config) { c.National.SheetYears = nil }, "national.sheet_years must not be empty"},
		{"bad encoding", "transform", func(c *Config) { c.Fetch.Encoding = "utf-16" }, "fetch.encoding"},
		{"inverted band", "report", func(c *Config) { c.Quality.YoYMin = 400 }, "validate.yoy_min must be < validate.yoy_max"},
		{"run checks report", "run", func(c *Config) { c.Paths.DocsDir = "" }, "paths.docs_dir is required"},
		{"publish without url", "publish", func(*Config) {}, "warehouse.database_url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Fetch.Concurrency = 0
	cfg.Fetch.TimeoutSecs = 0

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.concurrency must be between 1 and 16; fetch.timeout_secs must be > 0")
}

func TestLoadValidateBandAlongsideValidateMethod(t *testing.T) {
	chdirTemp(t)
	t.Setenv("RETAIL_VALIDATE_YOY_MIN", "-50")
	t.Setenv("RETAIL_VALIDATE_YOY_MAX", "-60")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, -50, cfg.Quality.YoYMin, 0.001)
	assert.InDelta(t, -60, cfg.Quality.YoYMax, 0.001)

	err = cfg.Validate("report")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate.yoy_min must be < validate.yoy_max")
}
