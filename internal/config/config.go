// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported browser driver names.
const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Shop     ShopConfig     `mapstructure:"shop" yaml:"shop"`
	Run      RunConfig      `mapstructure:"run" yaml:"run"`
	Fixture  FixtureConfig  `mapstructure:"fixture" yaml:"fixture"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser driving the run.
type BrowserConfig struct {
	Driver          string         `mapstructure:"driver" yaml:"driver"`
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Install         bool           `mapstructure:"install" yaml:"install"`
	SlowMo          time.Duration  `mapstructure:"slow_mo" yaml:"slow_mo"`
	ActionTimeout   time.Duration  `mapstructure:"action_timeout" yaml:"action_timeout"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// ShopConfig describes the shop under test and the strings its UI reports.
type ShopConfig struct {
	BOURL         string `mapstructure:"bo_url" yaml:"bo_url"`
	AdminEmail    string `mapstructure:"admin_email" yaml:"admin_email"`
	AdminPassword string `mapstructure:"admin_password" yaml:"-"`
	Locale        string `mapstructure:"locale" yaml:"locale"`
}

// RunConfig controls a single orchestrated run.
type RunConfig struct {
	MatrixFile      string        `mapstructure:"matrix_file" yaml:"matrix_file"`
	StepTimeout     time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout" yaml:"teardown_timeout"`
	Output          string        `mapstructure:"output" yaml:"output"`
	Format          string        `mapstructure:"format" yaml:"format"`
}

// FixtureConfig declares the synthetic product created for the run.
type FixtureConfig struct {
	Type     string `mapstructure:"type" yaml:"type"`
	Quantity int    `mapstructure:"quantity" yaml:"quantity"`
}

// DatabaseConfig holds the database connection details for run history.
type DatabaseConfig struct {
	URL     string `mapstructure:"url" yaml:"-"`
	Persist bool   `mapstructure:"persist" yaml:"persist"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "crosscheck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverPlaywright)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.install", true)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.slow_mo", "0s")
	v.SetDefault("browser.action_timeout", "30s")
	v.SetDefault("browser.viewport", map[string]int{"width": 1680, "height": 900})

	// -- Shop --
	v.SetDefault("shop.bo_url", "http://localhost:8001/admin-dev/")
	v.SetDefault("shop.admin_email", "demo@prestashop.com")
	v.SetDefault("shop.locale", "en")

	// -- Run --
	v.SetDefault("run.matrix_file", "")
	v.SetDefault("run.step_timeout", "60s")
	v.SetDefault("run.teardown_timeout", "2m")
	v.SetDefault("run.output", "")
	v.SetDefault("run.format", "text")

	// -- Fixture --
	v.SetDefault("fixture.type", "Standard product")
	v.SetDefault("fixture.quantity", 0)

	// -- Database --
	v.SetDefault("database.persist", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("shop.admin_password", "CROSSCHECK_ADMIN_PASSWORD")
	_ = v.BindEnv("database.url", "CROSSCHECK_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Browser.Driver = strings.ToLower(strings.TrimSpace(cfg.Browser.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.Browser.Driver {
	case DriverPlaywright, DriverChromedp:
	default:
		return fmt.Errorf("browser.driver must be %q or %q, got %q", DriverPlaywright, DriverChromedp, c.Browser.Driver)
	}
	if c.Browser.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be a positive duration")
	}
	if c.Browser.SlowMo < 0 {
		return fmt.Errorf("browser.slow_mo must not be negative")
	}
	if c.Shop.BOURL == "" {
		return fmt.Errorf("shop.bo_url is a required configuration field")
	}
	if c.Shop.Locale == "" {
		return fmt.Errorf("shop.locale is a required configuration field")
	}
	if c.Run.StepTimeout <= 0 {
		return fmt.Errorf("run.step_timeout must be a positive duration")
	}
	if c.Run.TeardownTimeout <= 0 {
		return fmt.Errorf("run.teardown_timeout must be a positive duration")
	}
	switch c.Run.Format {
	case "json", "junit", "text":
	default:
		return fmt.Errorf("run.format must be one of json, junit, text")
	}
	if c.Fixture.Quantity < 0 {
		return fmt.Errorf("fixture.quantity must not be negative")
	}
	if c.Database.Persist && c.Database.URL == "" {
		return fmt.Errorf("database.url is required when database.persist is enabled (CROSSCHECK_DATABASE_URL)")
	}
	return nil
}
