// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Flow      FlowConfig      `mapstructure:"flow" yaml:"flow"`
	Upload    UploadConfig    `mapstructure:"upload" yaml:"upload"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instances.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SlowMo            time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
	ViewportWidth     int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	Args              []string      `mapstructure:"args" yaml:"args"`
}

// SessionConfig locates the persisted per-provider authentication state.
type SessionConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ProvidersConfig tunes the provider automation recipes.
type ProvidersConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MediaPollInterval time.Duration `mapstructure:"media_poll_interval" yaml:"media_poll_interval"`
	ResponseMaxWait   time.Duration `mapstructure:"response_max_wait" yaml:"response_max_wait"`
	MediaMaxWait      time.Duration `mapstructure:"media_max_wait" yaml:"media_max_wait"`
	StabilityCount    int           `mapstructure:"stability_count" yaml:"stability_count"`
	MediaStability    int           `mapstructure:"media_stability" yaml:"media_stability"`
	ManualLoginWait   time.Duration `mapstructure:"manual_login_wait" yaml:"manual_login_wait"`
	LoginCheckEvery   time.Duration `mapstructure:"login_check_every" yaml:"login_check_every"`
	MinImageWidth     int           `mapstructure:"min_image_width" yaml:"min_image_width"`
	MinImageHeight    int           `mapstructure:"min_image_height" yaml:"min_image_height"`
	SettleDelay       time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// FlowConfig configures end-to-end analysis/generation pipelines.
type FlowConfig struct {
	ImageCount int    `mapstructure:"image_count" yaml:"image_count"`
	OutputDir  string `mapstructure:"output_dir" yaml:"output_dir"`
}

// UploadConfig configures the external asset-hosting collaborator.
type UploadConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey        string        `mapstructure:"api_key" yaml:"-"`
	RatePerMinute float64       `mapstructure:"rate_per_minute" yaml:"rate_per_minute"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tryon-cli")
	v.SetDefault("logger.log_file", "tryon.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	// 1280x720 keeps the chat input and upload affordances inside the viewport on
	// every supported provider.
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.slow_mo", "0s")
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")

	// -- Session --
	v.SetDefault("session.dir", "")

	// -- Providers --
	v.SetDefault("providers.poll_interval", "1s")
	v.SetDefault("providers.media_poll_interval", "2s")
	v.SetDefault("providers.response_max_wait", "5m")
	v.SetDefault("providers.media_max_wait", "3m")
	v.SetDefault("providers.stability_count", 3)
	v.SetDefault("providers.media_stability", 6)
	v.SetDefault("providers.manual_login_wait", "2m")
	v.SetDefault("providers.login_check_every", "5s")
	v.SetDefault("providers.min_image_width", 256)
	v.SetDefault("providers.min_image_height", 256)
	v.SetDefault("providers.settle_delay", "1s")

	// -- Flow --
	v.SetDefault("flow.image_count", 1)
	v.SetDefault("flow.output_dir", "")

	// -- Upload --
	v.SetDefault("upload.endpoint", "")
	v.SetDefault("upload.rate_per_minute", 20.0)
	v.SetDefault("upload.timeout", "60s")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data.
	v.BindEnv("upload.api_key", "TRYON_UPLOAD_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.applyPathDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Cannot happen with pure defaults.
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// applyPathDefaults resolves directories that default relative to the home dir.
func (c *Config) applyPathDefaults() error {
	if c.Session.Dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		c.Session.Dir = filepath.Join(home, ".tryon", "sessions")
	}
	if c.Flow.OutputDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		c.Flow.OutputDir = filepath.Join(home, ".tryon", "generated")
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	if c.Providers.PollInterval <= 0 {
		return fmt.Errorf("providers.poll_interval must be a positive duration")
	}
	if c.Providers.StabilityCount <= 0 {
		return fmt.Errorf("providers.stability_count must be a positive integer")
	}
	if c.Providers.ResponseMaxWait < c.Providers.PollInterval {
		return fmt.Errorf("providers.response_max_wait must be at least one poll interval")
	}
	if c.Flow.ImageCount <= 0 {
		return fmt.Errorf("flow.image_count must be a positive integer")
	}
	return nil
}
