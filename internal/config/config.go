// Package config loads and validates the scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
// It is resolved once at startup and passed into each component's
// constructor; nothing else in the repository reads Viper directly.
type Config struct {
	Scraper ScraperSettings `mapstructure:"scraper_settings"`
	Request RequestSettings `mapstructure:"request_settings"`
	Proxy   ProxySettings   `mapstructure:"proxy_settings"`
	Logging LoggingSettings `mapstructure:"logging_settings"`
	Server  ServerSettings  `mapstructure:"server"`
	Storage StorageSettings `mapstructure:"storage"`
}

// ScraperSettings governs run policy.
type ScraperSettings struct {
	ForceRescrape bool `mapstructure:"force_rescrape"`
	EnableLogs    bool `mapstructure:"enable_logs"`
}

// RequestSettings configures the HTTP fetch client.
type RequestSettings struct {
	UserAgent      string `mapstructure:"user_agent"`
	RetryAttempts  int    `mapstructure:"retry_attempts"`
	TimeoutSeconds int    `mapstructure:"timeout"`
	DelaySeconds   int    `mapstructure:"delay_between_requests"`
}

// ProxySettings configures the rotating proxy pool. Each pool entry maps a
// URL scheme to a proxy address, e.g. {http: "http://10.0.0.1:8080"}.
type ProxySettings struct {
	Enabled  bool                `mapstructure:"enable_proxies"`
	Rotation bool                `mapstructure:"proxy_rotation"`
	Proxies  []map[string]string `mapstructure:"proxies"`
}

// LoggingSettings toggles log verbosity per subsystem.
type LoggingSettings struct {
	ShowDetailedExtraction bool `mapstructure:"show_detailed_extraction"`
	ShowProgress           bool `mapstructure:"show_progress"`
	ShowProxyInfo          bool `mapstructure:"show_proxy_info"`
	Development            bool `mapstructure:"development"`
}

// ServerSettings controls the publications API server.
type ServerSettings struct {
	Port int `mapstructure:"port"`
}

// StorageSettings sets the snapshot directory.
type StorageSettings struct {
	DataDir string `mapstructure:"data_dir"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper_settings.force_rescrape", false)
	v.SetDefault("scraper_settings.enable_logs", true)
	v.SetDefault("request_settings.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("request_settings.retry_attempts", 3)
	v.SetDefault("request_settings.timeout", 30)
	v.SetDefault("request_settings.delay_between_requests", 2)
	v.SetDefault("proxy_settings.enable_proxies", false)
	v.SetDefault("proxy_settings.proxy_rotation", true)
	v.SetDefault("logging_settings.show_detailed_extraction", true)
	v.SetDefault("logging_settings.show_progress", true)
	v.SetDefault("logging_settings.show_proxy_info", true)
	v.SetDefault("logging_settings.development", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.data_dir", "data")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Request.RetryAttempts < 0 {
		return fmt.Errorf("request_settings.retry_attempts must be >= 0")
	}
	if c.Request.TimeoutSeconds <= 0 {
		return fmt.Errorf("request_settings.timeout must be > 0")
	}
	if c.Request.DelaySeconds < 0 {
		return fmt.Errorf("request_settings.delay_between_requests must be >= 0")
	}
	if c.Proxy.Enabled && len(c.Proxy.Proxies) == 0 {
		return fmt.Errorf("proxy_settings.proxies must be set when proxies are enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	return nil
}

// RequestTimeout converts the configured timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Request.TimeoutSeconds) * time.Second
}

// RequestDelay converts the configured base retry delay into a duration.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Request.DelaySeconds) * time.Second
}
