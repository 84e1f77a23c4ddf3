package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/rollcall/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// ROLLCALL_SERVICE_URL.
const EnvPrefix = "ROLLCALL_"

const (
	defaultServiceURL     = "http://localhost:8000"
	defaultServiceTimeout = 10 * time.Second

	defaultNotificationDuration = 5 * time.Second

	defaultListenAddr = ":8080"
	defaultPageTitle  = "Mergington High School Activities"

	defaultMetricsPrefix = "rollcall"
	defaultJobName       = "rollcall"
)

// Config represents the complete application configuration
type Config struct {
	Service       ServiceConfig       `yaml:"service" envPrefix:"SERVICE_"`
	Notifications NotificationsConfig `yaml:"notifications" envPrefix:"NOTIFICATIONS_"`
	Refresh       RefreshConfig       `yaml:"refresh" envPrefix:"REFRESH_"`
	Server        ServerConfig        `yaml:"server" envPrefix:"SERVER_"`
	Monitoring    MonitoringConfig    `yaml:"monitoring" envPrefix:"MONITORING_"`
	Logging       logging.Config      `yaml:"logging" envPrefix:"LOGGING_"`
}

// ServiceConfig locates the activities service.
type ServiceConfig struct {
	// URL is the base URL the /activities paths are resolved against.
	URL string `yaml:"url" env:"URL"`

	// Timeout bounds each request to the service.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// NotificationsConfig controls the notification slot.
type NotificationsConfig struct {
	// Duration is how long a notification stays visible.
	Duration time.Duration `yaml:"duration" env:"DURATION"`
}

// RefreshConfig schedules periodic roster fetches. An empty schedule
// disables them.
type RefreshConfig struct {
	Schedule string `yaml:"schedule" env:"SCHEDULE"`
}

// ServerConfig holds UI server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
	Title      string `yaml:"title" env:"TITLE"`
}

// MonitoringConfig holds metrics settings. Metrics are pushed only when
// VictoriaMetricsURL is set.
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url" env:"VICTORIAMETRICS_URL"`
	MetricsPrefix      string `yaml:"metrics_prefix" env:"METRICS_PREFIX"`
	JobName            string `yaml:"jobname" env:"JOBNAME"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.Service.URL == "" {
		return errors.New("service URL is required")
	}
	u, err := url.Parse(c.Service.URL)
	if err != nil {
		return fmt.Errorf("invalid service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("service URL must be http or https, got %q", c.Service.URL)
	}
	if c.Service.Timeout <= 0 {
		return errors.New("service timeout must be positive")
	}
	if c.Notifications.Duration <= 0 {
		return errors.New("notification duration must be positive")
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server listen address is required")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Service.URL == "" {
		c.Service.URL = defaultServiceURL
	}
	if c.Service.Timeout == 0 {
		c.Service.Timeout = defaultServiceTimeout
	}
	if c.Notifications.Duration == 0 {
		c.Notifications.Duration = defaultNotificationDuration
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if c.Server.Title == "" {
		c.Server.Title = defaultPageTitle
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	c.Logging.SetDefaults()
}

// LoadConfig reads the YAML config file at path, applies ROLLCALL_
// environment overrides, then fills defaults and validates. An empty path
// skips the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields of cfg from ROLLCALL_ environment variables.
// Unset variables leave the existing value alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
