// Package config loads controller, polling, logging and metrics settings.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/lexfrei/go-unifi-rules/api/controller"
	"github.com/lexfrei/go-unifi-rules/internal/logging"
	"github.com/lexfrei/go-unifi-rules/observability"
)

const (
	// DefaultPollInterval matches the refresh cadence of the rule switches.
	DefaultPollInterval = 300 * time.Second
	// DefaultMetricsListen is where watch serves /metrics when enabled.
	DefaultMetricsListen = ":9105"
)

// Config represents the application configuration.
type Config struct {
	Controller ControllerConfig `yaml:"controller"`
	Poll       PollConfig       `yaml:"poll"`
	Logging    logging.Config   `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ControllerConfig holds controller connection settings.
type ControllerConfig struct {
	Host     string `yaml:"host"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// InsecureSkipVerify defaults to true when unset.
	InsecureSkipVerify *bool         `yaml:"insecure_skip_verify"`
	Timeout            time.Duration `yaml:"timeout"`
	RateLimit          int           `yaml:"rate_limit"`
	WriteRateLimit     int           `yaml:"write_rate_limit"`
	MaxRetries         int           `yaml:"max_retries"`
}

// PollConfig holds the refresh cadence of watch.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Load reads configuration from a YAML file and expands ${VAR} references
// against the environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv creates a configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	cfg := Config{
		Controller: ControllerConfig{
			Host:     os.Getenv("UNIFI_HOST"),
			Username: os.Getenv("UNIFI_USERNAME"),
			Password: os.Getenv("UNIFI_PASSWORD"),
		},
		Logging: logging.Config{
			Level: os.Getenv("UNIFI_LOG_LEVEL"),
			Path:  os.Getenv("UNIFI_LOG_PATH"),
		},
		Metrics: MetricsConfig{
			Listen: os.Getenv("UNIFI_METRICS_LISTEN"),
		},
	}

	if val, ok := os.LookupEnv("UNIFI_SKIP_TLS_VERIFY"); ok {
		skip := parseBool(val)
		cfg.Controller.InsecureSkipVerify = &skip
	}

	var err error
	if cfg.Controller.Timeout, err = envDuration("UNIFI_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Poll.Interval, err = envDuration("UNIFI_POLL_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.Controller.MaxRetries, err = envInt("UNIFI_MAX_RETRIES"); err != nil {
		return nil, err
	}

	cfg.Metrics.Enabled = cfg.Metrics.Listen != ""

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Controller.InsecureSkipVerify == nil {
		skip := true
		c.Controller.InsecureSkipVerify = &skip
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
}

// Validate reports the first missing or out of range setting.
func (c *Config) Validate() error {
	switch {
	case c.Controller.Host == "":
		return errors.New("controller.host is required")
	case c.Controller.Username == "":
		return errors.New("controller.username is required")
	case c.Controller.Password == "":
		return errors.New("controller.password is required")
	case c.Controller.Timeout < 0:
		return errors.Newf("controller.timeout must not be negative, got %s", c.Controller.Timeout)
	case c.Controller.MaxRetries < 0:
		return errors.Newf("controller.max_retries must not be negative, got %d", c.Controller.MaxRetries)
	case c.Poll.Interval < time.Second:
		return errors.Newf("poll.interval must be at least 1s, got %s", c.Poll.Interval)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// ClientConfig converts the controller section into a client configuration.
func (c *Config) ClientConfig(logger observability.Logger, metrics observability.MetricsRecorder) *controller.ClientConfig {
	skip := true
	if c.Controller.InsecureSkipVerify != nil {
		skip = *c.Controller.InsecureSkipVerify
	}

	return &controller.ClientConfig{
		Host:                    c.Controller.Host,
		Username:                c.Controller.Username,
		Password:                c.Controller.Password,
		InsecureSkipVerify:      skip,
		Timeout:                 c.Controller.Timeout,
		RateLimitPerMinute:      c.Controller.RateLimit,
		WriteRateLimitPerMinute: c.Controller.WriteRateLimit,
		MaxRetries:              c.Controller.MaxRetries,
		Logger:                  logger,
		Metrics:                 metrics,
	}
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envDuration(key string) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return d, nil
}

func envInt(key string) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}
