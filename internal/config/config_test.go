package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexfrei/go-unifi-rules/internal/config"
)

const sampleConfig = `
controller:
  host: 192.168.1.1
  username: admin
  password: ${TEST_UNIFI_PASSWORD}
  insecure_skip_verify: false
  timeout: 10s
  max_retries: 2
poll:
  interval: 1m
logging:
  level: debug
  path: /var/log/unifi-rules.log
metrics:
  enabled: true
  listen: 127.0.0.1:9200
`

func TestLoad(t *testing.T) {
	t.Setenv("TEST_UNIFI_PASSWORD", "from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Controller.Host)
	assert.Equal(t, "from-env", cfg.Controller.Password)
	require.NotNil(t, cfg.Controller.InsecureSkipVerify)
	assert.False(t, *cfg.Controller.InsecureSkipVerify)
	assert.Equal(t, 10*time.Second, cfg.Controller.Timeout)
	assert.Equal(t, time.Minute, cfg.Poll.Interval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.Listen)

	client := cfg.ClientConfig(nil, nil)
	assert.False(t, client.InsecureSkipVerify)
	assert.Equal(t, 2, client.MaxRetries)
	assert.Equal(t, "admin", client.Username)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte("controller: {host: unifi.local, username: admin, password: x}\n"))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPollInterval, cfg.Poll.Interval)
	assert.Equal(t, config.DefaultMetricsListen, cfg.Metrics.Listen)
	assert.False(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.ClientConfig(nil, nil).InsecureSkipVerify, "self-signed certificates are accepted by default")
}

func TestParseValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "missing host", doc: "controller: {username: a, password: b}", wantErr: "controller.host"},
		{name: "missing username", doc: "controller: {host: h, password: b}", wantErr: "controller.username"},
		{name: "missing password", doc: "controller: {host: h, username: a}", wantErr: "controller.password"},
		{name: "interval too short", doc: "controller: {host: h, username: a, password: b}\npoll: {interval: 10ms}", wantErr: "poll.interval"},
		{name: "negative retries", doc: "controller: {host: h, username: a, password: b, max_retries: -1}", wantErr: "max_retries"},
		{name: "bad log level", doc: "controller: {host: h, username: a, password: b}\nlogging: {level: loud}", wantErr: "log level"},
		{name: "bad duration", doc: "controller: {host: h, username: a, password: b, timeout: soon}", wantErr: "parse config"},
		{name: "not yaml", doc: "controller: [", wantErr: "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UNIFI_HOST", "10.0.0.1")
	t.Setenv("UNIFI_USERNAME", "admin")
	t.Setenv("UNIFI_PASSWORD", "secret")
	t.Setenv("UNIFI_SKIP_TLS_VERIFY", "no")
	t.Setenv("UNIFI_POLL_INTERVAL", "90s")
	t.Setenv("UNIFI_MAX_RETRIES", "1")
	t.Setenv("UNIFI_METRICS_LISTEN", ":9999")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Controller.Host)
	assert.False(t, *cfg.Controller.InsecureSkipVerify)
	assert.Equal(t, 90*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 1, cfg.Controller.MaxRetries)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadFromEnvRequiresCredentials(t *testing.T) {
	t.Setenv("UNIFI_HOST", "10.0.0.1")
	t.Setenv("UNIFI_USERNAME", "")
	t.Setenv("UNIFI_PASSWORD", "")

	_, err := config.LoadFromEnv()
	require.Error(t, err)
}

func TestLoadFromEnvInvalidNumber(t *testing.T) {
	t.Setenv("UNIFI_HOST", "10.0.0.1")
	t.Setenv("UNIFI_USERNAME", "admin")
	t.Setenv("UNIFI_PASSWORD", "secret")
	t.Setenv("UNIFI_MAX_RETRIES", "many")

	_, err := config.LoadFromEnv()
	require.Error(t, err)
}
