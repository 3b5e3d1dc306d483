package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	c, err := Parse([]byte("host: 192.168.1.100\n"))
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.100", c.Host)
	assert.Equal(t, 1680, c.Port)
	assert.Equal(t, 8*time.Second, c.CommandTimeout.Value())
	assert.Equal(t, time.Second, c.ReconnectInitialDelay.Value())
	assert.Equal(t, 60*time.Second, c.ReconnectMaxDelay.Value())
	assert.Equal(t, 0, c.MaxReconnectAttempts)
	assert.Equal(t, 64, c.SubscriptionBuffer)
	assert.Equal(t, "info", c.LogLevel)
	require.NotNil(t, c.EnumerateOnAccept)
	assert.True(t, *c.EnumerateOnAccept)
}

func TestParseFull(t *testing.T) {
	data := `
host: base-unit.local
port: 1681
password: "9876"
command_timeout: 4s
reconnect_initial_delay: 500ms
reconnect_max_delay: 2m
max_reconnect_attempts: 5
enumerate_on_accept: false
subscription_buffer: 128
log_file: protocol.log
log_level: debug
`
	c, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, "base-unit.local", c.Host)
	assert.Equal(t, 1681, c.Port)
	assert.Equal(t, "9876", c.Password)
	assert.Equal(t, 4*time.Second, c.CommandTimeout.Value())
	assert.Equal(t, 500*time.Millisecond, c.ReconnectInitialDelay.Value())
	assert.Equal(t, 2*time.Minute, c.ReconnectMaxDelay.Value())
	assert.Equal(t, 5, c.MaxReconnectAttempts)
	assert.Equal(t, 128, c.SubscriptionBuffer)
	assert.Equal(t, "protocol.log", c.LogFile)
	assert.Equal(t, "debug", c.LogLevel)
	require.NotNil(t, c.EnumerateOnAccept)
	assert.False(t, *c.EnumerateOnAccept, "an explicit false must not be reset to the default")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing host", "port: 1680\n", "host is required"},
		{"bad duration", "host: h\ncommand_timeout: soon\n", "invalid duration"},
		{"bad port", "host: h\nport: 70000\n", "out of range"},
		{"bad log level", "host: h\nlog_level: loud\n", "log_level"},
		{"listen without address", "listen_mode: true\n", "listen_address is required"},
		{"delay inversion", "host: h\nreconnect_initial_delay: 2m\nreconnect_max_delay: 1s\n", "below"},
		{"not yaml", "host: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestListenMode(t *testing.T) {
	c, err := Parse([]byte("listen_mode: true\nlisten_address: \":1680\"\n"))
	require.NoError(t, err)

	assert.True(t, c.ListenMode)
	assert.Equal(t, ":1680", c.ListenAddress)
	assert.Empty(t, c.Host, "listen mode needs no host")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 10.0.0.5\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", c.Host)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
