package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lifesos-protocol/lifesos-go/pkg/protocol"
	"github.com/lifesos-protocol/lifesos-go/pkg/session"
)

// Config holds the settings for connecting to and monitoring a base unit.
type Config struct {
	// Host is the address of the base unit's ethernet adapter.
	// Required unless ListenMode is set.
	Host string `yaml:"host"`

	// Port of the ethernet adapter (default: 1680).
	Port int `yaml:"port"`

	// Password appended to commands. Leave empty when the base unit
	// has no password configured.
	Password string `yaml:"password"`

	// ListenMode waits for the base unit to dial in instead of
	// connecting out.
	ListenMode bool `yaml:"listen_mode"`

	// ListenAddress to bind in listen mode (e.g. ":1680").
	ListenAddress string `yaml:"listen_address"`

	// EnumerateOnAccept walks the device inventory when a base unit
	// dials in (default: true).
	EnumerateOnAccept *bool `yaml:"enumerate_on_accept"`

	// CommandTimeout is the time to wait for each command response
	// (default: 8s).
	CommandTimeout Duration `yaml:"command_timeout"`

	// ReconnectInitialDelay is the first reconnect backoff delay
	// (default: 1s).
	ReconnectInitialDelay Duration `yaml:"reconnect_initial_delay"`

	// ReconnectMaxDelay caps the reconnect backoff (default: 60s).
	ReconnectMaxDelay Duration `yaml:"reconnect_max_delay"`

	// MaxReconnectAttempts bounds consecutive failed connection
	// attempts before giving up (default: 0, unlimited).
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// SubscriptionBuffer is the per-subscriber notification buffer
	// (default: 64).
	SubscriptionBuffer int `yaml:"subscription_buffer"`

	// LogFile receives the protocol log in CBOR format. Empty
	// disables protocol logging.
	LogFile string `yaml:"log_file"`

	// LogLevel controls console output: debug, info, warn or error
	// (default: info).
	LogLevel string `yaml:"log_level"`
}

// Duration wraps time.Duration so YAML values can be written as "30s".
type Duration time.Duration

func (d Duration) Value() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns a configuration with every optional field set to
// its default value. Host is left empty and must be filled in.
func Default() *Config {
	enumerate := true
	return &Config{
		Port:                  protocol.DefaultPort,
		EnumerateOnAccept:     &enumerate,
		CommandTimeout:        Duration(session.DefaultCommandTimeout),
		ReconnectInitialDelay: Duration(time.Second),
		ReconnectMaxDelay:     Duration(60 * time.Second),
		SubscriptionBuffer:    64,
		LogLevel:              "info",
	}
}

// Parse reads a configuration from YAML bytes, applying defaults for
// any field left unset.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// applyDefaults fills in zero values the YAML left unset. Explicit
// zeroes for the durations are indistinguishable from absent keys and
// fall back to the defaults as well.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.EnumerateOnAccept == nil {
		c.EnumerateOnAccept = d.EnumerateOnAccept
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = d.CommandTimeout
	}
	if c.ReconnectInitialDelay == 0 {
		c.ReconnectInitialDelay = d.ReconnectInitialDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = d.ReconnectMaxDelay
	}
	if c.SubscriptionBuffer == 0 {
		c.SubscriptionBuffer = d.SubscriptionBuffer
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.ListenMode {
		if c.ListenAddress == "" {
			return fmt.Errorf("listen_address is required in listen mode")
		}
	} else if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must not be negative")
	}
	if c.ReconnectMaxDelay < c.ReconnectInitialDelay {
		return fmt.Errorf("reconnect_max_delay is below reconnect_initial_delay")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is invalid", c.LogLevel)
	}
	return nil
}
