// Package config holds the service configuration. Values come from Default, are
// overlaid by an optional TOML file and finally by command line flags.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/jaskrrish/Go-QSim/internal/quantum"
)

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Simulator SimulatorConfig `toml:"simulator"`
	Remote    RemoteConfig    `toml:"remote"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port           string   `toml:"port"`
	ReadTimeout    Duration `toml:"read_timeout"`
	WriteTimeout   Duration `toml:"write_timeout"`
	IdleTimeout    Duration `toml:"idle_timeout"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// SimulatorConfig configures the built-in statevector backend
type SimulatorConfig struct {
	DefaultQubits int  `toml:"default_qubits"`
	MaxQubits     int  `toml:"max_qubits"`
	Strict        bool `toml:"strict"`
	Shots         int  `toml:"shots"`
	// CacheSize of 0 disables the result cache
	CacheSize int `toml:"cache_size"`
}

// RemoteConfig configures the optional external Aer engine
type RemoteConfig struct {
	Enabled      bool     `toml:"enabled"`
	BaseURL      string   `toml:"base_url"`
	APIKey       string   `toml:"api_key"`
	Timeout      Duration `toml:"timeout"`
	MaxFailures  int      `toml:"max_failures"`
	ResetTimeout Duration `toml:"reset_timeout"`
}

// RateLimitConfig configures per-client request limiting. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxClients        int     `toml:"max_clients"`
	// TrustForwarded keys clients on X-Forwarded-For instead of the peer address
	TrustForwarded bool `toml:"trust_forwarded"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration wraps time.Duration so it can be written as "15s" in TOML
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", string(text))
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{15 * time.Second},
			IdleTimeout:  Duration{60 * time.Second},
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
			},
		},
		Simulator: SimulatorConfig{
			DefaultQubits: quantum.DefaultQubitCount,
			MaxQubits:     quantum.DefaultMaxQubits,
			Shots:         quantum.DefaultShots,
			CacheSize:     256,
		},
		Remote: RemoteConfig{
			Timeout:      Duration{quantum.DefaultRemoteTimeout},
			MaxFailures:  3,
			ResetTimeout: Duration{30 * time.Second},
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Burst:             20,
			MaxClients:        1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Simulator.DefaultQubits < 1 {
		return errors.New("simulator.default_qubits must be at least 1")
	}
	if c.Simulator.MaxQubits < c.Simulator.DefaultQubits {
		return errors.Errorf("simulator.max_qubits (%d) is below simulator.default_qubits (%d)",
			c.Simulator.MaxQubits, c.Simulator.DefaultQubits)
	}
	if c.Simulator.MaxQubits > 30 {
		return errors.Errorf("simulator.max_qubits %d is too large for a dense state vector", c.Simulator.MaxQubits)
	}
	if c.Simulator.Shots < 1 {
		return errors.New("simulator.shots must be positive")
	}
	if c.Simulator.CacheSize < 0 {
		return errors.New("simulator.cache_size must not be negative")
	}
	if c.Remote.Enabled && c.Remote.BaseURL == "" {
		return errors.New("remote.base_url is required when remote.enabled is set")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return errors.New("ratelimit.requests_per_second must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && (c.RateLimit.Burst < 1 || c.RateLimit.MaxClients < 1) {
		return errors.New("ratelimit.burst and ratelimit.max_clients must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// SimulatorOptions converts the simulator section into quantum.Options
func (c *Config) SimulatorOptions() quantum.Options {
	return quantum.Options{
		DefaultQubits: c.Simulator.DefaultQubits,
		MaxQubits:     c.Simulator.MaxQubits,
		Strict:        c.Simulator.Strict,
	}
}
