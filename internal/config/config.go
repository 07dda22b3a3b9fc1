// Package config loads and validates server configuration.
//
// Sources, in order of precedence: CLI flags (applied by the command layer),
// an optional YAML configuration file, and built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	// Format selects the wire encoding for this run: "textual" or "binary".
	// Every client of the run speaks the same encoding.
	Format string `mapstructure:"format" validate:"required,oneof=textual binary"`

	// Workers is the number of message-processing workers.
	Workers int `mapstructure:"workers" validate:"required,gte=1,lte=1024"`

	// Port is the TCP port the chat listener binds to all interfaces on.
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535"`

	// ShutdownTimeout bounds the wait for connections to drain on shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Admin configures the optional admin HTTP server (health, metrics).
	Admin AdminConfig `mapstructure:"admin"`

	// Telemetry configures optional OpenTelemetry tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level to output: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is "text" or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output"`
}

// AdminConfig configures the admin HTTP server.
type AdminConfig struct {
	// Enabled turns the admin server on. Off by default.
	Enabled bool `mapstructure:"enabled"`

	// Port is the admin HTTP port.
	Port int `mapstructure:"port" validate:"omitempty,gt=0,lte=65535"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	// Enabled turns tracing on. Off by default.
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP/gRPC collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint"`

	// Insecure disables TLS on the exporter connection.
	Insecure bool `mapstructure:"insecure"`

	// SampleRate is the trace sampling ratio in [0, 1].
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// Defaults mirror the historical server: textual wire format, two workers,
// port 10221.
func setDefaults(v *viper.Viper) {
	v.SetDefault("format", "textual")
	v.SetDefault("workers", 2)
	v.SetDefault("port", 10221)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.port", 10222)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.sample_rate", 1.0)
}

// Load reads the configuration, optionally merging a YAML file on top of the
// defaults. Flag overrides are applied by the caller before Validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
