package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	IPC       IPCConfig
	Workers   WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// CORSOrigins restricts cross-origin callers. Empty allows any origin.
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	// MaxConnections caps concurrent HTTP connections. 0 disables the cap.
	MaxConnections int `envconfig:"MAX_CONNECTIONS" default:"1024"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
	// History is how many recent entries GET /logs and new stream clients see.
	History int `envconfig:"LOG_HISTORY" default:"200"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// IPCConfig holds channel defaults.
type IPCConfig struct {
	// SharedBufferCapacity is used when a shared-buffer create request omits it.
	SharedBufferCapacity int `envconfig:"IPC_SHM_CAPACITY" default:"256"`
	// StreamBuffer is how many decoded frames a stream holds for receivers.
	StreamBuffer int `envconfig:"IPC_STREAM_BUFFER" default:"64"`
	// SeedDir holds channel topology files loaded at startup. Empty disables seeding.
	SeedDir string `envconfig:"IPC_SEED_DIR" default:""`
}

// WorkerConfig holds worker supervision settings.
type WorkerConfig struct {
	Tick            time.Duration `envconfig:"WORKER_TICK" default:"100ms"`
	EmitPeriod      time.Duration `envconfig:"WORKER_EMIT_PERIOD" default:"1s"`
	Marker          string        `envconfig:"WORKER_MARKER" default:"PING"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"5s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate rejects values the broker cannot run with.
func (c *Config) Validate() error {
	if c.IPC.SharedBufferCapacity < 1 {
		return fmt.Errorf("invalid config: IPC_SHM_CAPACITY must be positive, got %d", c.IPC.SharedBufferCapacity)
	}
	if c.IPC.StreamBuffer < 1 {
		return fmt.Errorf("invalid config: IPC_STREAM_BUFFER must be positive, got %d", c.IPC.StreamBuffer)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("invalid config: MAX_CONNECTIONS must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.Logging.History < 0 {
		return fmt.Errorf("invalid config: LOG_HISTORY must not be negative, got %d", c.Logging.History)
	}
	if c.Workers.Tick <= 0 {
		return fmt.Errorf("invalid config: WORKER_TICK must be positive, got %s", c.Workers.Tick)
	}
	if c.Workers.EmitPeriod <= 0 {
		return fmt.Errorf("invalid config: WORKER_EMIT_PERIOD must be positive, got %s", c.Workers.EmitPeriod)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			ShutdownTimeout: 10 * time.Second,
			MaxConnections:  1024,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
			History:     200,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		IPC: IPCConfig{
			SharedBufferCapacity: 256,
			StreamBuffer:         64,
		},
		Workers: WorkerConfig{
			Tick:            100 * time.Millisecond,
			EmitPeriod:      time.Second,
			Marker:          "PING",
			ShutdownTimeout: 5 * time.Second,
		},
	}
}
