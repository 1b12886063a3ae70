package config

import (
	"fmt"
	"time"
)

// Config holds server configuration
type Config struct {
	// Server settings
	Port int
	Host string

	// Service definition settings
	ServiceDirectory string

	// Transport settings
	TransportType string // "nats" or "memory"
	NATSURL       string

	// Evaluation settings
	TickInterval    time.Duration
	MetricsInterval time.Duration
	MaxParallelEval int64

	// Flapping guard
	GlobalFailoversPerHour int

	// Audit settings (empty disables persistence)
	AuditDBPath string

	// Operational settings
	GracefulShutdownTimeout time.Duration
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.ServiceDirectory == "" {
		return fmt.Errorf("service directory is required")
	}

	if c.TransportType != "nats" && c.TransportType != "memory" {
		return fmt.Errorf("transport type must be 'nats' or 'memory'")
	}

	if c.TransportType == "nats" && c.NATSURL == "" {
		return fmt.Errorf("NATS URL required when transport type is 'nats'")
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}

	return nil
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Port:                    8080,
		Host:                    "0.0.0.0",
		TransportType:           "nats",
		NATSURL:                 "nats://127.0.0.1:4222",
		TickInterval:            5 * time.Second,
		MetricsInterval:         time.Minute,
		MaxParallelEval:         8,
		GlobalFailoversPerHour:  4,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}
