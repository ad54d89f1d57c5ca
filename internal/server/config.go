package server

import (
	"fmt"

	"github.com/agleyzer/m3ucheck/internal/parser"
)

// Default service settings.
const (
	DefaultPort         = 8080
	DefaultMaxBodyBytes = 10 << 20
)

// Config holds the HTTP service configuration.
type Config struct {
	// Port to listen on
	Port int

	// MaxBodyBytes caps request bodies
	MaxBodyBytes int64

	// Options applied to every parse
	Options parser.Options

	// Version reported by /health
	Version string
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}

	if err := c.Options.Validate(); err != nil {
		return fmt.Errorf("invalid parse options: %w", err)
	}

	return nil
}
