package mcpserver

import (
	"errors"
	"log/slog"
	"time"

	"github.com/bbrzycki/datasetd/internal/query"
	"github.com/bbrzycki/datasetd/internal/registry"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

type Config struct {
	Logger   *slog.Logger
	Catalog  *registry.Catalog
	Executor *query.Executor

	Version    string
	ListenAddr string

	// Optional configuration.
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Catalog == nil {
		return errors.New("catalog is required")
	}
	if c.Executor == nil {
		return errors.New("executor is required")
	}
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}

	// Optional configuration.
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return nil
}
