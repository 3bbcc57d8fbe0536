package server

import (
	"context"
	"errors"
	"time"

	"github.com/bbrzycki/datasetd/internal/registry"
	"github.com/bbrzycki/datasetd/pkg/types"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultMaxBodySize       = 1 << 20 // 1 MiB
)

// Engine runs a validated dataset query. Satisfied by *query.Executor; tests
// inject mocks.
type Engine interface {
	Execute(ctx context.Context, d *registry.Descriptor, q *types.DatasetQuery) (*types.DatasetSlice, error)
}

// Pinger reports store reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Catalog *registry.Catalog
	Engine  Engine
	Pinger  Pinger

	ListenAddr string

	// Optional configuration.
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	MaxBodySize       int64
}

func (c *Config) Validate() error {
	if c.Catalog == nil {
		return errors.New("catalog is required")
	}
	if c.Engine == nil {
		return errors.New("engine is required")
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
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = defaultMaxBodySize
	}
	return nil
}
