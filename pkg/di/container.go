// Package di provides the dependency injection container wiring the
// tree, config, and HTTP server together.
package di

import (
	"github.com/ssargent/blt/pkg/api" //nolint:depguard
	"github.com/ssargent/blt/pkg/bufcache"
	"github.com/ssargent/blt/pkg/bptree"
	"github.com/ssargent/blt/pkg/engineconfig"
	"github.com/ssargent/blt/pkg/vtree"
)

// Container holds all the dependencies for the application.
type Container struct {
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container.
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
	}
}

// GetServerFactory returns the server factory.
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing).
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// BuildTree wires a bufcache.Cache and bptree.Tree per cfg.Engine into
// a vtree.Tree, optionally fronted by a WAL per cfg.WAL.
func BuildTree(cfg *engineconfig.Config) (vtree.Tree, *bufcache.Cache, error) {
	cache := bufcache.New(bufcache.Options{
		LRUCapacity:           cfg.Engine.LRUCapacity,
		DiskLatency:           cfg.Engine.DiskLatencyEnabled,
		ThroughputBytesPerSec: cfg.Engine.ThroughputBytesPerSec,
	})

	tree, err := bptree.Init(cache, cfg.Engine.ValueSize)
	if err != nil {
		return nil, nil, err
	}

	adapter := vtree.NewBPTree(tree)

	if cfg.WAL.MaxEntries > 0 {
		return vtree.NewWAL(adapter, cfg.WAL.MaxEntries, cfg.WAL.FlushModeValue()), cache, nil
	}
	return adapter, cache, nil
}
