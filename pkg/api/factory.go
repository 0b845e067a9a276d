// Package api provides factory implementations for dependency injection.
package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/blt/pkg/vtree"
)

// ServerStarter starts the API server against a given tree and config.
type ServerStarter interface {
	StartServer(tree vtree.Tree, config ServerConfig, extraGatherers ...prometheus.Gatherer) error
}

// ServerFactory creates ServerStarter instances.
type ServerFactory interface {
	CreateServerStarter() ServerStarter
}

// DefaultServerFactory is the default ServerFactory implementation.
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory.
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter.
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default ServerStarter implementation.
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration.
func (s *DefaultServerStarter) StartServer(tree vtree.Tree, config ServerConfig, extraGatherers ...prometheus.Gatherer) error {
	return StartServer(tree, config, extraGatherers...)
}
