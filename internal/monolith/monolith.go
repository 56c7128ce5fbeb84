// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/permalab/permaweb-agent/internal/config"
	"github.com/permalab/permaweb-agent/internal/di"
	"github.com/permalab/permaweb-agent/internal/logger"
)

// Monolith is the main application container providing access to shared
// infrastructure.
type Monolith interface {
	Config() *config.Config
	Connection() *config.ConnectionConfig
	Logger() logger.LoggerInterface
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and
// start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config     *config.Config
	connection *config.ConnectionConfig
	logger     logger.LoggerInterface
	container  di.Container
}

// New creates a new Monolith instance. The raw gateway settings are resolved
// and validated here, so a broken configuration fails before any module runs.
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	conn, err := config.Resolve(cfg.Gateway)
	if err != nil {
		return nil, err
	}

	for _, warning := range config.CheckPrecedence(cfg.Gateway) {
		log.Warn(context.Background(), "configuration warning", "warning", warning)
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("connection", conn)
	container.Register("logger", log)

	return &app{
		config:     cfg,
		connection: conn,
		logger:     log,
		container:  container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Connection() *config.ConnectionConfig {
	return a.connection
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	return nil
}
