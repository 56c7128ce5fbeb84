// Package agent implements the agent bounded context: the action handler
// surface the host platform calls into.
package agent

import (
	"context"

	"github.com/permalab/permaweb-agent/business/agent/app"
	agentDI "github.com/permalab/permaweb-agent/business/agent/di"
	permawebDI "github.com/permalab/permaweb-agent/business/permaweb/di"
	"github.com/permalab/permaweb-agent/internal/di"
	"github.com/permalab/permaweb-agent/internal/logger"
	"github.com/permalab/permaweb-agent/internal/monolith"
)

// Module implements the agent bounded context.
type Module struct{}

// RegisterServices registers all agent services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, agentDI.Handlers, func(sr di.ServiceRegistry) *app.Handlers {
		log := sr.Get("logger").(logger.LoggerInterface)

		svc := permawebDI.GetPermawebService(sr)
		return app.NewHandlers(svc, log)
	})

	return nil
}

// Startup resolves the handler set so wiring problems surface at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	agentDI.GetHandlers(mono.Services())

	mono.Logger().Info(ctx, "agent module started")
	return nil
}
