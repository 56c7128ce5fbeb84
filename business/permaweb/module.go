// Package permaweb implements the permaweb bounded context: the mode-aware
// service over the gateway ledger and the local development node.
package permaweb

import (
	"context"

	"github.com/permalab/permaweb-agent/business/permaweb/app"
	permawebDI "github.com/permalab/permaweb-agent/business/permaweb/di"
	"github.com/permalab/permaweb-agent/business/permaweb/infra/arlocal"
	"github.com/permalab/permaweb-agent/business/permaweb/infra/arweave"
	"github.com/permalab/permaweb-agent/internal/config"
	"github.com/permalab/permaweb-agent/internal/di"
	"github.com/permalab/permaweb-agent/internal/logger"
	"github.com/permalab/permaweb-agent/internal/monolith"
)

// Module implements the permaweb bounded context.
type Module struct{}

// RegisterServices registers all permaweb services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register LedgerClient (gateway) - private dependency
	di.RegisterToken(c, permawebDI.LedgerClient, func(sr di.ServiceRegistry) app.LedgerClient {
		conn := sr.Get("connection").(*config.ConnectionConfig)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := arweave.NewClient(conn, log)
		if err != nil {
			panic("failed to create gateway client: " + err.Error())
		}
		return client
	})

	// Register LocalNode (arlocal prober) - private dependency
	di.RegisterToken(c, permawebDI.LocalNode, func(sr di.ServiceRegistry) app.LocalNode {
		conn := sr.Get("connection").(*config.ConnectionConfig)
		log := sr.Get("logger").(logger.LoggerInterface)

		prober, err := arlocal.NewProber(conn, log)
		if err != nil {
			panic("failed to create local network prober: " + err.Error())
		}
		return prober
	})

	// Register PermawebService (public - exposed to other modules)
	di.RegisterToken(c, permawebDI.PermawebService, func(sr di.ServiceRegistry) *app.PermawebService {
		conn := sr.Get("connection").(*config.ConnectionConfig)
		log := sr.Get("logger").(logger.LoggerInterface)

		ledger := permawebDI.GetLedgerClient(sr)
		local := permawebDI.GetLocalNode(sr)
		return app.NewPermawebService(conn, ledger, local, log)
	})

	return nil
}

// Startup initializes the permaweb module. Against a local development
// configuration this is where an unreachable node stops the application.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	svc := permawebDI.GetPermawebService(mono.Services())
	if err := svc.Initialize(ctx); err != nil {
		return err
	}

	log.Info(ctx, "permaweb module started",
		"localDev", svc.IsLocalDev(),
		"gateway", mono.Connection().BaseURL())
	return nil
}
