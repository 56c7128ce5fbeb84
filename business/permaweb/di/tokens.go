// Package di contains dependency injection tokens for the permaweb context.
package di

import (
	"github.com/permalab/permaweb-agent/business/permaweb/app"
	"github.com/permalab/permaweb-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PermawebService = di.NewToken[*app.PermawebService]("permaweb.PermawebService")
)

// Private dependency tokens - internal to the permaweb module
var (
	LedgerClient = di.NewToken[app.LedgerClient]("permaweb:ledgerClient")
	LocalNode    = di.NewToken[app.LocalNode]("permaweb:localNode")
)

// Helper functions for type-safe access
func GetPermawebService(c di.ServiceRegistry) *app.PermawebService {
	return di.GetToken(c, PermawebService)
}

func GetLedgerClient(c di.ServiceRegistry) app.LedgerClient {
	return di.GetToken(c, LedgerClient)
}

func GetLocalNode(c di.ServiceRegistry) app.LocalNode {
	return di.GetToken(c, LocalNode)
}
