// Package di contains dependency injection tokens for the agent context.
package di

import (
	"github.com/permalab/permaweb-agent/business/agent/app"
	"github.com/permalab/permaweb-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Handlers = di.NewToken[*app.Handlers]("agent.Handlers")
)

// Helper functions for type-safe access
func GetHandlers(c di.ServiceRegistry) *app.Handlers {
	return di.GetToken(c, Handlers)
}
