// Package di contains dependency injection tokens for the monitor context.
package di

import (
	"github.com/fd1az/dex-sampler/business/monitor/app"
	"github.com/fd1az/dex-sampler/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Monitor = di.NewToken[*app.Monitor]("monitor.Monitor")
)

// Private dependency tokens - internal to monitor module
var (
	Reporter = di.NewToken[app.Reporter]("monitor:reporter")
)

// Helper functions for type-safe access
func GetMonitor(c di.ServiceRegistry) *app.Monitor {
	return di.GetToken(c, Monitor)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
