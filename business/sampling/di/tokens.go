// Package di contains dependency injection tokens for the sampling context.
package di

import (
	"github.com/fd1az/dex-sampler/business/sampling/app"
	"github.com/fd1az/dex-sampler/business/sampling/infra/poolcache"
	"github.com/fd1az/dex-sampler/business/sampling/infra/quoteop"
	"github.com/fd1az/dex-sampler/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SamplingService = di.NewToken[*app.SamplingService]("sampling.SamplingService")
)

// Private dependency tokens - internal to sampling module
var (
	Executor = di.NewToken[*quoteop.Executor]("sampling:executor")
	// PoolCache resolves to nil when Balancer V2 is disabled or unavailable.
	PoolCache = di.NewToken[*poolcache.PoolCache]("sampling:poolCache")
)

// Helper functions for type-safe access
func GetSamplingService(c di.ServiceRegistry) *app.SamplingService {
	return di.GetToken(c, SamplingService)
}

func GetExecutor(c di.ServiceRegistry) *quoteop.Executor {
	return di.GetToken(c, Executor)
}

func GetPoolCache(c di.ServiceRegistry) *poolcache.PoolCache {
	return di.GetToken(c, PoolCache)
}
