// Package di names the blockchain module's container entries.
package di

import (
	"github.com/fd1az/dex-sampler/business/blockchain/app"
	"github.com/fd1az/dex-sampler/internal/di"
)

var (
	// Service is the head relay other modules subscribe through.
	Service = di.NewToken[*app.BlockchainService]("blockchain.Service")

	// HeadFeed is the raw subscriber; only the module itself resolves it.
	HeadFeed = di.NewToken[app.HeadFeed]("blockchain:headFeed")
)

func GetService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, Service)
}

func GetHeadFeed(c di.ServiceRegistry) app.HeadFeed {
	return di.GetToken(c, HeadFeed)
}
