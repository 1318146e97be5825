// Package blockchain wires the chain-head feed that every sampling round is
// pinned to.
package blockchain

import (
	"context"

	"github.com/fd1az/dex-sampler/business/blockchain/app"
	blockchainDI "github.com/fd1az/dex-sampler/business/blockchain/di"
	"github.com/fd1az/dex-sampler/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-sampler/internal/config"
	"github.com/fd1az/dex-sampler/internal/di"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/monolith"
)

type Module struct{}

func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.HeadFeed, func(sr di.ServiceRegistry) app.HeadFeed {
		eth := sr.Get("config").(*config.Config).Ethereum
		log := sr.Get("logger").(logger.LoggerInterface)

		subCfg := ethereum.DefaultSubscriberConfig(eth.WebSocketURL, eth.HTTPURL)
		subCfg.PollInterval = eth.PollInterval
		subCfg.InitialBackoff = eth.InitialBackoff
		subCfg.MaxBackoff = eth.MaxBackoff
		subCfg.MaxReconnects = eth.MaxReconnects

		sub, err := ethereum.NewSubscriber(subCfg, log)
		if err != nil {
			panic("blockchain: head feed: " + err.Error())
		}
		return sub
	})

	di.RegisterToken(c, blockchainDI.Service, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(blockchainDI.GetHeadFeed(sr), app.DefaultStaleAfter)
	})

	return nil
}

// Startup only registers the health check: the feed dials when the monitor
// subscribes.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := blockchainDI.GetService(mono.Services())
	mono.Health().RegisterCheck("block_feed", svc.Check)
	mono.Logger().Info(ctx, "blockchain module started",
		"ws", mono.Config().Ethereum.WebSocketURL != "",
		"http", mono.Config().Ethereum.HTTPURL != "")
	return nil
}

// Shutdown closes the head feed.
func (m *Module) Shutdown(_ context.Context, mono monolith.Monolith) error {
	return blockchainDI.GetService(mono.Services()).Close()
}
