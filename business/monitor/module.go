// Package monitor implements the monitor bounded context: per-block quote
// sampling of the configured pairs and its presentation.
package monitor

import (
	"context"
	"fmt"

	blockchainDI "github.com/fd1az/dex-sampler/business/blockchain/di"
	"github.com/fd1az/dex-sampler/business/monitor/app"
	monitorDI "github.com/fd1az/dex-sampler/business/monitor/di"
	"github.com/fd1az/dex-sampler/business/monitor/domain"
	"github.com/fd1az/dex-sampler/business/monitor/infra"
	samplingDI "github.com/fd1az/dex-sampler/business/sampling/di"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/config"
	"github.com/fd1az/dex-sampler/internal/di"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/monolith"
	"github.com/fd1az/dex-sampler/internal/network"
)

// Module implements the monitor bounded context.
type Module struct{}

// RegisterServices registers all monitor services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Reporter (private - internal dependency)
	di.RegisterToken(c, monitorDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Monitor.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter()
	})

	// Register Monitor (public - started by main)
	di.RegisterToken(c, monitorDI.Monitor, func(sr di.ServiceRegistry) *app.Monitor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		chain := sr.Get("network").(network.Network)
		reg := sr.Get("assetRegistry").(*asset.Registry)

		pairs, err := resolvePairs(cfg.Monitor.Pairs, reg, chain)
		if err != nil {
			panic("failed to resolve monitor pairs: " + err.Error())
		}

		mon, err := app.NewMonitor(
			blockchainDI.GetService(sr),
			samplingDI.GetSamplingService(sr),
			monitorDI.GetReporter(sr),
			app.MonitorConfig{Pairs: pairs, Amounts: cfg.Monitor.AmountsDecimal()},
			log,
		)
		if err != nil {
			panic("failed to create monitor: " + err.Error())
		}
		return mon
	})

	return nil
}

// resolvePairs maps "TAKER-MAKER" entries, by symbol or address, to
// registry assets on chain.
func resolvePairs(raw []string, reg *asset.Registry, chain network.Network) ([]domain.Pair, error) {
	pairs := make([]domain.Pair, 0, len(raw))
	for _, p := range raw {
		takerRef, makerRef, err := config.ParsePair(p)
		if err != nil {
			return nil, err
		}
		taker, maker, err := reg.Pair(uint64(chain.ChainID), takerRef, makerRef)
		if err != nil {
			return nil, fmt.Errorf("monitor pair %s on %s: %w", p, chain, err)
		}
		pairs = append(pairs, domain.Pair{Taker: taker, Maker: maker})
	}
	return pairs, nil
}

// Startup resolves the monitor so configuration errors surface before the
// block feed starts. main starts the monitor itself.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mon := monitorDI.GetMonitor(mono.Services())
	if mon == nil {
		return fmt.Errorf("monitor not available")
	}

	mono.Logger().Info(ctx, "monitor module started",
		"pairs", fmt.Sprint(mono.Config().Monitor.Pairs),
		"amounts", fmt.Sprint(mono.Config().Monitor.Amounts))
	return nil
}
