// Package monolith owns the shared clients (node, redis, health) and the DI
// container that business modules register into.
package monolith

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/asset"
	"github.com/fd1az/dex-sampler/internal/config"
	"github.com/fd1az/dex-sampler/internal/di"
	"github.com/fd1az/dex-sampler/internal/health"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/network"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	Network() network.Network
	AssetRegistry() *asset.Registry
	// Redis is nil unless redis.enabled is set.
	Redis() *redis.Client
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Stopper is implemented by modules that own background work or connections
// which must be released before the shared clients are closed.
type Stopper interface {
	Shutdown(context.Context, Monolith) error
}

type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	network       network.Network
	assetRegistry *asset.Registry
	redis         *redis.Client
	health        *health.Server
	container     di.Container
}

// New creates a new Monolith instance.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, healthServer *health.Server) (*app, error) {
	chain, err := network.Lookup(cfg.Ethereum.ChainID)
	if err != nil {
		return nil, apperror.New(apperror.CodeUnsupportedNetwork, apperror.WithCause(err))
	}

	ethClient, err := ethclient.DialContext(ctx, cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, apperror.External(apperror.CodeEthereumConnectionFailed, "dial "+cfg.Ethereum.HTTPURL, err)
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Snapshots are an optimization; run without them.
			log.Warn(ctx, "redis unavailable, pool cache snapshots disabled",
				"addr", cfg.Redis.Addr,
				"error", err)
			_ = rdb.Close()
			rdb = nil
		}
	}

	assetRegistry := asset.DefaultRegistry()

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("network", chain)
	container.Register("assetRegistry", assetRegistry)
	// Nil when snapshots are disabled.
	container.Register("redis", rdb)

	registerInfraChecks(healthServer, ethClient, rdb)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		network:       chain,
		assetRegistry: assetRegistry,
		redis:         rdb,
		health:        healthServer,
		container:     container,
	}, nil
}

// registerInfraChecks covers the shared clients; modules register their own.
func registerInfraChecks(h *health.Server, eth *ethclient.Client, rdb *redis.Client) {
	if h == nil {
		return
	}
	h.RegisterCheck("eth_rpc", func(ctx context.Context) (bool, string) {
		n, err := eth.BlockNumber(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("head %d", n)
	})
	if rdb != nil {
		h.RegisterCheck("redis", func(ctx context.Context) (bool, string) {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return false, err.Error()
			}
			return true, "ok"
		})
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) Network() network.Network {
	return a.network
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Redis() *redis.Client {
	return a.redis
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %T: %w", m, err)
		}
	}
	return nil
}

// StopModules shuts down, in reverse start order, every module that
// implements Stopper. All modules are visited even if one fails.
func (a *app) StopModules(ctx context.Context, modules ...Module) error {
	var errs []error
	for i := len(modules) - 1; i >= 0; i-- {
		s, ok := modules[i].(Stopper)
		if !ok {
			continue
		}
		if err := s.Shutdown(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("stop %T: %w", modules[i], err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all resources.
func (a *app) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
