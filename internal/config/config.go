// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Sampler   SamplerConfig   `mapstructure:"sampler"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// SamplerConfig holds batch execution and per-source settings.
type SamplerConfig struct {
	// Sources lists enabled source names (see KnownSources).
	Sources []string `mapstructure:"sources"`
	// ContractAddress is the deployed ERC20BridgeSampler queried through Multicall3.
	ContractAddress string           `mapstructure:"contract_address"`
	BatchSize       int              `mapstructure:"batch_size"`
	CallTimeout     time.Duration    `mapstructure:"call_timeout"`
	RateLimitRPS    float64          `mapstructure:"rate_limit_rps"`
	RateBurst       int              `mapstructure:"rate_burst"`
	BalancerV2      BalancerV2Config `mapstructure:"balancer_v2"`
	DodoV2          DodoV2Config     `mapstructure:"dodo_v2"`
}

// BalancerV2Config holds pool discovery and cache settings for Balancer V2.
type BalancerV2Config struct {
	SubgraphURL      string        `mapstructure:"subgraph_url"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	TopPoolsFetched  int           `mapstructure:"top_pools_fetched"`
	MaxPoolsFetched  int           `mapstructure:"max_pools_fetched"`
	DiscoveryTimeout time.Duration `mapstructure:"discovery_timeout"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps"`
}

// DodoV2Config holds DODO v2 enumeration bounds.
type DodoV2Config struct {
	MaxPoolsQueried int `mapstructure:"max_pools_queried"`
}

// RedisConfig holds the pool cache snapshot store settings.
type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// MonitorConfig holds the per-block quote monitor settings.
type MonitorConfig struct {
	Pairs   []string  `mapstructure:"pairs"` // "TAKER-MAKER" symbols or addresses, e.g. "USDC-DAI"
	Amounts []float64 `mapstructure:"amounts"`
	TUIMode bool      `mapstructure:"-"` // Set at runtime, not from config file
}

// AmountsDecimal returns sample amounts as decimal.Decimal slice.
func (c *MonitorConfig) AmountsDecimal() []decimal.Decimal {
	result := make([]decimal.Decimal, len(c.Amounts))
	for i, a := range c.Amounts {
		result[i] = decimal.NewFromFloat(a)
	}
	return result
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Exporter       string `mapstructure:"exporter"` // zipkin | otlp-grpc | otlp-http | console
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Source names accepted in sampler.sources.
const (
	SourceBalancerV2 = "balancer_v2"
	SourceShell      = "shell"
	SourceComponent  = "component"
	SourceMStable    = "mstable"
	SourceDodo       = "dodo"
	SourceDodoV2     = "dodo_v2"
	SourceMooniswap  = "mooniswap"
)

// KnownSources is every source name the sampler can build.
var KnownSources = []string{
	SourceBalancerV2,
	SourceShell,
	SourceComponent,
	SourceMStable,
	SourceDodo,
	SourceDodoV2,
	SourceMooniswap,
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("SAMPLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "SAMPLER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SAMPLER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SAMPLER_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "SAMPLER_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "SAMPLER_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "SAMPLER_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Sampler
	v.BindEnv("sampler.sources", "SAMPLER_SOURCES")
	v.BindEnv("sampler.contract_address", "SAMPLER_CONTRACT_ADDRESS", "SAMPLER_CONTRACT")
	v.BindEnv("sampler.balancer_v2.subgraph_url", "SAMPLER_BALANCER_V2_SUBGRAPH_URL", "BALANCER_V2_SUBGRAPH_URL")

	// Redis
	v.BindEnv("redis.enabled", "SAMPLER_REDIS_ENABLED")
	v.BindEnv("redis.addr", "SAMPLER_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("redis.password", "SAMPLER_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Monitor
	v.BindEnv("monitor.pairs", "SAMPLER_PAIRS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "SAMPLER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SAMPLER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SAMPLER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "dex-sampler")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8080)

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_reconnects", 0) // infinite
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")
	v.SetDefault("ethereum.poll_interval", "12s")

	// Sampler defaults
	v.SetDefault("sampler.sources", KnownSources)
	v.SetDefault("sampler.batch_size", 64)
	v.SetDefault("sampler.call_timeout", "10s")
	v.SetDefault("sampler.rate_limit_rps", 10)
	v.SetDefault("sampler.rate_burst", 5)

	// Balancer V2 defaults
	v.SetDefault("sampler.balancer_v2.subgraph_url", "https://api.thegraph.com/subgraphs/name/balancer-labs/balancer-v2")
	v.SetDefault("sampler.balancer_v2.cache_ttl", "6h")
	v.SetDefault("sampler.balancer_v2.refresh_interval", "12h")
	v.SetDefault("sampler.balancer_v2.top_pools_fetched", 250)
	v.SetDefault("sampler.balancer_v2.max_pools_fetched", 3)
	v.SetDefault("sampler.balancer_v2.discovery_timeout", "30s")
	v.SetDefault("sampler.balancer_v2.rate_limit_rps", 2)

	// DODO v2 defaults
	v.SetDefault("sampler.dodo_v2.max_pools_queried", 3)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "dex-sampler:pools")
	v.SetDefault("redis.dial_timeout", "5s")

	// Monitor defaults
	v.SetDefault("monitor.pairs", []string{"USDC-DAI", "WETH-USDC"})
	v.SetDefault("monitor.amounts", []float64{100, 1000, 10000})

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dex-sampler")
	v.SetDefault("telemetry.exporter", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// websocket_url is optional: the block feed falls back to HTTP polling.
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Sampler.ContractAddress) {
		return fmt.Errorf("invalid sampler.contract_address: %q", c.Sampler.ContractAddress)
	}
	if len(c.Sampler.Sources) == 0 {
		return fmt.Errorf("sampler.sources cannot be empty")
	}
	for _, s := range c.Sampler.Sources {
		if !isKnownSource(s) {
			return fmt.Errorf("unknown sampler source: %s", s)
		}
	}
	if c.Sampler.BatchSize <= 0 {
		return fmt.Errorf("sampler.batch_size must be positive")
	}
	if c.Sampler.CallTimeout <= 0 {
		return fmt.Errorf("sampler.call_timeout must be positive")
	}
	bv2 := c.Sampler.BalancerV2
	if bv2.CacheTTL <= 0 {
		return fmt.Errorf("sampler.balancer_v2.cache_ttl must be positive")
	}
	if bv2.RefreshInterval <= 0 {
		return fmt.Errorf("sampler.balancer_v2.refresh_interval must be positive")
	}
	if bv2.MaxPoolsFetched <= 0 || bv2.TopPoolsFetched <= 0 {
		return fmt.Errorf("sampler.balancer_v2 pool limits must be positive")
	}
	if c.Sampler.DodoV2.MaxPoolsQueried <= 0 {
		return fmt.Errorf("sampler.dodo_v2.max_pools_queried must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if len(c.Monitor.Amounts) == 0 {
		return fmt.Errorf("monitor.amounts cannot be empty")
	}
	for _, p := range c.Monitor.Pairs {
		if _, _, err := ParsePair(p); err != nil {
			return err
		}
	}
	return nil
}

// SourceEnabled reports whether name is listed in sampler.sources.
func (c *SamplerConfig) SourceEnabled(name string) bool {
	for _, s := range c.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// ContractAddressHex returns the sampler contract address as common.Address.
func (c *SamplerConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// ParsePair splits a "TAKER-MAKER" pair. Each side is a symbol or a hex
// address; symbols are upper-cased.
func ParsePair(pair string) (taker, maker string, err error) {
	parts := strings.Split(pair, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid monitor pair %q: want TAKER-MAKER", pair)
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), nil
}

func isKnownSource(name string) bool {
	for _, s := range KnownSources {
		if s == name {
			return true
		}
	}
	return false
}
