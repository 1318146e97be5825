// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-sampler/business/blockchain/app"
	"github.com/fd1az/dex-sampler/business/blockchain/domain"
	"github.com/fd1az/dex-sampler/internal/apperror"
	"github.com/fd1az/dex-sampler/internal/circuitbreaker"
	"github.com/fd1az/dex-sampler/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-sampler/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/dex-sampler/business/blockchain/infra/ethereum"
)

// ErrSubscriberClosed is returned by Subscribe after Close.
var ErrSubscriberClosed = errors.New("subscriber is closed")

// HeadClient is the part of *ethclient.Client the subscriber uses.
type HeadClient interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	Close()
}

// Dialer opens a HeadClient for url.
type Dialer func(ctx context.Context, url string) (HeadClient, error)

func dialEthclient(ctx context.Context, url string) (HeadClient, error) {
	return ethclient.DialContext(ctx, url)
}

// SubscriberConfig holds configuration for the Ethereum subscriber.
type SubscriberConfig struct {
	WSURL          string        // WebSocket endpoint (primary)
	HTTPURL        string        // HTTP endpoint (fallback)
	PollInterval   time.Duration // Polling interval for HTTP fallback
	InitialBackoff time.Duration // First delay before retrying WS
	MaxBackoff     time.Duration // Cap for the doubling WS retry delay
	MaxReconnects  int           // Consecutive WS retries before polling for good; 0 = retry forever
	BufferSize     int           // Block channel buffer size
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL, httpURL string) SubscriberConfig {
	return SubscriberConfig{
		WSURL:          wsURL,
		HTTPURL:        httpURL,
		PollInterval:   12 * time.Second, // ~1 block time
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		BufferSize:     4,
	}
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithDialer replaces ethclient dialing.
func WithDialer(d Dialer) SubscriberOption {
	return func(s *Subscriber) {
		s.dial = d
	}
}

// subscriberMetrics holds OTEL metric instruments.
type subscriberMetrics struct {
	blocksReceived   metric.Int64Counter
	blocksDropped    metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	connectionState  metric.Int64Gauge
	blockLatency     metric.Float64Histogram
	httpFallbackUsed metric.Int64Counter
}

var _ app.HeadFeed = (*Subscriber)(nil)

// Subscriber implements app.HeadFeed. It streams new heads over
// WebSocket and polls over HTTP while the WebSocket is down, retrying
// the WebSocket with exponential backoff. Only the newest block is kept
// when the consumer falls behind.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface
	dial   Dialer

	// Clients
	wsClient   HeadClient
	httpClient HeadClient
	clientMu   sync.RWMutex

	// State
	state      domain.ConnectionState
	stateMu    sync.RWMutex
	usingHTTP  atomic.Bool
	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	// Lifecycle
	blocks    chan *domain.Block
	done      chan struct{}
	runDone   chan struct{}
	lifecycle sync.Mutex
	started   bool
	closed    bool

	// Circuit breakers
	wsCB   *circuitbreaker.CircuitBreaker[*types.Header]
	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	// Observability
	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a new Ethereum block subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface, opts ...SubscriberOption) (*Subscriber, error) {
	if cfg.WSURL == "" && cfg.HTTPURL == "" {
		return nil, apperror.Configuration(apperror.CodeConfigurationError, "ethereum ws or http url is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	s := &Subscriber{
		config:  cfg,
		logger:  log,
		dial:    dialEthclient,
		state:   domain.StateDisconnected,
		blocks:  make(chan *domain.Block, cfg.BufferSize),
		done:    make(chan struct{}),
		runDone: make(chan struct{}),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	s.initCircuitBreakers()

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("Total Ethereum blocks received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.blocksDropped, err = meter.Int64Counter(
		"eth_blocks_dropped_total",
		metric.WithDescription("Blocks replaced by a newer one before being consumed"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.subscribeErrors, err = meter.Int64Counter(
		"eth_subscribe_errors_total",
		metric.WithDescription("Total Ethereum subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Ethereum connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	s.metrics.blockLatency, err = meter.Float64Histogram(
		"eth_block_latency_ms",
		metric.WithDescription("Latency from block timestamp to receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	s.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"eth_http_fallback_total",
		metric.WithDescription("Times HTTP fallback was used"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// initCircuitBreakers initializes circuit breakers for WS and HTTP.
func (s *Subscriber) initCircuitBreakers() {
	onChange := func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	wsCfg := circuitbreaker.DefaultConfig("eth-ws")
	wsCfg.OnStateChange = onChange
	s.wsCB = circuitbreaker.New[*types.Header](wsCfg)

	httpCfg := circuitbreaker.DefaultConfig("eth-http")
	httpCfg.OnStateChange = onChange
	s.httpCB = circuitbreaker.New[*types.Header](httpCfg)
}

// Subscribe connects and starts delivering blocks. Calling it again
// returns the same channel, which is closed after Close or once every
// endpoint has been given up on.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.subscribe",
		trace.WithAttributes(
			attribute.Bool("ws_configured", s.config.WSURL != ""),
			attribute.Bool("http_configured", s.config.HTTPURL != ""),
		),
	)
	defer span.End()

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.closed {
		span.RecordError(ErrSubscriberClosed)
		return nil, ErrSubscriberClosed
	}
	if s.started {
		return s.blocks, nil
	}

	s.setState(domain.StateConnecting)

	// Try WebSocket first
	if err := s.connectWS(ctx); err != nil {
		s.logger.Warn(ctx, "ws connection failed, trying http fallback", "error", err)
		span.AddEvent("ws_failed_trying_http")

		if err := s.connectHTTP(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "both connections failed")
			s.setState(domain.StateDisconnected)
			return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext("failed to connect via WS and HTTP"))
		}
	}

	s.started = true
	go s.run(context.WithoutCancel(ctx))

	span.SetStatus(codes.Ok, "subscribed")
	return s.blocks, nil
}

// connectWS establishes a WebSocket connection to the Ethereum node.
func (s *Subscriber) connectWS(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "eth.connect.ws")
	defer span.End()

	if s.config.WSURL == "" {
		return errors.New("ws url not configured")
	}

	client, err := s.dial(ctx, s.config.WSURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("dial ws: %w", err)
	}

	s.clientMu.Lock()
	s.wsClient = client
	s.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	return nil
}

// connectHTTP establishes an HTTP connection to the Ethereum node.
func (s *Subscriber) connectHTTP(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "eth.connect.http")
	defer span.End()

	if s.config.HTTPURL == "" {
		return errors.New("http url not configured")
	}

	client, err := s.dial(ctx, s.config.HTTPURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return fmt.Errorf("dial http: %w", err)
	}

	s.clientMu.Lock()
	s.httpClient = client
	s.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	return nil
}

// run supervises the feed until Close or until no endpoint is left.
func (s *Subscriber) run(ctx context.Context) {
	defer close(s.runDone)
	defer close(s.blocks)
	defer s.setState(domain.StateDisconnected)

	backoff := s.config.InitialBackoff
	attempts := 0

	for {
		if client := s.ws(); client != nil {
			s.usingHTTP.Store(false)
			s.setState(domain.StateConnected)
			s.streamWS(ctx, client)
			s.dropWS()
			if s.stopped(ctx) {
				return
			}
			s.reconnects.Add(1)
			s.setState(domain.StateReconnecting)
		}

		giveUpWS := s.config.WSURL == "" ||
			(s.config.MaxReconnects > 0 && attempts >= s.config.MaxReconnects)

		if s.http() == nil && s.config.HTTPURL != "" {
			if err := s.connectHTTP(ctx); err != nil {
				s.logger.Warn(ctx, "http fallback connection failed", "error", err)
			}
		}

		switch {
		case s.http() != nil:
			if !s.usingHTTP.Swap(true) {
				s.metrics.httpFallbackUsed.Add(ctx, 1)
				s.logger.Info(ctx, "starting http polling fallback", "interval", s.config.PollInterval.String())
			}
			s.setState(domain.StateConnected)
			if giveUpWS {
				s.poll(ctx, 0)
				return
			}
			s.poll(ctx, backoff)
		case giveUpWS:
			s.logger.Error(ctx, "no ethereum endpoint left, block feed stopped")
			return
		default:
			if !s.sleep(ctx, backoff) {
				return
			}
		}

		if s.stopped(ctx) {
			return
		}

		attempts++
		if err := s.connectWS(ctx); err != nil {
			s.logger.Warn(ctx, "ws reconnect failed", "attempt", attempts, "error", err)
			backoff = min(backoff*2, s.config.MaxBackoff)
			continue
		}
		s.logger.Info(ctx, "ws reconnected", "attempts", attempts)
		backoff = s.config.InitialBackoff
		attempts = 0
	}
}

// streamWS forwards new heads until the subscription fails.
func (s *Subscriber) streamWS(ctx context.Context, client HeadClient) {
	headers := make(chan *types.Header, s.config.BufferSize)

	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		s.logger.Error(ctx, "subscribe new head failed", "error", err)
		s.metrics.subscribeErrors.Add(ctx, 1)
		return
	}
	defer sub.Unsubscribe()

	s.logger.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				s.logger.Error(ctx, "subscription error", "error", err)
				s.metrics.subscribeErrors.Add(ctx, 1)
			}
			return
		case header := <-headers:
			if header == nil {
				continue
			}
			s.processHeader(ctx, header, false)
		}
	}
}

// poll fetches the head every PollInterval for d, or until stopped when d
// is zero.
func (s *Subscriber) poll(ctx context.Context, d time.Duration) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	s.pollLatestBlock(ctx)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			s.pollLatestBlock(ctx)
		}
	}
}

// pollLatestBlock fetches the latest block via HTTP.
func (s *Subscriber) pollLatestBlock(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.block")
	defer span.End()

	client := s.http()
	if client == nil {
		span.AddEvent("no_http_client")
		return
	}

	header, err := s.httpCB.Execute(func() (*types.Header, error) {
		return client.HeaderByNumber(ctx, nil) // nil = latest
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error(ctx, "http poll failed", "error", err)
		s.metrics.subscribeErrors.Add(ctx, 1)
		return
	}

	s.processHeader(ctx, header, true)
	span.SetStatus(codes.Ok, "polled")
}

// processHeader converts and emits a block header. Heads at or below the
// last emitted number are ignored.
func (s *Subscriber) processHeader(ctx context.Context, header *types.Header, fromHTTP bool) {
	ctx, span := s.tracer.Start(ctx, "eth.process.header",
		trace.WithAttributes(
			attribute.Int64("block_number", header.Number.Int64()),
			attribute.Bool("from_http", fromHTTP),
		),
	)
	defer span.End()

	number := header.Number.Uint64()
	if last := s.lastBlock.Load(); last != 0 && number <= last {
		span.AddEvent("stale_block")
		return
	}
	s.lastBlock.Store(number)

	block := headerToBlock(header)
	latency := time.Since(block.Timestamp)
	s.metrics.blockLatency.Record(ctx, float64(latency.Milliseconds()))

	s.emit(ctx, block)
	s.metrics.blocksReceived.Add(ctx, 1)
	s.logger.Debug(ctx, "block received",
		"number", block.Number,
		"hash", block.Hash.Hex()[:10],
		"latency_ms", latency.Milliseconds())
}

// emit delivers block, evicting the oldest buffered block when full.
func (s *Subscriber) emit(ctx context.Context, block *domain.Block) {
	for {
		select {
		case s.blocks <- block:
			return
		default:
		}
		select {
		case old := <-s.blocks:
			s.metrics.blocksDropped.Add(ctx, 1)
			s.logger.Warn(ctx, "block dropped, consumer behind", "number", old.Number)
		default:
		}
	}
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:     header.Number.Uint64(),
		Hash:       header.Hash(),
		ParentHash: header.ParentHash,
		Timestamp:  time.Unix(int64(header.Time), 0),
		BaseFee:    header.BaseFee,
	}
}

// LatestBlock retrieves the most recent block.
func (s *Subscriber) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := s.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	wsClient, httpClient := s.ws(), s.http()

	var header *types.Header
	var err error

	if wsClient != nil && !s.usingHTTP.Load() {
		header, err = s.wsCB.Execute(func() (*types.Header, error) {
			return wsClient.HeaderByNumber(ctx, nil)
		})
	}

	if header == nil && httpClient != nil {
		header, err = s.httpCB.Execute(func() (*types.Header, error) {
			return httpClient.HeaderByNumber(ctx, nil)
		})
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest block"))
	}

	if header == nil {
		span.SetStatus(codes.Error, "no client")
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum client connected"))
	}

	span.SetStatus(codes.Ok, "fetched")
	return headerToBlock(header), nil
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Status returns detailed connection status.
func (s *Subscriber) Status() domain.ConnectionStatus {
	return domain.ConnectionStatus{
		State:      s.State(),
		LastBlock:  s.lastBlock.Load(),
		Reconnects: int(s.reconnects.Load()),
		UsingHTTP:  s.usingHTTP.Load(),
	}
}

// Close stops the feed, waits for it to exit and closes the clients.
func (s *Subscriber) Close() error {
	s.lifecycle.Lock()
	if s.closed {
		s.lifecycle.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	close(s.done)
	s.lifecycle.Unlock()

	s.logger.Info(context.Background(), "closing ethereum subscriber")

	if started {
		<-s.runDone
	} else {
		close(s.blocks)
	}

	s.clientMu.Lock()
	if s.wsClient != nil {
		s.wsClient.Close()
		s.wsClient = nil
	}
	if s.httpClient != nil {
		s.httpClient.Close()
		s.httpClient = nil
	}
	s.clientMu.Unlock()

	s.setState(domain.StateDisconnected)
	return nil
}

func (s *Subscriber) ws() HeadClient {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.wsClient
}

func (s *Subscriber) http() HeadClient {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.httpClient
}

func (s *Subscriber) dropWS() {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	if s.wsClient != nil {
		s.wsClient.Close()
		s.wsClient = nil
	}
}

func (s *Subscriber) stopped(ctx context.Context) bool {
	select {
	case <-s.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// setState updates the connection state and records metrics.
func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	stateValue := int64(0)
	switch state {
	case domain.StateDisconnected:
		stateValue = 0
	case domain.StateConnecting:
		stateValue = 1
	case domain.StateConnected:
		stateValue = 2
	case domain.StateReconnecting:
		stateValue = 3
	}

	s.metrics.connectionState.Record(context.Background(), stateValue)
}
