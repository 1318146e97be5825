// Package main is the entry point for the DEX quote sampler.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/dex-sampler/business/blockchain"
	"github.com/fd1az/dex-sampler/business/monitor"
	monitorApp "github.com/fd1az/dex-sampler/business/monitor/app"
	monitorDI "github.com/fd1az/dex-sampler/business/monitor/di"
	"github.com/fd1az/dex-sampler/business/sampling"
	"github.com/fd1az/dex-sampler/internal/apm"
	"github.com/fd1az/dex-sampler/internal/config"
	"github.com/fd1az/dex-sampler/internal/health"
	"github.com/fd1az/dex-sampler/internal/logger"
	"github.com/fd1az/dex-sampler/internal/metrics"
	"github.com/fd1az/dex-sampler/internal/monolith"
	"github.com/fd1az/dex-sampler/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dex-sampler %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Monitor.TUIMode = tuiMode

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	// The TUI owns the terminal, so logs are discarded there.
	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name, nil)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
		log.Info(ctx, "starting DEX quote sampler",
			"version", version,
			"environment", cfg.App.Environment,
			"chain_id", cfg.Ethereum.ChainID,
		)
	}

	stopTelemetry := setupTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.App.HealthPort, version, log)
	healthServer.Start(ctx)
	log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
	defer shutdown(healthServer.Stop)

	mono, err := monolith.New(ctx, cfg, log, healthServer)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order: the monitor consumes blocks and the sampling service.
	modules := []monolith.Module{
		&blockchain.Module{},
		&sampling.Module{},
		&monitor.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	// Runs before mono.Close so no module still holds redis or the node client.
	stopModules := func() {
		stopCtx := context.WithoutCancel(ctx)
		if err := mono.StopModules(stopCtx, modules...); err != nil {
			log.Warn(stopCtx, "stopping modules", "error", err)
		}
	}

	if tuiMode {
		startFunc := func() error {
			ui.Send(ui.StartupMsg{Step: "config", Status: "done"})
			ui.Send(ui.StartupMsg{Step: "ethereum", Status: "connecting"})
			if err := mono.StartModules(ctx, modules...); err != nil {
				ui.Send(ui.StartupMsg{Step: "samplers", Status: "failed"})
				return fmt.Errorf("failed to start modules: %w", err)
			}
			ui.Send(ui.StartupMsg{Step: "samplers", Status: "done"})
			return monitorDI.GetMonitor(mono.Services()).Start(ctx)
		}
		stopFunc := func() {
			stopModules()
			_ = monitorDI.GetMonitor(mono.Services()).Stop()
		}
		return runTUI(ctx, startFunc, stopFunc)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	defer stopModules()

	return runCLI(ctx, monitorDI.GetMonitor(mono.Services()), log)
}

// setupTelemetry installs trace and metric providers when telemetry is
// enabled and returns their shutdown.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	traceProvider := apm.NewTraceProvider(ctx, log, apm.Config{
		Provider:    apm.Provider(cfg.Telemetry.Exporter),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})

	meterProvider, err := metrics.NewMetricProvider(ctx, metrics.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Prometheus:  true,
	})
	if err != nil {
		log.Warn(ctx, "metrics disabled", "error", err)
		return func() { _ = traceProvider.Stop() }
	}

	promServer := metrics.NewPrometheusServer(cfg.Telemetry.PrometheusPort, log)
	promServer.Start(ctx)

	return func() {
		shutdown(promServer.Stop)
		shutdown(meterProvider.Shutdown)
		_ = traceProvider.Stop()
	}
}

func shutdown(stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = stop(ctx)
}

func runCLI(ctx context.Context, mon *monitorApp.Monitor, log *logger.Logger) error {
	log.Info(ctx, "all modules started, sampling on every block")

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	<-ctx.Done()

	log.Info(ctx, "shutting down")
	if err := mon.Stop(); err != nil {
		log.Error(ctx, "error stopping monitor", "error", err)
	}
	return nil
}

func runTUI(ctx context.Context, startFunc func() error, stopFunc func()) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	// The program starts immediately with the welcome screen.
	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stopFunc()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Quitting the TUI stops the monitor.
	cancel()
	return <-errCh
}
