package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/jaskrrish/Go-QSim/internal/config"
	"github.com/jaskrrish/Go-QSim/internal/handlers"
	"github.com/jaskrrish/Go-QSim/internal/logging"
	"github.com/jaskrrish/Go-QSim/internal/quantum"
	"github.com/jaskrrish/Go-QSim/internal/router"
	"github.com/jaskrrish/Go-QSim/internal/version"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML configuration file",
		EnvVars: []string{"QSIM_CONFIG"},
	}
	portFlag = &cli.StringFlag{
		Name:    "port",
		Usage:   "HTTP listen port",
		EnvVars: []string{"PORT"},
	}
	remoteURLFlag = &cli.StringFlag{
		Name:    "remote-url",
		Usage:   "Base URL of an external Aer simulation service; enables the remote backend",
		EnvVars: []string{"QSIM_REMOTE_URL"},
	}
	remoteKeyFlag = &cli.StringFlag{
		Name:    "remote-api-key",
		Usage:   "Bearer token for the remote simulation service",
		EnvVars: []string{"QSIM_REMOTE_API_KEY"},
	}
	defaultQubitsFlag = &cli.IntFlag{
		Name:  "default-qubits",
		Usage: "Register size used when a circuit declares no qreg",
	}
	maxQubitsFlag = &cli.IntFlag{
		Name:  "max-qubits",
		Usage: "Largest register the statevector backend accepts",
	}
	strictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "Reject gates the statevector backend does not implement",
	}
	cacheSizeFlag = &cli.IntFlag{
		Name:  "cache-size",
		Usage: "Number of simulation results to cache (0 disables)",
	}
	trustForwardedFlag = &cli.BoolFlag{
		Name:  "trust-forwarded",
		Usage: "Rate limit on X-Forwarded-For; only behind a proxy that sets it",
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"LOG_LEVEL"},
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format (json, console)",
	}
)

func main() {
	app := &cli.App{
		Name:    "qsim-api",
		Usage:   "OpenQASM circuit simulation service",
		Version: version.Get().Version,
		Flags: []cli.Flag{
			configFlag,
			portFlag,
			remoteURLFlag,
			remoteKeyFlag,
			defaultQubitsFlag,
			maxQubitsFlag,
			strictFlag,
			cacheSizeFlag,
			trustForwardedFlag,
			logLevelFlag,
			logFormatFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if ctx.IsSet(portFlag.Name) {
		cfg.Server.Port = ctx.String(portFlag.Name)
	}
	if ctx.IsSet(remoteURLFlag.Name) {
		cfg.Remote.Enabled = true
		cfg.Remote.BaseURL = ctx.String(remoteURLFlag.Name)
	}
	if ctx.IsSet(remoteKeyFlag.Name) {
		cfg.Remote.APIKey = ctx.String(remoteKeyFlag.Name)
	}
	if ctx.IsSet(defaultQubitsFlag.Name) {
		cfg.Simulator.DefaultQubits = ctx.Int(defaultQubitsFlag.Name)
	}
	if ctx.IsSet(maxQubitsFlag.Name) {
		cfg.Simulator.MaxQubits = ctx.Int(maxQubitsFlag.Name)
	}
	if ctx.IsSet(strictFlag.Name) {
		cfg.Simulator.Strict = ctx.Bool(strictFlag.Name)
	}
	if ctx.IsSet(cacheSizeFlag.Name) {
		cfg.Simulator.CacheSize = ctx.Int(cacheSizeFlag.Name)
	}
	if ctx.IsSet(trustForwardedFlag.Name) {
		cfg.RateLimit.TrustForwarded = ctx.Bool(trustForwardedFlag.Name)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = ctx.String(logLevelFlag.Name)
	}
	if ctx.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = ctx.String(logFormatFlag.Name)
	}

	return cfg, cfg.Validate()
}

// buildBackend assembles statevector, optional remote engine with fallback, and cache
func buildBackend(cfg *config.Config, logger *zap.Logger) (quantum.SimulationBackend, handlers.Pinger, error) {
	opts := cfg.SimulatorOptions()
	var backend quantum.SimulationBackend = quantum.NewStatevectorBackend(opts)
	var pinger handlers.Pinger

	if cfg.Remote.Enabled {
		remote, err := quantum.NewRemoteBackend(&quantum.RemoteConfig{
			BaseURL:    cfg.Remote.BaseURL,
			APIKey:     cfg.Remote.APIKey,
			HTTPClient: &http.Client{Timeout: cfg.Remote.Timeout.Duration},
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "remote backend")
		}
		backend = quantum.NewFallbackBackend(remote, backend, cfg.Remote.MaxFailures, cfg.Remote.ResetTimeout.Duration, logger)
		pinger = remote
	}

	if cfg.Simulator.CacheSize > 0 {
		cache, err := quantum.NewResultCache(cfg.Simulator.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		backend = quantum.NewCachedBackend(backend, cache, opts)
	}

	return backend, pinger, nil
}

func run(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend, pinger, err := buildBackend(cfg, logger)
	if err != nil {
		return err
	}

	sim := handlers.NewSimulationHandler(backend, pinger, cfg.Simulator.Shots, logger)
	handler, err := router.New(router.Options{
		Simulation:        sim,
		Logger:            logger,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		MaxClients:        cfg.RateLimit.MaxClients,
		TrustForwarded:    cfg.RateLimit.TrustForwarded,
	})
	if err != nil {
		return err
	}

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("backend", backend.Name()),
			zap.Bool("strict", cfg.Simulator.Strict),
			zap.Bool("trust_forwarded", cfg.RateLimit.TrustForwarded),
			zap.String("version", version.Get().Version),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
