// Package main runs the filmgraph GraphQL service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/filmgraph/config"
	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/film"
	"github.com/c360/filmgraph/gateway/graphql"
	"github.com/c360/filmgraph/graph"
	"github.com/c360/filmgraph/health"
	"github.com/c360/filmgraph/metric"
	"github.com/c360/filmgraph/tmdb"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "filmgraph"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errors.ErrMissingConfig) {
			_, _ = fmt.Fprintln(os.Stderr, config.MissingDatabaseURL)
		}
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, logger, shouldExit, err := initializeCLI(args)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string) (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, true, nil
		}
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		cliCfg.usage()
		return nil, nil, true, nil
	}

	logger := setupLogger(os.Stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("Starting filmgraph",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// loadConfig layers the optional config file, the dotenv file and the
// environment, then validates the result.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	loader.SetEnvFiles(cliCfg.EnvFile)
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// serve wires storage, the metadata client and the HTTP servers, and blocks
// until ctx is cancelled or a server fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, shutdownTimeout time.Duration) error {
	if cfg.Database.Migrate {
		if _, err := film.Migrate(ctx, cfg.Database.URL, logger.With("component", "migrate")); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	pool, err := film.NewPool(ctx, cfg.Database, metrics)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := pool.RegisterMetrics(registry); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	movies := newTMDBClient(cfg.TMDB, metrics, logger)
	resolver := graph.NewResolver(movies, graphql.NewRecorder(logger.With("component", "resolver"), metrics))

	schema, err := graph.NewSchema(resolver, graphql.WithMaxDepth(cfg.GraphQL.MaxQueryDepth))
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	handler := graphql.NewHandler(schema, graph.ContextFunc(pool), logger.With("component", "graphql"), metrics)

	checker := health.NewChecker(appName, 0)
	checker.Register("storage", pool.Ping)

	server, err := graphql.NewServer(cfg.GraphQL, handler, checker.Handler(), logger.With("component", "server"))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := server.Setup(); err != nil {
		return fmt.Errorf("set up server: %w", err)
	}
	server.SetShutdownTimeout(shutdownTimeout)

	g, gctx := errgroup.WithContext(ctx)

	ready := make(chan struct{})
	g.Go(func() error {
		return server.Start(gctx, ready)
	})
	g.Go(func() error {
		select {
		case <-ready:
			logger.Info("filmgraph ready",
				"graphql", server.Addr()+cfg.GraphQL.Path,
				"playground", cfg.GraphQL.EnablePlayground)
		case <-gctx.Done():
		}
		return nil
	})

	if cfg.Metrics.Enabled {
		metricsServer := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		g.Go(func() error {
			logger.Info("Metrics server starting", "address", metricsServer.Address())
			return metricsServer.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsServer.Stop(stopCtx)
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		logger.Info("Received shutdown signal")
	}
	if err != nil {
		return err
	}

	logger.Info("filmgraph shutdown complete")
	return nil
}

func newTMDBClient(cfg config.TMDBConfig, metrics *metric.Metrics, logger *slog.Logger) *tmdb.Client {
	opts := []tmdb.Option{tmdb.WithMetrics(metrics)}
	if cfg.BaseURL != "" {
		opts = append(opts, tmdb.WithBaseURL(cfg.BaseURL))
	}
	if timeout := cfg.TimeoutDuration(); timeout > 0 {
		opts = append(opts, tmdb.WithTimeout(timeout))
	}

	client := tmdb.NewClient(cfg.APIKey, opts...)
	if !client.Configured() {
		logger.Warn("No TMDB API key configured, searchMovies will return upstream errors")
	}
	return client
}
