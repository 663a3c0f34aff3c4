package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zhima-Mochi/minishop-cart/internal/application/ledger"
	"github.com/Zhima-Mochi/minishop-cart/internal/application/shopping"
	"github.com/Zhima-Mochi/minishop-cart/internal/config"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/instrumented"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/jsonfile"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/infrastructure/redisstore"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/pkg/logging"
	clipresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/cli"
	httppresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-cart/internal/presentation/worker"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logOpts := logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	}
	if cfg.Mode == config.ModeCLI {
		logOpts.Outputs = []string{"stderr"}
	}
	baseLogger, err := logging.NewLogger(logOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := zaplogger.New(logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	traceOut := os.Stdout
	if cfg.Mode == config.ModeCLI {
		traceOut = os.Stderr
	}
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Env:         cfg.Env,
		Stdout:      cfg.TraceStdout,
		Writer:      traceOut,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			systemLogger.Error("tracer_shutdown_error", observability.F("error", err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tel := infraobs.NewWithRegistry(
		oteltrace.New(cfg.ServiceName),
		zaplogger.New(baseLogger),
		prometrics.New(reg, "", ""),
	)

	carts, closeCarts, err := openCartRepository(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer closeCarts()

	engine, err := shopping.Open(ctx,
		instrumented.NewCatalogRepository(jsonfile.NewCatalogStore(cfg.CatalogFile, systemLogger), tel),
		instrumented.NewCartRepository(carts, tel),
		shopping.WithCartReset(cfg.CartResetOnStart),
		shopping.WithLogger(systemLogger),
	)
	if err != nil {
		return fmt.Errorf("open shop: %w", err)
	}

	bus := outbox.NewBus(systemLogger)
	ledger.NewWorker(
		workerpresentation.NewSubscriber(bus, zaplogger.New(baseLogger)),
		ledger.NewRecordMovementUseCase(ledger.NewBook(), tel),
		tel,
	).Start()
	bus.Start(ctx)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			systemLogger.Error("event_bus_stop_error", observability.F("error", err))
		}
	}()

	svc := shopping.NewService(engine, bus, tel)

	if cfg.Mode == config.ModeCLI {
		session := clipresentation.NewSession(svc, os.Stdin, os.Stdout, systemLogger)
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("cli session: %w", err)
		}
		return nil
	}
	return serveHTTP(ctx, cfg, svc, reg, tel, systemLogger)
}

func openCartRepository(ctx context.Context, cfg *config.Config, logger observability.Logger) (cart.Repository, func(), error) {
	switch cfg.CartBackend {
	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis_close_error", observability.F("error", err))
			}
		}
		return redisstore.NewCartRepository(client, cfg.RedisCartKey, logger), closeFn, nil
	case config.BackendMemory:
		return memory.NewCartRepository(), func() {}, nil
	default:
		return jsonfile.NewCartStore(cfg.CartFile, logger), func() {}, nil
	}
}

func serveHTTP(
	ctx context.Context,
	cfg *config.Config,
	svc *shopping.Service,
	reg *prometheus.Registry,
	tel observability.Observability,
	logger observability.Logger,
) error {
	handler := httppresentation.NewHandler(svc, tel.Logger(), tel)

	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	root.Mount("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: root,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http_server_error", observability.F("error", err))
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err))
		return err
	}
	logger.Info("http_server_stopped")
	return nil
}
