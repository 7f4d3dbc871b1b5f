// Command server runs the circulation HTTP API against a postgres store.
//
// Configuration comes from LIBCIRC_* environment variables, see the config
// package. With -observability-enabled the engine reports through the global
// OpenTelemetry providers; without it, engine logs still go to slog.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for the sqlx collaborators
	"go.opentelemetry.io/otel"

	"libcirc/internal/accounts"
	"libcirc/internal/catalog"
	"libcirc/internal/config"
	"libcirc/internal/httpapi"
	"libcirc/internal/reporting"
	"libcirc/lending/oteladapters"
	"libcirc/lending/sqlengine"
)

func main() {
	observability := flag.Bool("observability-enabled", false, "report engine metrics and traces through OpenTelemetry")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create pgx pool: %v", err)
	}
	defer pool.Close()

	if err = pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	engineOptions := []sqlengine.Option{
		sqlengine.WithContextualLogger(oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler())),
	}

	if *observability {
		meter := otel.Meter("libcirc-server")
		tracer := otel.Tracer("libcirc-server")
		engineOptions = append(engineOptions,
			sqlengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
			sqlengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
		)
	}

	engine, err := sqlengine.NewEngineFromPGXPool(pool, engineOptions...)
	if err != nil {
		log.Fatalf("Failed to create circulation engine: %v", err)
	}

	// The catalog, accounts, and reporting stores share one sqlx handle.
	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database handle: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := accounts.NewStore(db, engine)

	if err = engine.CreateSchema(ctx); err != nil {
		log.Fatalf("Failed to create circulation schema: %v", err)
	}

	if err = users.CreateSchema(ctx, accounts.SerialIDPostgres); err != nil {
		log.Fatalf("Failed to create users schema: %v", err)
	}

	server := httpapi.NewServer(httpapi.Options{
		Engine:          engine,
		Catalog:         catalog.NewStore(db, engine),
		Accounts:        users,
		Reports:         reporting.NewStore(db),
		Auth:            httpapi.NewAuthenticator(cfg.JWTSecret, cfg.JWTTTL),
		Logger:          logger,
		RatePerSecond:   cfg.RateLimitPerSecond,
		RateBurst:       cfg.RateLimitBurst,
		DefaultLoanDays: cfg.DefaultLoanDays,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("circulation server listening", "addr", cfg.ListenAddr)

		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")
	case err = <-errChan:
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not finish cleanly", "error", err)
	}

	logger.Info("circulation server stopped")
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
