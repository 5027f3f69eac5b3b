package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/atharvakonge/stock-portfolio-tracker/internal/config"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/db"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/handlers"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/logger"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/marketdata"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/portfolio"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/scheduler"
	"github.com/atharvakonge/stock-portfolio-tracker/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger config lives in cfg; fall back to defaults
		l := logger.New(logger.Config{Level: "info"})
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	// Set Gin mode based on environment
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	st, conn, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	if conn != nil {
		defer db.Close(conn, log)
	}

	client := marketdata.NewClient(
		marketdata.WithRateLimit(cfg.MarketData.RateLimit),
		marketdata.WithLogger(log),
	)
	provider := marketdata.NewProvider(client, log,
		marketdata.WithSyntheticFallback(cfg.MarketData.SyntheticFallback),
		marketdata.WithConcurrency(cfg.MarketData.QuoteConcurrency),
	)

	svc := portfolio.NewService(st, provider, log)

	// Initialize trade processor
	tradeProcessor := handlers.NewTradeProcessor(cfg.NumWorkers, svc, log)
	tradeProcessor.Start()
	defer tradeProcessor.Stop()

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.CachePurgeSchedule, scheduler.NewCachePurgeJob(provider, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache purge")
	}
	if cfg.QuoteWarmSchedule != "" {
		warm := scheduler.NewQuoteWarmJob(st, provider, 30*time.Second, log)
		if err := sched.AddJob(cfg.QuoteWarmSchedule, warm); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule quote warm-up")
		}
	}
	sched.Start()
	defer sched.Stop()

	stream := handlers.NewQuoteStream(provider, cfg.QuoteStreamInterval, cfg.CORSOrigins, log)
	router := handlers.NewRouter(handlers.NewHandler(svc, tradeProcessor, stream, log))

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}

// openStore returns the configured store; conn is nil for the memory store.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, *sql.DB, error) {
	if cfg.Store == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return store.NewMemory(), nil, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := db.Open(connectCtx, cfg.DB, log)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(connectCtx, conn); err != nil {
		db.Close(conn, log)
		return nil, nil, err
	}
	return store.NewPostgres(conn, log), conn, nil
}
