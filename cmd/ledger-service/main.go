package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stockledger/stockledger-backend/internal/ledger/consumers"
	"github.com/stockledger/stockledger-backend/internal/ledger/events"
	"github.com/stockledger/stockledger-backend/internal/ledger/handler"
	"github.com/stockledger/stockledger-backend/internal/ledger/repository"
	"github.com/stockledger/stockledger-backend/internal/ledger/service"
	"github.com/stockledger/stockledger-backend/pkg/auth"
	"github.com/stockledger/stockledger-backend/pkg/config"
	"github.com/stockledger/stockledger-backend/pkg/database"
	"github.com/stockledger/stockledger-backend/pkg/httputil"
	"github.com/stockledger/stockledger-backend/pkg/logger"
	"github.com/stockledger/stockledger-backend/pkg/messaging"
)

const serviceName = "ledger-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.Server.Environment, cfg.Log.Level)
	log.Info().Msg("starting Ledger Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if cfg.Ledger.BootstrapSchema {
		if err := repository.Bootstrap(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to bootstrap ledger schema")
		}
	}

	movementRepo := repository.NewMovementRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	userCacheRepo := repository.NewUserCacheRepository(db)

	// The broker is optional; without it events are dropped and the user
	// cache is only as fresh as its last import
	var (
		rmq       *messaging.RabbitMQ
		publisher *events.LedgerEventPublisher
	)
	if cfg.RabbitMQ.Enabled() {
		rmq, err = messaging.New(ctx, &cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		publisher, err = events.NewLedgerEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}

		userConsumer, err := consumers.NewUserEventConsumer(rmq, userCacheRepo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create user event consumer")
		}
		if err := userConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start user event consumer")
		}
	} else {
		log.Warn().Msg("rabbitmq not configured, ledger events will not be published")
	}

	ingestService := service.NewIngestService(db, movementRepo, transferRepo, branchRepo, publisher, cfg.Ledger, log)
	stockService := service.NewStockAggregator(movementRepo, userCacheRepo, cfg.Ledger, log)
	forecastService := service.NewExpiryForecaster(movementRepo, cfg.Ledger, log)
	transferService := service.NewTransferService(db, transferRepo, branchRepo, userCacheRepo, publisher, log)
	branchService := service.NewBranchService(branchRepo, log)
	adminService := service.NewLedgerAdminService(movementRepo, branchRepo, log)

	handlers := &handler.Handlers{
		Sync:      handler.NewSyncHandler(ingestService, log),
		Stock:     handler.NewStockHandler(stockService, forecastService, log),
		Transfers: handler.NewTransferHandler(transferService, log),
		Branches:  handler.NewBranchHandler(branchService, log),
		Admin:     handler.NewAdminHandler(ingestService, adminService, log),
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			status["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, status)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.Authenticate(auth.NewVerifier(&cfg.JWT)))
		handlers.Mount(r)
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop consumers before draining HTTP
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
