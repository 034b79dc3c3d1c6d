package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/deep-trader/internal/clients/yahoo"
	"github.com/aristath/deep-trader/internal/config"
	"github.com/aristath/deep-trader/internal/database"
	"github.com/aristath/deep-trader/internal/events"
	"github.com/aristath/deep-trader/internal/modules/history"
	"github.com/aristath/deep-trader/internal/modules/training"
	"github.com/aristath/deep-trader/internal/scheduler"
	"github.com/aristath/deep-trader/internal/server"
	"github.com/aristath/deep-trader/internal/services"
	"github.com/aristath/deep-trader/pkg/logger"
)

func main() {
	// Load configuration first so the logger honors LOG_LEVEL
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("strategy", cfg.Strategy).Msg("Starting Deep Trader")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Wire services
	eventManager := events.NewManager(log)
	yahooClient := yahoo.NewClient(log)
	priceRepo := history.NewPriceRepository(db.Conn(), log)
	historyService := history.NewService(priceRepo, yahooClient, cfg.DataDir, log)
	runRepo := training.NewRunRepository(db.Conn(), log)
	trainingService := services.NewTrainingService(cfg, historyService, runRepo, eventManager, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	retrainJob := scheduler.NewRetrainCycleJob(trainingService, cfg.Symbols, log)
	if err := sched.AddJob(cfg.RetrainSchedule, retrainJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register retrain job")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:            cfg.Port,
		Log:             log,
		DB:              db,
		Config:          cfg,
		TrainingService: trainingService,
		RunRepo:         runRepo,
		DevMode:         cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
