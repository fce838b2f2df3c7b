package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"poputchik-service/internal/infrastructure/config"
	"poputchik-service/internal/infrastructure/persistence"
	"poputchik-service/internal/interface/httpapi"
	"poputchik-service/internal/interface/repository"
	"poputchik-service/internal/usecase"
	"poputchik-service/pkg/logger"
	"poputchik-service/pkg/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Poputchik Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up PostgreSQL connection
	gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", "error", err)
	}
	if err := repository.AutoMigrate(gormDB); err != nil {
		log.Fatal("Failed to migrate database", "error", err)
	}

	// Set up MongoDB connection for the dispatch outbox
	log.Info("Connecting to MongoDB")
	mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	mongoDB := persistence.GetDatabase(mongoClient, cfg.MongoDB)

	// Set up metrics
	m := metrics.NewMetrics("poputchik")

	// Set up repositories
	userRepo := repository.NewGormUserRepository(gormDB)
	postRepo := repository.NewGormPostRepository(gormDB)
	subscriptionRepo := repository.NewGormSubscriptionRepository(gormDB)
	notificationRepo := repository.NewGormNotificationLogRepository(gormDB)
	dispatchRepo := repository.NewMongoDispatchRepository(mongoDB)
	telegramRepo := repository.NewTelegramRepository(log, cfg.TelegramEndpoint, cfg.TelegramBotToken, cfg.ChannelID)

	// Set up the matching core
	matchEngine := usecase.NewMatchEngine(postRepo, subscriptionRepo, userRepo, notificationRepo, dispatchRepo, m, log)
	postService := usecase.NewPostService(postRepo, subscriptionRepo, userRepo, telegramRepo, matchEngine,
		cfg.MaxPrice, cfg.PostLifetime, m, log)

	// Set up background workers
	lifecycleWorker := usecase.NewLifecycleWorker(postRepo, telegramRepo, cfg.ExpireInterval, cfg.ExpireBatchSize, m, log)
	dispatchWorker := usecase.NewDispatchWorker(dispatchRepo, telegramRepo, cfg.DispatchPollInterval, cfg.DispatchBatchSize, log)

	go lifecycleWorker.Start(ctx)
	go dispatchWorker.Start(ctx)

	// Set up HTTP server for the front-end API and metrics
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
	httpapi.NewPostHandler(postService, log).Register(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all workers

	// Let in-flight ticks finish before tearing down connections
	lifecycleWorker.Wait()
	dispatchWorker.Wait()

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Poputchik Service stopped")
}
